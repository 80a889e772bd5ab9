package ganlab

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// GeneratorNet Abstraction for generator part of GAN. Maps a latent batch to a
// batch of synthetic samples.
type GeneratorNet struct {
	private *Network
	// Width of the latent vector the first layer expects.
	latentDim int
}

// Generator Constructor for GeneratorNet
func Generator(layers ...*Layer) *GeneratorNet {
	return &GeneratorNet{private: &Network{
		Name:   "generator",
		Layers: layers,
	}}
}

// Out Returns reference to output node
func (net *GeneratorNet) Out() *gorgonia.Node {
	return net.private.out
}

// Learnables Returns learnables nodes
func (net *GeneratorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// LatentDim Returns width of the latent vector captured on Fwd call.
// Zero until Fwd has been called.
func (net *GeneratorNet) LatentDim() int {
	return net.latentDim
}

// Fwd Initializates feedforward for provided input
//
// input - Input node of shape (batchSize, latentDim)
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *GeneratorNet) Fwd(input *gorgonia.Node, batchSize int) error {
	if input.Dims() != 2 {
		return fmt.Errorf("Generator's input must be a matrix (batch, latent), but got %d dimensions", input.Dims())
	}
	net.latentDim = input.Shape()[1]
	if err := net.private.Fwd(input, batchSize); err != nil {
		return errors.Wrap(err, "[Generator]")
	}
	return nil
}
