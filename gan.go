package ganlab

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// GAN Composed model: Discriminator applied to Generator's output, defined on
// the Generator's expression graph.
//
// The discriminator part is a structural copy of the provided Discriminator
// whose weight/bias nodes share backing values with the originals. Solver
// steps on the real Discriminator are therefore immediately visible here,
// while generator updates hand the solver only the generator's learnables.
// No trainable-flag toggling is involved: the optimization step explicitly
// names the parameter set it may touch.
//
// generatorPart - reference to Generator
// discriminatorPart - reference to Discriminator
// frozenDiscriminator - copy of structure of Discriminator which learnables would be ignored during the training process
//
type GAN struct {
	generatorPart     *GeneratorNet
	discriminatorPart *DiscriminatorNet

	frozenDiscriminator *DiscriminatorNet

	out           *gorgonia.Node
	learnables    gorgonia.Nodes
	learnablesGen gorgonia.Nodes
}

// NewGAN Constructor for GAN. Clones the Discriminator's layers onto the
// Generator's graph (value-sharing, see Layer.clone).
func NewGAN(g *gorgonia.ExprGraph, definedGenerator *GeneratorNet, definedDiscriminator *DiscriminatorNet) (*GAN, error) {
	definedGAN := GAN{
		generatorPart:     definedGenerator,
		discriminatorPart: definedDiscriminator,
		frozenDiscriminator: &DiscriminatorNet{private: &Network{
			Name:   "gan_discriminator",
			Layers: make([]*Layer, len(definedDiscriminator.private.Layers)),
		}},
		learnablesGen: definedGenerator.Learnables(),
		learnables:    definedGenerator.Learnables(),
	}
	for i, l := range definedDiscriminator.private.Layers {
		if l == nil {
			return nil, fmt.Errorf("Discriminator's layer #%d is nil", i)
		}
		cloned, err := l.clone(g, "_gan")
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't clone Discriminator's layer #%d onto GAN graph", i))
		}
		definedGAN.frozenDiscriminator.private.Layers[i] = cloned
		if cloned.WeightNode != nil {
			definedGAN.learnables = append(definedGAN.learnables, cloned.WeightNode)
		}
		if cloned.BiasNode != nil {
			definedGAN.learnables = append(definedGAN.learnables, cloned.BiasNode)
		}
	}
	return &definedGAN, nil
}

// Out Returns reference to output node
func (net *GAN) Out() *gorgonia.Node {
	return net.out
}

// GeneratorOut Returns reference to output node of generator part
func (net *GAN) GeneratorOut() *gorgonia.Node {
	return net.generatorPart.Out()
}

// Learnables Returns learnables nodes (generator part + frozen discriminator copy)
func (net *GAN) Learnables() gorgonia.Nodes {
	return net.learnables
}

// GeneratorLearnables Returns learnables nodes of generator part only
func (net *GAN) GeneratorLearnables() gorgonia.Nodes {
	return net.learnablesGen
}

// Fwd Initializates feedforward of Generator's output through the frozen
// discriminator copy.
//
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
// Note: input node is not needed since input for Discriminator is just Generator's output
//
func (net *GAN) Fwd(batchSize int) error {
	if net.generatorPart.Out() == nil {
		return fmt.Errorf("Generator part must be fed forward before GAN (call Generator's Fwd first)")
	}
	if err := net.frozenDiscriminator.private.Fwd(net.generatorPart.Out(), batchSize); err != nil {
		return errors.Wrap(err, "[GAN, Discriminator part]")
	}
	net.out = net.frozenDiscriminator.private.out
	return nil
}
