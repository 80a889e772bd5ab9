package ganlab

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Learnable Anything exposing a set of trainable nodes.
type Learnable interface {
	Learnables() gorgonia.Nodes
}

// SaveWeights Snapshots all learnable values keyed by node name into a
// gob-encoded file. Node names must be unique within the network.
func SaveWeights(net Learnable, path string) error {
	snapshot := make(map[string]*tensor.Dense)
	for _, node := range net.Learnables() {
		value := node.Value()
		if value == nil {
			return fmt.Errorf("learnable '%s' has no value to save", node.Name())
		}
		dense, ok := value.(*tensor.Dense)
		if !ok {
			return fmt.Errorf("learnable '%s' is not backed by a dense tensor", node.Name())
		}
		if _, exists := snapshot[node.Name()]; exists {
			return fmt.Errorf("duplicate learnable name '%s'", node.Name())
		}
		snapshot[node.Name()] = dense.Clone().(*tensor.Dense)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "Can't create weights file")
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(snapshot); err != nil {
		return errors.Wrap(err, "Can't encode weights")
	}
	return nil
}

// LoadWeights Restores learnable values from a snapshot produced by
// SaveWeights. Every learnable of the network must be present in the file
// with a matching shape.
func LoadWeights(net Learnable, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "Can't open weights file")
	}
	defer f.Close()
	snapshot := make(map[string]*tensor.Dense)
	if err := gob.NewDecoder(f).Decode(&snapshot); err != nil {
		return errors.Wrap(err, "Can't decode weights")
	}
	for _, node := range net.Learnables() {
		dense, ok := snapshot[node.Name()]
		if !ok {
			return fmt.Errorf("snapshot is missing learnable '%s'", node.Name())
		}
		if !dense.Shape().Eq(node.Shape()) {
			return fmt.Errorf("learnable '%s' has shape %v, but snapshot carries %v", node.Name(), node.Shape(), dense.Shape())
		}
		if err := gorgonia.Let(node, dense); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't bind snapshot value to learnable '%s'", node.Name()))
		}
	}
	return nil
}
