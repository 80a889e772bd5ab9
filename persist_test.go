package ganlab

import (
	"path/filepath"
	"testing"

	"gorgonia.org/gorgonia"
)

func TestSaveLoadWeightsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.gob")

	src := gorgonia.NewGraph()
	source := &Network{
		Name: "source",
		Layers: []*Layer{
			{WeightNode: variedMatrix(src, "net_w0", 4, 2), BiasNode: variedMatrix(src, "net_b0", 1, 4), Type: LayerLinear, Activation: Rectify},
		},
	}
	if err := SaveWeights(source, path); err != nil {
		t.Fatal(err)
	}

	dst := gorgonia.NewGraph()
	target := &Network{
		Name: "target",
		Layers: []*Layer{
			{WeightNode: constMatrix(dst, "net_w0", 4, 2, 0), BiasNode: constMatrix(dst, "net_b0", 1, 4, 0), Type: LayerLinear, Activation: Rectify},
		},
	}
	if err := LoadWeights(target, path); err != nil {
		t.Fatal(err)
	}
	for i, node := range target.Learnables() {
		want := source.Learnables()[i].Value().Data().([]float64)
		got := node.Value().Data().([]float64)
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("learnable '%s' element #%d: expected %f, got %f", node.Name(), j, want[j], got[j])
			}
		}
	}
}

func TestLoadWeightsMissingLearnable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.gob")

	src := gorgonia.NewGraph()
	source := &Network{
		Layers: []*Layer{
			{WeightNode: variedMatrix(src, "net_w0", 4, 2), Type: LayerLinear, Activation: NoActivation},
		},
	}
	if err := SaveWeights(source, path); err != nil {
		t.Fatal(err)
	}

	dst := gorgonia.NewGraph()
	target := &Network{
		Layers: []*Layer{
			{WeightNode: constMatrix(dst, "net_w_other", 4, 2, 0), Type: LayerLinear, Activation: NoActivation},
		},
	}
	if err := LoadWeights(target, path); err == nil {
		t.Fatal("expected error for a learnable missing from the snapshot")
	}
}

func TestLoadWeightsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.gob")

	src := gorgonia.NewGraph()
	source := &Network{
		Layers: []*Layer{
			{WeightNode: variedMatrix(src, "net_w0", 4, 2), Type: LayerLinear, Activation: NoActivation},
		},
	}
	if err := SaveWeights(source, path); err != nil {
		t.Fatal(err)
	}

	dst := gorgonia.NewGraph()
	target := &Network{
		Layers: []*Layer{
			{WeightNode: constMatrix(dst, "net_w0", 2, 4, 0), Type: LayerLinear, Activation: NoActivation},
		},
	}
	if err := LoadWeights(target, path); err == nil {
		t.Fatal("expected error for shape mismatch")
	}
}

func TestSaveWeightsRejectsDuplicateNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.gob")

	g := gorgonia.NewGraph()
	shared := variedMatrix(g, "net_w0", 4, 2)
	net := &Network{
		Layers: []*Layer{
			{WeightNode: shared, Type: LayerLinear, Activation: NoActivation},
			{WeightNode: shared, Type: LayerLinear, Activation: NoActivation},
		},
	}
	if err := SaveWeights(net, path); err == nil {
		t.Fatal("expected error for duplicate learnable names")
	}
}
