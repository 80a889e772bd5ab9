package ganlab

import (
	"math"
	"testing"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func tinyClassifierBuilder(g *gorgonia.ExprGraph) *Network {
	return &Network{
		Name: "tiny",
		Layers: []*Layer{
			{WeightNode: variedMatrix(g, "tiny_w0", 8, 3), BiasNode: variedMatrix(g, "tiny_b0", 1, 8), Type: LayerLinear, Activation: Rectify},
			{WeightNode: variedMatrix(g, "tiny_w1", 3, 8), BiasNode: variedMatrix(g, "tiny_b1", 1, 3), Type: LayerLinear, Activation: func(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) {
				return Softmax(a, Options{Axis: []int{1}})
			}},
		},
	}
}

func newTinyClassifier(t *testing.T) *ClassifierTrainer {
	t.Helper()
	trainer, err := NewClassifierTrainer(tinyClassifierBuilder, ClassifierConfig{
		BatchSize:  4,
		InputShape: []int{3},
		Classes:    3,
		LearnRate:  0.01,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { trainer.Close() })
	return trainer
}

func labeledBatch(t *testing.T) (*tensor.Dense, *tensor.Dense, []int) {
	t.Helper()
	backing := make([]float64, 4*3)
	for i := range backing {
		backing[i] = 0.1 * float64(i%5)
	}
	batch := tensor.New(tensor.WithShape(4, 3), tensor.WithBacking(backing))
	labels := []int{0, 1, 2, 0}
	oneHot, err := OneHotDense(labels, 3)
	if err != nil {
		t.Fatal(err)
	}
	return batch, oneHot, labels
}

func TestClassifierConfigValidation(t *testing.T) {
	bad := []ClassifierConfig{
		{BatchSize: 0, InputShape: []int{3}, Classes: 3},
		{BatchSize: 4, Classes: 3},
		{BatchSize: 4, InputShape: []int{3}, Classes: 1},
	}
	for i, cfg := range bad {
		if _, err := NewClassifierTrainer(tinyClassifierBuilder, cfg); err == nil {
			t.Fatalf("config #%d must be rejected", i)
		}
	}
}

func TestClassifierStepAndPredict(t *testing.T) {
	trainer := newTinyClassifier(t)
	batch, oneHot, _ := labeledBatch(t)

	loss, err := trainer.Step(batch, oneHot)
	if err != nil {
		t.Fatal(err)
	}
	if loss <= 0 || math.IsNaN(loss) {
		t.Fatalf("cross-entropy loss must be positive and finite, got %f", loss)
	}
	if trainer.History().Len() != 1 {
		t.Fatalf("history must hold one value, got %d", trainer.History().Len())
	}

	probs, err := trainer.Predict(batch)
	if err != nil {
		t.Fatal(err)
	}
	if !probs.Shape().Eq(tensor.Shape{4, 3}) {
		t.Fatalf("expected probability shape (4, 3), got %v", probs.Shape())
	}
	rows := probs.Data().([]float64)
	for r := 0; r < 4; r++ {
		sum := 0.0
		for c := 0; c < 3; c++ {
			sum += rows[r*3+c]
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Fatalf("softmax row #%d sums to %f", r, sum)
		}
	}

	wrong := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(make([]float64, 6)))
	if _, err := trainer.Step(wrong, oneHot); err == nil {
		t.Fatal("expected error for wrong batch shape")
	}
	if _, err := trainer.Step(batch, wrong); err == nil {
		t.Fatal("expected error for wrong label shape")
	}
}

func TestClassifierEvaluate(t *testing.T) {
	trainer := newTinyClassifier(t)
	batch, _, labels := labeledBatch(t)

	set := &TrainSet{TrainData: batch, DataLength: 4}
	acc, err := trainer.Evaluate(set, labels)
	if err != nil {
		t.Fatal(err)
	}
	if acc < 0 || acc > 1 {
		t.Fatalf("accuracy %f out of [0;1]", acc)
	}
	if _, err := trainer.Evaluate(set, labels[:2]); err == nil {
		t.Fatal("expected error for mismatched label count")
	}
}

func TestLeNetForwardShape(t *testing.T) {
	g := gorgonia.NewGraph()
	net := LeNet(g, 10)
	input := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(2, 1, 28, 28), gorgonia.WithName("images"))
	if err := net.Fwd(input, 2); err != nil {
		t.Fatal(err)
	}
	if !net.Out().Shape().Eq(tensor.Shape{2, 10}) {
		t.Fatalf("expected output shape (2, 10), got %v", net.Out().Shape())
	}

	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	backing := make([]float64, 2*28*28)
	for i := range backing {
		backing[i] = float64(i%255) / 255.0
	}
	if err := gorgonia.Let(input, tensor.New(tensor.WithShape(2, 1, 28, 28), tensor.WithBacking(backing))); err != nil {
		t.Fatal(err)
	}
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	rows := net.Out().Value().Data().([]float64)
	for r := 0; r < 2; r++ {
		sum := 0.0
		for c := 0; c < 10; c++ {
			sum += rows[r*10+c]
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Fatalf("softmax row #%d sums to %f", r, sum)
		}
	}
}

func TestArgmaxRow(t *testing.T) {
	if got := argmaxRow([]float64{0.1, 0.7, 0.2}); got != 1 {
		t.Fatalf("expected argmax 1, got %d", got)
	}
	if got := argmaxRow([]float64{0.5}); got != 0 {
		t.Fatalf("expected argmax 0, got %d", got)
	}
}
