package ganlab

import (
	"math"
	"testing"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func evalLoss(t *testing.T, aData, bData []float64, lossFn func(a, b *gorgonia.Node) (*gorgonia.Node, error)) float64 {
	t.Helper()
	g := gorgonia.NewGraph()
	aT := tensor.New(tensor.WithShape(len(aData), 1), tensor.WithBacking(aData))
	bT := tensor.New(tensor.WithShape(len(bData), 1), tensor.WithBacking(bData))
	a := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(len(aData), 1), gorgonia.WithName("a"), gorgonia.WithValue(aT))
	b := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(len(bData), 1), gorgonia.WithName("b"), gorgonia.WithValue(bT))
	cost, err := lossFn(a, b)
	if err != nil {
		t.Fatal(err)
	}
	var costVal gorgonia.Value
	gorgonia.Read(cost, &costVal)
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	loss, err := scalarFromValue(costVal)
	if err != nil {
		t.Fatal(err)
	}
	return loss
}

func TestMSELossMean(t *testing.T) {
	loss := evalLoss(t, []float64{1, 3}, []float64{0, 1}, func(a, b *gorgonia.Node) (*gorgonia.Node, error) {
		return MSELoss(a, b)
	})
	if math.Abs(loss-2.5) > 1e-9 {
		t.Fatalf("expected MSE 2.5, got %f", loss)
	}
}

func TestMSELossSum(t *testing.T) {
	loss := evalLoss(t, []float64{1, 3}, []float64{0, 1}, func(a, b *gorgonia.Node) (*gorgonia.Node, error) {
		return MSELoss(a, b, LossReductionSum)
	})
	if math.Abs(loss-5.0) > 1e-9 {
		t.Fatalf("expected MSE sum 5.0, got %f", loss)
	}
}

func TestCrossEntropyLoss(t *testing.T) {
	loss := evalLoss(t, []float64{0.5, 0.25}, []float64{1, 1}, func(a, b *gorgonia.Node) (*gorgonia.Node, error) {
		return CrossEntropyLoss(a, b)
	})
	want := (-math.Log(0.5) - math.Log(0.25)) / 2
	if math.Abs(loss-want) > 1e-9 {
		t.Fatalf("expected CE %f, got %f", want, loss)
	}
}

func TestBinaryCrossEntropyLoss(t *testing.T) {
	// Prediction 0.5 for a real (1) and a fake (0) sample: both terms are ln2
	loss := evalLoss(t, []float64{0.5, 0.5}, []float64{1, 0}, func(a, b *gorgonia.Node) (*gorgonia.Node, error) {
		return BinaryCrossEntropyLoss(a, b)
	})
	want := math.Log(2)
	if math.Abs(loss-want) > 1e-9 {
		t.Fatalf("expected BCE %f, got %f", want, loss)
	}
}

func TestBinaryCrossEntropySmoothedTarget(t *testing.T) {
	// Smoothed real target 0.9 against prediction 0.9
	loss := evalLoss(t, []float64{0.9}, []float64{0.9}, func(a, b *gorgonia.Node) (*gorgonia.Node, error) {
		return BinaryCrossEntropyLoss(a, b)
	})
	want := -0.9*math.Log(0.9) - 0.1*math.Log(0.1)
	if math.Abs(loss-want) > 1e-9 {
		t.Fatalf("expected BCE %f, got %f", want, loss)
	}
}

func TestL1Loss(t *testing.T) {
	loss := evalLoss(t, []float64{1, -2}, []float64{0, 2}, func(a, b *gorgonia.Node) (*gorgonia.Node, error) {
		return L1Loss(a, b)
	})
	if math.Abs(loss-2.5) > 1e-9 {
		t.Fatalf("expected L1 2.5, got %f", loss)
	}
}
