package ganlab

import (
	"testing"

	"gorgonia.org/tensor"
)

func TestSliceBatch(t *testing.T) {
	data := make([]float64, 10*2)
	for i := range data {
		data[i] = float64(i)
	}
	set := &TrainSet{
		TrainData:  tensor.New(tensor.WithShape(10, 2), tensor.WithBacking(data)),
		DataLength: 10,
	}
	batch, err := set.SliceBatch(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !batch.Shape().Eq([]int{3, 2}) {
		t.Fatalf("expected shape (3, 2), got %v", batch.Shape())
	}
	got := batch.Data().([]float64)
	if got[0] != 4 || got[5] != 9 {
		t.Fatalf("unexpected batch payload %v", got)
	}

	if _, err := set.SliceBatch(8, 12); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, err := set.SliceBatch(5, 5); err == nil {
		t.Fatal("expected empty-batch error")
	}
}

func TestBatchSamplerReproducible(t *testing.T) {
	set := GenerateScalarSet(100, 0.0, 1.0, 7)
	first, err := NewBatchSampler(set, 99)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewBatchSampler(set, 99)
	if err != nil {
		t.Fatal(err)
	}
	batchA, err := first.Sample(16)
	if err != nil {
		t.Fatal(err)
	}
	batchB, err := second.Sample(16)
	if err != nil {
		t.Fatal(err)
	}
	dataA := batchA.Data().([]float64)
	dataB := batchB.Data().([]float64)
	for i := range dataA {
		if dataA[i] != dataB[i] {
			t.Fatalf("sample #%d differs: %f vs %f", i, dataA[i], dataB[i])
		}
	}
}

func TestBatchSamplerShape(t *testing.T) {
	data := make([]float64, 6*2*2)
	set := &TrainSet{
		TrainData:  tensor.New(tensor.WithShape(6, 2, 2), tensor.WithBacking(data)),
		DataLength: 6,
	}
	sampler, err := NewBatchSampler(set, 1)
	if err != nil {
		t.Fatal(err)
	}
	batch, err := sampler.Sample(4)
	if err != nil {
		t.Fatal(err)
	}
	if !batch.Shape().Eq([]int{4, 2, 2}) {
		t.Fatalf("expected shape (4, 2, 2), got %v", batch.Shape())
	}
	if _, err := sampler.Sample(0); err == nil {
		t.Fatal("expected error for non-positive batch size")
	}
}

func TestGenerateScalarSet(t *testing.T) {
	set := GenerateScalarSet(5000, 8.0, 1.0, 1337)
	if set.DataLength != 5000 {
		t.Fatalf("expected 5000 samples, got %d", set.DataLength)
	}
	if !set.TrainData.Shape().Eq([]int{5000, 1}) {
		t.Fatalf("expected shape (5000, 1), got %v", set.TrainData.Shape())
	}
	stats, err := Stats(set.TrainData)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Mean < 7.9 || stats.Mean > 8.1 {
		t.Fatalf("empirical mean %f too far from 8.0", stats.Mean)
	}
}

func TestGenerateTrainingSet(t *testing.T) {
	x := 0.0
	set, err := GenerateTrainingSet(4,
		func() float64 { x++; return x },
		func(v float64) float64 { return v * v },
	)
	if err != nil {
		t.Fatal(err)
	}
	if !set.TrainData.Shape().Eq([]int{4, 2}) {
		t.Fatalf("expected shape (4, 2), got %v", set.TrainData.Shape())
	}
	data := set.TrainData.Data().([]float64)
	// Rows are (x, y(x)) pairs
	if data[0] != 1 || data[1] != 1 || data[6] != 4 || data[7] != 16 {
		t.Fatalf("unexpected payload %v", data)
	}
}

func TestOneHotDense(t *testing.T) {
	oneHot, err := OneHotDense([]int{0, 2, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 0, 0, 0, 0, 1, 0, 1, 0}
	got := oneHot.Data().([]float64)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("one-hot row payload mismatch at %d: %v", i, got)
		}
	}
	if _, err := OneHotDense([]int{3}, 3); err == nil {
		t.Fatal("expected out-of-range label error")
	}
}
