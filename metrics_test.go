package ganlab

import (
	"math"
	"testing"

	"gorgonia.org/tensor"
)

func TestStats(t *testing.T) {
	batch := tensor.New(tensor.WithShape(4, 1), tensor.WithBacking([]float64{1, 2, 3, 4}))
	stats, err := Stats(batch)
	if err != nil {
		t.Fatal(err)
	}
	if stats.N != 4 {
		t.Fatalf("expected 4 samples, got %d", stats.N)
	}
	if math.Abs(stats.Mean-2.5) > 1e-12 {
		t.Fatalf("expected mean 2.5, got %f", stats.Mean)
	}
	// Sample standard deviation of 1..4
	want := math.Sqrt(5.0 / 3.0)
	if math.Abs(stats.StdDev-want) > 1e-12 {
		t.Fatalf("expected stddev %f, got %f", want, stats.StdDev)
	}
	if stats.Min != 1 || stats.Max != 4 {
		t.Fatalf("expected min/max 1/4, got %f/%f", stats.Min, stats.Max)
	}
}

func TestStatsRejectsEmptyInput(t *testing.T) {
	if _, err := Stats(nil); err == nil {
		t.Fatal("expected error for nil tensor")
	}
}
