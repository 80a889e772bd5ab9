package ganlab

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// SampleStats Empirical first moments of a sample batch.
type SampleStats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	N      int
}

// Stats Computes empirical statistics over all elements of a dense tensor.
// For a (N, 1) batch of scalar samples this is the usual way to compare the
// generator's output distribution against the target one.
func Stats(t *tensor.Dense) (SampleStats, error) {
	if t == nil {
		return SampleStats{}, fmt.Errorf("no tensor provided")
	}
	data, ok := t.Data().([]float64)
	if !ok || len(data) == 0 {
		return SampleStats{}, fmt.Errorf("tensor must be backed by non-empty []float64")
	}
	s := SampleStats{
		Mean:   stat.Mean(data, nil),
		StdDev: stat.StdDev(data, nil),
		Min:    data[0],
		Max:    data[0],
		N:      len(data),
	}
	for _, v := range data {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s, nil
}
