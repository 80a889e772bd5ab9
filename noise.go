package ganlab

import (
	rng "github.com/leesper/go_rng"
	"gorgonia.org/tensor"
)

// NoiseSource Seeded source of latent batches. Two sources constructed with
// the same seed produce identical sequences of draws, which keeps training
// runs reproducible without touching the global math/rand state.
type NoiseSource struct {
	gaussian *rng.GaussianGenerator
	uniform  *rng.UniformGenerator
}

// NewNoiseSource Constructor for NoiseSource
func NewNoiseSource(seed int64) *NoiseSource {
	return &NoiseSource{
		gaussian: rng.NewGaussianGenerator(seed),
		uniform:  rng.NewUniformGenerator(seed),
	}
}

// NormBatch Returns reference to tensor.Dense of shape (batchSize, n) filled
// with draws from the standard normal distribution.
//
// batchSize - Simply batch size
// n - Number of elements in each batch (latent space size)
//
func (s *NoiseSource) NormBatch(batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = s.gaussian.Gaussian(0.0, 1.0)
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// UniformBatch Returns reference to tensor.Dense of shape (batchSize, n)
// filled with draws from [0.0, 1.0).
//
// batchSize - Simply batch size
// n - Number of elements in each batch (latent space size)
//
func (s *NoiseSource) UniformBatch(batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = s.uniform.Float64()
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// GaussianBatch Same as NormBatch but for arbitrary mean and standard deviation.
func (s *NoiseSource) GaussianBatch(batchSize, n int, mean, stddev float64) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = s.gaussian.Gaussian(mean, stddev)
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}
