package ganlab

import (
	"fmt"

	rng "github.com/leesper/go_rng"
	"gorgonia.org/tensor"
)

// TrainSet Immutable collection of training samples with (optional) labels.
type TrainSet struct {
	TrainData  *tensor.Dense
	TrainLabel *tensor.Dense
	DataLength int
}

// SlicerOneStep Just iterator with step size = 1
type SlicerOneStep struct {
	StartIdx, EndIdx int
}

func (s SlicerOneStep) Start() int { return s.StartIdx }
func (s SlicerOneStep) End() int   { return s.EndIdx }
func (s SlicerOneStep) Step() int  { return 1 }

// SliceBatch Materializes samples [start;end) as a new dense tensor keeping
// the per-sample shape.
func (set *TrainSet) SliceBatch(start, end int) (*tensor.Dense, error) {
	if start < 0 || end > set.DataLength || start >= end {
		return nil, fmt.Errorf("batch bounds [%d;%d) are out of range for train set of %d samples", start, end, set.DataLength)
	}
	sliced, err := set.TrainData.Slice(SlicerOneStep{StartIdx: start, EndIdx: end})
	if err != nil {
		return nil, err
	}
	materialized := sliced.Materialize().(*tensor.Dense)
	shape := append([]int{end - start}, set.TrainData.Shape()[1:]...)
	if err := materialized.Reshape(shape...); err != nil {
		return nil, err
	}
	return materialized, nil
}

// BatchSampler Uniform with-replacement row sampler over a TrainSet. Seeded,
// so the sequence of sampled batches is reproducible.
type BatchSampler struct {
	set     *TrainSet
	uniform *rng.UniformGenerator
	rowSize int
}

// NewBatchSampler Constructor for BatchSampler
func NewBatchSampler(set *TrainSet, seed int64) (*BatchSampler, error) {
	if set == nil || set.TrainData == nil || set.DataLength == 0 {
		return nil, fmt.Errorf("batch sampler requires a non-empty train set")
	}
	return &BatchSampler{
		set:     set,
		uniform: rng.NewUniformGenerator(seed),
		rowSize: set.TrainData.Shape().TotalSize() / set.DataLength,
	}, nil
}

// Sample Draws batchSize rows uniformly with replacement.
func (bs *BatchSampler) Sample(batchSize int) (*tensor.Dense, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	src, ok := bs.set.TrainData.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("train data must be backed by []float64")
	}
	data := make([]float64, batchSize*bs.rowSize)
	for i := 0; i < batchSize; i++ {
		row := int(bs.uniform.Int64n(int64(bs.set.DataLength)))
		copy(data[i*bs.rowSize:(i+1)*bs.rowSize], src[row*bs.rowSize:(row+1)*bs.rowSize])
	}
	shape := append([]int{batchSize}, bs.set.TrainData.Shape()[1:]...)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
}

type ReferenceFunction func(float64) float64
type ArgumentFunction func() float64

// GenerateTrainingSet Builds a (numSamples, 2) train set of (x, y(x)) pairs
// for function-fitting experiments.
func GenerateTrainingSet(numSamples int, xFunc ArgumentFunction, yFunc ReferenceFunction) (*TrainSet, error) {
	dataXAxis := make([]float64, numSamples)
	dataYAxis := make([]float64, numSamples)
	for i := range dataXAxis {
		dataXAxis[i] = xFunc()
		dataYAxis[i] = yFunc(dataXAxis[i])
	}
	inputTensor := tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataXAxis))
	outputTensor := tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataYAxis))
	hstack, err := inputTensor.Hstack(outputTensor)
	if err != nil {
		return nil, err
	}
	zeros := tensor.Ones(tensor.Float64, numSamples, 1)
	zeros.Zero()
	return &TrainSet{
		TrainData:  hstack,
		TrainLabel: zeros,
		DataLength: numSamples,
	}, nil
}

// GenerateScalarSet Builds a (numSamples, 1) train set of draws from
// Normal(mean, stddev). The toy target distribution for 1-D GAN experiments.
func GenerateScalarSet(numSamples int, mean, stddev float64, seed int64) *TrainSet {
	source := NewNoiseSource(seed)
	data := source.GaussianBatch(numSamples, 1, mean, stddev)
	return &TrainSet{
		TrainData:  data,
		DataLength: numSamples,
	}
}

// OneHotDense Encodes integer class labels as a (len(labels), classes) dense tensor.
func OneHotDense(labels []int, classes int) (*tensor.Dense, error) {
	data := make([]float64, len(labels)*classes)
	for i, label := range labels {
		if label < 0 || label >= classes {
			return nil, fmt.Errorf("label %d at position %d is out of range [0;%d)", label, i, classes)
		}
		data[i*classes+label] = 1.0
	}
	return tensor.New(tensor.WithShape(len(labels), classes), tensor.WithBacking(data)), nil
}
