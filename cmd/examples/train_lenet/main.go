package main

import (
	"flag"
	"fmt"
	"time"

	gan "github.com/ganlab/ganlab"
	"github.com/ganlab/ganlab/datasets/mnist"
	"gorgonia.org/gorgonia"
)

// LeNet digit classifier trained with softmax cross-entropy.

var (
	trainImages  = flag.String("train-images", "./data/train-images-idx3-ubyte.gz", "path to train IDX images file")
	trainLabels  = flag.String("train-labels", "./data/train-labels-idx1-ubyte.gz", "path to train IDX labels file")
	testImages   = flag.String("test-images", "./data/t10k-images-idx3-ubyte.gz", "path to test IDX images file")
	testLabels   = flag.String("test-labels", "./data/t10k-labels-idx1-ubyte.gz", "path to test IDX labels file")
	outputFolder = flag.String("out", "./output", "folder for weights")
	batchSize    = flag.Int("batch", 32, "batch size")
	epochs       = flag.Int("epochs", 3, "number of epochs")
	logEvery     = flag.Int("log", 200, "log every N steps")

	classes = 10
)

func main() {
	flag.Parse()

	train, err := mnist.Load(*trainImages, *trainLabels)
	if err != nil {
		panic(err)
	}
	test, err := mnist.Load(*testImages, *testLabels)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Loaded %d train / %d test digits\n", train.N, test.N)

	trainer, err := gan.NewClassifierTrainer(func(g *gorgonia.ExprGraph) *gan.Network {
		return gan.LeNet(g, classes)
	}, gan.ClassifierConfig{
		BatchSize:  *batchSize,
		InputShape: []int{1, mnist.ImgSize, mnist.ImgSize},
		Classes:    classes,
		LearnRate:  0.001,
		Solver:     gan.SolverAdam,
	})
	if err != nil {
		panic(err)
	}
	defer trainer.Close()

	trainTensors, err := train.ToTrainSet(false)
	if err != nil {
		panic(err)
	}

	batches := train.N / *batchSize
	st := time.Now()
	step := 0
	for epoch := 0; epoch < *epochs; epoch++ {
		for b := 0; b < batches; b++ {
			start := b * *batchSize
			batch, err := trainTensors.SliceBatch(start, start+*batchSize)
			if err != nil {
				panic(err)
			}
			oneHot, err := gan.OneHotDense(train.Labels[start:start+*batchSize], classes)
			if err != nil {
				panic(err)
			}
			loss, err := trainer.Step(batch, oneHot)
			if err != nil {
				panic(err)
			}
			step++
			if step%*logEvery == 0 {
				fmt.Printf("Epoch %d step %d:\n\tloss: %v\n\tTaken time: %v\n", epoch, step, loss, time.Since(st))
				st = time.Now()
			}
		}
	}

	testTensors, err := test.ToTrainSet(false)
	if err != nil {
		panic(err)
	}
	accuracy, err := trainer.Evaluate(testTensors, test.Labels)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Test accuracy: %.4f\n", accuracy)

	err = gan.SaveWeights(trainer.Network(), fmt.Sprintf("%s/lenet.gob", *outputFolder))
	if err != nil {
		panic(err)
	}
	fmt.Println("Weights saved")
}
