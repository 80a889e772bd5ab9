package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	gan "github.com/ganlab/ganlab"
	"github.com/ganlab/ganlab/datasets/histo"
	"github.com/ganlab/ganlab/runlog"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GAN over grayscale histopathology patches with a convolutional
// discriminator. Per-step losses go into a SQLite run log for later
// inspection.

var (
	patchFolder  = flag.String("patches", "./data/patches", "folder with fixed-size PNG/JPEG patches")
	outputFolder = flag.String("out", "./output", "folder for samples")
	dbPath       = flag.String("db", "./output/runs.sqlite", "path to SQLite run log")
	runID        = flag.String("run", "histo-gan", "run identifier in the log")
	seed         = flag.Int64("seed", 1337, "random seed")
	batchSize    = flag.Int("batch", 32, "batch size")
	epochs       = flag.Int("epochs", 100, "number of epochs")
	evalEvery    = flag.Int("eval", 500, "evaluate every N steps")

	latentSpaceSize = 32
	patchSide       = 32
	patchPixels     = patchSide * patchSide
)

func main() {
	flag.Parse()
	ctx := context.Background()

	trainSet, err := histo.Load(*patchFolder, histo.LoadOptions{Height: patchSide, Width: patchSide, Gray: true})
	if err != nil {
		panic(err)
	}
	fmt.Printf("Loaded %d patches\n", trainSet.DataLength)

	store := runlog.NewStore(*dbPath)
	if err := store.Init(ctx); err != nil {
		panic(err)
	}
	defer store.Close()
	if err := store.StartRun(ctx, *runID); err != nil {
		panic(err)
	}

	trainer, err := gan.NewAdversarialTrainer(defineGenerator, defineDiscriminator, gan.TrainerConfig{
		BatchSize: *batchSize,
		LatentDim: latentSpaceSize,
		RealShape: []int{1, patchSide, patchSide},
		RealLabel: 0.9,
		LearnRate: 0.0002,
		Solver:    gan.SolverAdam,
		Seed:      *seed,
	})
	if err != nil {
		panic(err)
	}
	defer trainer.Close()

	st := time.Now()
	err = trainer.Train(trainSet, *epochs, gan.TrainOptions{
		SampleWithReplacement: true,
		OnStep: func(step int, res gan.StepResult) {
			err := store.LogStep(ctx, *runID, runlog.StepRecord{
				Step:              step,
				DiscriminatorLoss: res.DiscriminatorLoss,
				GeneratorLoss:     res.GeneratorLoss,
			})
			if err != nil {
				panic(err)
			}
		},
		EvalEvery: *evalEvery,
		OnEval: func(step int, t *gan.AdversarialTrainer) {
			fmt.Printf("Step %d:\n", step)
			fmt.Printf("\tDiscriminator's loss: %v\n", t.DiscriminatorHistory().Last())
			fmt.Printf("\tGenerator's loss: %v\n", t.GeneratorHistory().Last())
			fmt.Printf("\tTaken time: %v\n", time.Since(st))
			st = time.Now()
			samples, err := t.Sample(1)
			if err != nil {
				panic(err)
			}
			err = gan.SaveImageGrid(samples, patchSide, patchSide, 8, fmt.Sprintf("%s/patches_%d.png", *outputFolder, step))
			if err != nil {
				panic(err)
			}
		},
	})
	if err != nil {
		panic(err)
	}

	records, err := store.Steps(ctx, *runID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Run '%s' logged %d steps\n", *runID, len(records))
	if idx := trainer.GeneratorHistory().FirstNonFinite(); idx >= 0 {
		fmt.Printf("Warning: generator loss went non-finite at step %d\n", idx)
	}
}

func defineGenerator(g *gorgonia.ExprGraph) *gan.GeneratorNet {
	gen_shp0 := tensor.Shape{256, latentSpaceSize}
	gen_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp0...), gorgonia.WithName("generator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp0[0]), gorgonia.WithName("generator_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp1 := tensor.Shape{512, 256}
	gen_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp1...), gorgonia.WithName("generator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp1[0]), gorgonia.WithName("generator_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp2 := tensor.Shape{patchPixels, 512}
	gen_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp2...), gorgonia.WithName("generator_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp2[0]), gorgonia.WithName("generator_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gan.Generator(
		&gan.Layer{WeightNode: gen_w0, BiasNode: gen_b0, Type: gan.LayerLinear, Activation: gan.LeakyRectify},
		&gan.Layer{WeightNode: gen_w1, BiasNode: gen_b1, Type: gan.LayerLinear, Activation: gan.LeakyRectify},
		&gan.Layer{WeightNode: gen_w2, BiasNode: gen_b2, Type: gan.LayerLinear, Activation: gan.Sigmoid},
		// Shape generated pixels into NCHW so the convolutional
		// discriminator can consume them directly
		&gan.Layer{Type: gan.LayerReshape, ReshapeDims: []int{*batchSize, 1, patchSide, patchSide}, Activation: gan.NoActivation},
	)
}

func defineDiscriminator(g *gorgonia.ExprGraph) *gan.DiscriminatorNet {
	conv0 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(8, 1, 3, 3), gorgonia.WithName("discriminator_train_conv0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	// 8 maps of 15x15 after conv+pool
	dis_shp1 := tensor.Shape{64, 8 * 15 * 15}
	dis_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp1...), gorgonia.WithName("discriminator_train_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp1[0]), gorgonia.WithName("discriminator_train_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	dis_shp2 := tensor.Shape{1, 64}
	dis_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp2...), gorgonia.WithName("discriminator_train_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp2[0]), gorgonia.WithName("discriminator_train_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gan.Discriminator(
		&gan.Layer{
			WeightNode:   conv0,
			Type:         gan.LayerConvolutional,
			Activation:   gan.LeakyRectify,
			KernelHeight: 3,
			KernelWidth:  3,
			Padding:      []int{0, 0},
			Stride:       []int{1, 1},
			Dilation:     []int{1, 1},
		},
		&gan.Layer{
			Type:         gan.LayerMaxpool,
			Activation:   gan.NoActivation,
			KernelHeight: 2,
			KernelWidth:  2,
			Padding:      []int{0, 0},
			Stride:       []int{2, 2},
		},
		&gan.Layer{Type: gan.LayerFlatten, Activation: gan.NoActivation},
		&gan.Layer{WeightNode: dis_w1, BiasNode: dis_b1, Type: gan.LayerLinear, Activation: gan.LeakyRectify},
		&gan.Layer{WeightNode: dis_w2, BiasNode: dis_b2, Type: gan.LayerLinear, Activation: gan.Sigmoid},
	)
}
