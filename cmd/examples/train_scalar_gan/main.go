package main

import (
	"flag"
	"fmt"
	"time"

	gan "github.com/ganlab/ganlab"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Toy scenario: teach the generator to mimic Normal(mean=8, std=1) from
// standard normal noise with a 1-D latent space.

var (
	outputFolder = flag.String("out", "./output", "folder for charts")
	seed         = flag.Int64("seed", 1337, "random seed")
	batchSize    = flag.Int("batch", 100, "batch size")
	epochs       = flag.Int("epochs", 500, "number of epochs")
	dataLength   = flag.Int("data", 2000, "number of real samples")
	evalEvery    = flag.Int("eval", 500, "evaluate every N steps")

	latentSpaceSize = 1
	targetMean      = 8.0
	targetStdDev    = 1.0
)

func main() {
	flag.Parse()

	trainSet := gan.GenerateScalarSet(*dataLength, targetMean, targetStdDev, *seed)

	trainer, err := gan.NewAdversarialTrainer(defineGenerator, defineDiscriminator, gan.TrainerConfig{
		BatchSize: *batchSize,
		LatentDim: latentSpaceSize,
		RealShape: []int{1},
		RealLabel: 1.0,
		LearnRate: 0.001,
		Seed:      *seed,
	})
	if err != nil {
		panic(err)
	}
	defer trainer.Close()

	st := time.Now()
	err = trainer.Train(trainSet, *epochs, gan.TrainOptions{
		SampleWithReplacement: true,
		EvalEvery:             *evalEvery,
		OnEval: func(step int, t *gan.AdversarialTrainer) {
			fmt.Printf("Step %d:\n", step)
			fmt.Printf("\tDiscriminator's loss: %v\n", t.DiscriminatorHistory().Last())
			fmt.Printf("\tGenerator's loss: %v\n", t.GeneratorHistory().Last())
			fmt.Printf("\tTaken time: %v\n", time.Since(st))
			st = time.Now()
			samples, err := t.Sample(3)
			if err != nil {
				panic(err)
			}
			stats, err := gan.Stats(samples)
			if err != nil {
				panic(err)
			}
			fmt.Printf("\tGenerated mean=%.3f stddev=%.3f\n", stats.Mean, stats.StdDev)
		},
	})
	if err != nil {
		panic(err)
	}

	// Final check of the learned distribution
	samples, err := trainer.Sample(10)
	if err != nil {
		panic(err)
	}
	stats, err := gan.Stats(samples)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Final: mean=%.3f stddev=%.3f over %d samples (target mean=%.1f stddev=%.1f)\n",
		stats.Mean, stats.StdDev, stats.N, targetMean, targetStdDev)

	err = gan.PlotHistogram(samples, 40, "Generated samples", fmt.Sprintf("%s/generated_hist.png", *outputFolder))
	if err != nil {
		panic(err)
	}
	err = gan.PlotLossHistory(trainer.DiscriminatorHistory(), trainer.GeneratorHistory(), fmt.Sprintf("%s/loss_history.png", *outputFolder))
	if err != nil {
		panic(err)
	}
}

func defineGenerator(g *gorgonia.ExprGraph) *gan.GeneratorNet {
	gen_shp0 := tensor.Shape{16, latentSpaceSize}
	gen_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp0...), gorgonia.WithName("generator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp0[0]), gorgonia.WithName("generator_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp1 := tensor.Shape{16, 16}
	gen_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp1...), gorgonia.WithName("generator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp1[0]), gorgonia.WithName("generator_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp2 := tensor.Shape{1, 16}
	gen_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp2...), gorgonia.WithName("generator_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp2[0]), gorgonia.WithName("generator_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gan.Generator(
		&gan.Layer{WeightNode: gen_w0, BiasNode: gen_b0, Type: gan.LayerLinear, Activation: gan.Rectify},
		&gan.Layer{WeightNode: gen_w1, BiasNode: gen_b1, Type: gan.LayerLinear, Activation: gan.Rectify},
		&gan.Layer{WeightNode: gen_w2, BiasNode: gen_b2, Type: gan.LayerLinear, Activation: gan.NoActivation},
	)
}

func defineDiscriminator(g *gorgonia.ExprGraph) *gan.DiscriminatorNet {
	dis_shp0 := tensor.Shape{32, 1}
	dis_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp0...), gorgonia.WithName("discriminator_train_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp0[0]), gorgonia.WithName("discriminator_train_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	dis_shp1 := tensor.Shape{16, 32}
	dis_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp1...), gorgonia.WithName("discriminator_train_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp1[0]), gorgonia.WithName("discriminator_train_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	dis_shp2 := tensor.Shape{1, 16}
	dis_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp2...), gorgonia.WithName("discriminator_train_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp2[0]), gorgonia.WithName("discriminator_train_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gan.Discriminator(
		&gan.Layer{WeightNode: dis_w0, BiasNode: dis_b0, Type: gan.LayerLinear, Activation: gan.Rectify},
		&gan.Layer{WeightNode: dis_w1, BiasNode: dis_b1, Type: gan.LayerLinear, Activation: gan.Rectify},
		&gan.Layer{WeightNode: dis_w2, BiasNode: dis_b2, Type: gan.LayerLinear, Activation: gan.Sigmoid},
	)
}
