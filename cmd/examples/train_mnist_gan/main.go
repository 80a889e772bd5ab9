package main

import (
	"flag"
	"fmt"
	"time"

	gan "github.com/ganlab/ganlab"
	"github.com/ganlab/ganlab/datasets/mnist"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GAN over flattened MNIST digits with a 10-D latent space. Real labels are
// smoothed to 0.9 here, the classic stabilization trick.

var (
	imagesPath   = flag.String("images", "./data/train-images-idx3-ubyte.gz", "path to IDX images file")
	labelsPath   = flag.String("labels", "./data/train-labels-idx1-ubyte.gz", "path to IDX labels file")
	outputFolder = flag.String("out", "./output", "folder for samples and weights")
	seed         = flag.Int64("seed", 1337, "random seed")
	batchSize    = flag.Int("batch", 64, "batch size")
	epochs       = flag.Int("epochs", 30, "number of epochs")
	evalEvery    = flag.Int("eval", 1000, "evaluate every N steps")

	latentSpaceSize = 10
	imgPixels       = mnist.ImgSize * mnist.ImgSize
)

func main() {
	flag.Parse()

	split, err := mnist.Load(*imagesPath, *labelsPath)
	if err != nil {
		panic(err)
	}
	flat, err := split.Flat()
	if err != nil {
		panic(err)
	}
	trainSet := &gan.TrainSet{TrainData: flat, DataLength: split.N}
	fmt.Printf("Loaded %d digits\n", split.N)

	trainer, err := gan.NewAdversarialTrainer(defineGenerator, defineDiscriminator, gan.TrainerConfig{
		BatchSize: *batchSize,
		LatentDim: latentSpaceSize,
		RealShape: []int{imgPixels},
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
		EvalEvery:             *evalEvery,
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
			err = gan.SaveImageGrid(samples, mnist.ImgSize, mnist.ImgSize, 8, fmt.Sprintf("%s/digits_%d.png", *outputFolder, step))
			if err != nil {
				panic(err)
			}
		},
	})
	if err != nil {
		panic(err)
	}

	samples, err := trainer.Sample(1)
	if err != nil {
		panic(err)
	}
	err = gan.SaveImageGrid(samples, mnist.ImgSize, mnist.ImgSize, 8, fmt.Sprintf("%s/digits_final.png", *outputFolder))
	if err != nil {
		panic(err)
	}
	err = gan.SaveWeights(trainer.Generator(), fmt.Sprintf("%s/generator.gob", *outputFolder))
	if err != nil {
		panic(err)
	}
	err = gan.SaveWeights(trainer.Discriminator(), fmt.Sprintf("%s/discriminator.gob", *outputFolder))
	if err != nil {
		panic(err)
	}
	fmt.Println("Weights saved")
}

func defineGenerator(g *gorgonia.ExprGraph) *gan.GeneratorNet {
	gen_shp0 := tensor.Shape{128, latentSpaceSize}
	gen_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp0...), gorgonia.WithName("generator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp0[0]), gorgonia.WithName("generator_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp1 := tensor.Shape{256, 128}
	gen_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp1...), gorgonia.WithName("generator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp1[0]), gorgonia.WithName("generator_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp2 := tensor.Shape{imgPixels, 256}
	gen_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp2...), gorgonia.WithName("generator_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp2[0]), gorgonia.WithName("generator_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gan.Generator(
		&gan.Layer{WeightNode: gen_w0, BiasNode: gen_b0, Type: gan.LayerLinear, Activation: gan.LeakyRectify},
		&gan.Layer{WeightNode: gen_w1, BiasNode: gen_b1, Type: gan.LayerLinear, Activation: gan.LeakyRectify},
		&gan.Layer{WeightNode: gen_w2, BiasNode: gen_b2, Type: gan.LayerLinear, Activation: gan.Sigmoid},
	)
}

func defineDiscriminator(g *gorgonia.ExprGraph) *gan.DiscriminatorNet {
	dis_shp0 := tensor.Shape{256, imgPixels}
	dis_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp0...), gorgonia.WithName("discriminator_train_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp0[0]), gorgonia.WithName("discriminator_train_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	dis_shp1 := tensor.Shape{128, 256}
	dis_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp1...), gorgonia.WithName("discriminator_train_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp1[0]), gorgonia.WithName("discriminator_train_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	dis_shp2 := tensor.Shape{1, 128}
	dis_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp2...), gorgonia.WithName("discriminator_train_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp2[0]), gorgonia.WithName("discriminator_train_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gan.Discriminator(
		&gan.Layer{WeightNode: dis_w0, BiasNode: dis_b0, Type: gan.LayerLinear, Activation: gan.LeakyRectify},
		&gan.Layer{Type: gan.LayerDropout, Probability: 0.3, Activation: gan.NoActivation},
		&gan.Layer{WeightNode: dis_w1, BiasNode: dis_b1, Type: gan.LayerLinear, Activation: gan.LeakyRectify},
		&gan.Layer{Type: gan.LayerDropout, Probability: 0.3, Activation: gan.NoActivation},
		&gan.Layer{WeightNode: dis_w2, BiasNode: dis_b2, Type: gan.LayerLinear, Activation: gan.Sigmoid},
	)
}
