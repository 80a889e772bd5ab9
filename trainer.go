package ganlab

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// SolverKind Gradient descent flavour used for both networks.
type SolverKind uint16

const (
	SolverRMSProp = SolverKind(iota)
	SolverAdam
	SolverVanilla
)

// TrainerConfig Knobs of the adversarial training loop.
//
// RealLabel is the target assigned to real samples when the discriminator is
// trained: 1.0 plain, 0.9 for one-sided label smoothing. It is an explicit
// parameter, never inferred. The generator's target stays all-ones either way.
type TrainerConfig struct {
	BatchSize int
	LatentDim int
	// Shape of a single real sample, without the batch dimension.
	RealShape []int
	RealLabel float64
	LearnRate float64
	Loss      LossFunc
	Solver    SolverKind
	Seed      int64
}

func (cfg *TrainerConfig) validate() error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.LatentDim <= 0 {
		return fmt.Errorf("latent dimensionality must be positive, got %d", cfg.LatentDim)
	}
	if len(cfg.RealShape) == 0 {
		return fmt.Errorf("real sample shape must be provided")
	}
	if cfg.RealLabel == 0 {
		cfg.RealLabel = 1.0
	}
	if cfg.RealLabel < 0 || cfg.RealLabel > 1 {
		return fmt.Errorf("real label must lie in [0;1], got %f", cfg.RealLabel)
	}
	if cfg.LearnRate == 0 {
		cfg.LearnRate = 0.001
	}
	if cfg.Loss == nil {
		cfg.Loss = BinaryCrossEntropyLoss
	}
	return nil
}

func (cfg *TrainerConfig) newSolver() gorgonia.Solver {
	switch cfg.Solver {
	case SolverAdam:
		return gorgonia.NewAdamSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearnRate))
	case SolverVanilla:
		return gorgonia.NewVanillaSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearnRate))
	default:
		return gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearnRate))
	}
}

// StepResult Losses recorded by one full adversarial step.
type StepResult struct {
	DiscriminatorLoss float64
	GeneratorLoss     float64
}

// GeneratorBuilder Defines a generator on the provided expression graph.
type GeneratorBuilder func(g *gorgonia.ExprGraph) *GeneratorNet

// DiscriminatorBuilder Defines a discriminator on the provided expression graph.
type DiscriminatorBuilder func(g *gorgonia.ExprGraph) *DiscriminatorNet

// AdversarialTrainer Alternates discriminator and generator updates with
// opposing objectives. The only state machine here: each Step runs exactly
// two sub-steps, discriminator strictly first, since the generator's gradient
// depends on the discriminator's current decision boundary.
//
// Execution is single-threaded and blocking; a step fully completes before
// the next begins. Divergence is not detected or recovered, it is only
// observable through the loss histories.
type AdversarialTrainer struct {
	cfg TrainerConfig

	generator     *GeneratorNet
	discriminator *DiscriminatorNet
	composed      *GAN

	inputGenerator     *gorgonia.Node
	inputDiscriminator *gorgonia.Node
	targetGenerator    *gorgonia.Node
	targetDiscrim      *gorgonia.Node

	generatedVal gorgonia.Value
	costGenVal   gorgonia.Value
	costDiscVal  gorgonia.Value

	// vmForward evaluates the composed graph built before loss nodes were
	// attached, so it can run without target values bound.
	vmForward gorgonia.VM
	vmGen     gorgonia.VM
	vmDisc    gorgonia.VM

	solverGen  gorgonia.Solver
	solverDisc gorgonia.Solver

	noise *NoiseSource

	historyDisc History
	historyGen  History
	steps       int
}

// NewAdversarialTrainer Builds both evaluation graphs, the composed model and
// all machinery needed to run adversarial steps.
func NewAdversarialTrainer(buildGenerator GeneratorBuilder, buildDiscriminator DiscriminatorBuilder, cfg TrainerConfig) (*AdversarialTrainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ganGraph := gorgonia.NewGraph()
	discGraph := gorgonia.NewGraph()

	t := &AdversarialTrainer{
		cfg:   cfg,
		noise: NewNoiseSource(cfg.Seed),
	}

	// Generator lives on the GAN evaluation graph
	t.generator = buildGenerator(ganGraph)
	t.inputGenerator = gorgonia.NewMatrix(ganGraph, gorgonia.Float64, gorgonia.WithShape(cfg.BatchSize, cfg.LatentDim), gorgonia.WithName("generator_input"))
	if err := t.generator.Fwd(t.inputGenerator, cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Generator feedforward")
	}
	wantShape := append([]int{cfg.BatchSize}, cfg.RealShape...)
	if !t.generator.Out().Shape().Eq(tensor.Shape(wantShape)) {
		return nil, fmt.Errorf("Generator produces shape %v, but real samples have shape %v", t.generator.Out().Shape(), wantShape)
	}

	// Discriminator lives on its own graph and consumes the concatenated
	// real+synthetic batch, hence 2*batchSize
	t.discriminator = buildDiscriminator(discGraph)
	discInShape := append([]int{2 * cfg.BatchSize}, cfg.RealShape...)
	t.inputDiscriminator = gorgonia.NewTensor(discGraph, gorgonia.Float64, len(discInShape), gorgonia.WithShape(discInShape...), gorgonia.WithName("discriminator_train_input"))
	if err := t.discriminator.Fwd(t.inputDiscriminator, 2*cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Discriminator feedforward")
	}
	if !t.discriminator.Out().Shape().Eq(tensor.Shape{2 * cfg.BatchSize, 1}) {
		return nil, fmt.Errorf("Discriminator must produce shape (%d, 1), but got %v", 2*cfg.BatchSize, t.discriminator.Out().Shape())
	}

	composed, err := NewGAN(ganGraph, t.generator, t.discriminator)
	if err != nil {
		return nil, errors.Wrap(err, "Can't compose Discriminator over Generator")
	}
	t.composed = composed
	if err := t.composed.Fwd(cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize composed model feedforward")
	}

	gorgonia.Read(t.composed.GeneratorOut(), &t.generatedVal)

	// Forward-only machine must be compiled before loss nodes are attached
	// to the GAN graph: it then runs without any target value bound.
	t.vmForward = gorgonia.NewTapeMachine(ganGraph)

	// Generator objective: push discriminator's verdict on synthetic samples
	// towards all-ones
	t.targetGenerator = gorgonia.NewMatrix(ganGraph, gorgonia.Float64, gorgonia.WithShape(cfg.BatchSize, 1), gorgonia.WithName("gan_discriminator_target"))
	costGen, err := cfg.Loss(t.composed.Out(), t.targetGenerator)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define loss for composed model")
	}
	gorgonia.WithName("gan_discriminator_loss")(costGen)
	if _, err := gorgonia.Grad(costGen, t.composed.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for composed model")
	}
	gorgonia.Read(costGen, &t.costGenVal)

	// Discriminator objective: classify the concatenated batch
	t.targetDiscrim = gorgonia.NewMatrix(discGraph, gorgonia.Float64, gorgonia.WithShape(2*cfg.BatchSize, 1), gorgonia.WithName("discriminator_target"))
	costDisc, err := cfg.Loss(t.discriminator.Out(), t.targetDiscrim)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define loss for Discriminator")
	}
	gorgonia.WithName("discriminator_loss")(costDisc)
	if _, err := gorgonia.Grad(costDisc, t.discriminator.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for Discriminator")
	}
	gorgonia.Read(costDisc, &t.costDiscVal)

	t.vmGen = gorgonia.NewTapeMachine(ganGraph, gorgonia.BindDualValues(t.composed.Learnables()...))
	t.vmDisc = gorgonia.NewTapeMachine(discGraph, gorgonia.BindDualValues(t.discriminator.Learnables()...))
	t.solverGen = cfg.newSolver()
	t.solverDisc = cfg.newSolver()
	return t, nil
}

// Step Runs one full adversarial step over the provided real batch and
// records exactly two loss values: discriminator's first, generator's second.
func (t *AdversarialTrainer) Step(realBatch *tensor.Dense) (StepResult, error) {
	if err := t.checkRealBatch(realBatch); err != nil {
		return StepResult{}, err
	}
	discLoss, err := t.stepDiscriminator(realBatch)
	if err != nil {
		return StepResult{}, errors.Wrap(err, "discriminator update failed")
	}
	genLoss, err := t.stepGenerator()
	if err != nil {
		return StepResult{}, errors.Wrap(err, "generator update failed")
	}
	// Histories stay aligned: a step that fails half-way records nothing.
	t.historyDisc.Append(discLoss)
	t.historyGen.Append(genLoss)
	t.steps++
	return StepResult{DiscriminatorLoss: discLoss, GeneratorLoss: genLoss}, nil
}

func (t *AdversarialTrainer) checkRealBatch(realBatch *tensor.Dense) error {
	want := append([]int{t.cfg.BatchSize}, t.cfg.RealShape...)
	if realBatch == nil || !realBatch.Shape().Eq(tensor.Shape(want)) {
		got := tensor.Shape(nil)
		if realBatch != nil {
			got = realBatch.Shape()
		}
		return fmt.Errorf("real batch must have shape %v, got %v", want, got)
	}
	return nil
}

// stepDiscriminator Phase one: draw a latent batch, produce synthetic samples
// with the generator (no gradient flows back from this evaluation), build the
// concatenated labeled batch and make one solver step on the discriminator's
// learnables only.
func (t *AdversarialTrainer) stepDiscriminator(realBatch *tensor.Dense) (float64, error) {
	latent := t.noise.NormBatch(t.cfg.BatchSize, t.cfg.LatentDim)
	if err := gorgonia.Let(t.inputGenerator, latent); err != nil {
		return 0, errors.Wrap(err, "Can't bind latent batch to Generator input")
	}
	if err := t.vmForward.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't evaluate Generator forward pass")
	}
	t.vmForward.Reset()
	synthetic, ok := t.generatedVal.(tensor.Tensor)
	if !ok {
		return 0, fmt.Errorf("generator output is not a tensor")
	}

	allSamples, err := tensor.Concat(0, realBatch, synthetic)
	if err != nil {
		return 0, errors.Wrap(err, "Can't concatenate real and synthetic batches")
	}
	allLabels := t.discriminatorTargets()

	if err := gorgonia.Let(t.inputDiscriminator, allSamples); err != nil {
		return 0, errors.Wrap(err, "Can't bind concatenated batch to Discriminator input")
	}
	if err := gorgonia.Let(t.targetDiscrim, allLabels); err != nil {
		return 0, errors.Wrap(err, "Can't bind labels to Discriminator target")
	}
	if err := t.vmDisc.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't evaluate Discriminator training graph")
	}
	if err := t.solverDisc.Step(gorgonia.NodesToValueGrads(t.discriminator.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't apply solver step to Discriminator")
	}
	t.vmDisc.Reset()
	return scalarFromValue(t.costDiscVal)
}

// stepGenerator Phase two: fresh latent batch, all-ones targets, one solver
// step through the composed model touching generator learnables only.
func (t *AdversarialTrainer) stepGenerator() (float64, error) {
	latent := t.noise.NormBatch(t.cfg.BatchSize, t.cfg.LatentDim)
	if err := gorgonia.Let(t.inputGenerator, latent); err != nil {
		return 0, errors.Wrap(err, "Can't bind latent batch to Generator input")
	}
	if err := gorgonia.Let(t.targetGenerator, tensor.Ones(tensor.Float64, t.cfg.BatchSize, 1)); err != nil {
		return 0, errors.Wrap(err, "Can't bind all-ones target to composed model")
	}
	if err := t.vmGen.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't evaluate composed model training graph")
	}
	if err := t.solverGen.Step(gorgonia.NodesToValueGrads(t.composed.GeneratorLearnables())); err != nil {
		return 0, errors.Wrap(err, "Can't apply solver step to Generator")
	}
	t.vmGen.Reset()
	return scalarFromValue(t.costGenVal)
}

// discriminatorTargets Labels for the concatenated batch: first half real
// (RealLabel), second half synthetic (zero).
func (t *AdversarialTrainer) discriminatorTargets() *tensor.Dense {
	data := make([]float64, 2*t.cfg.BatchSize)
	for i := 0; i < t.cfg.BatchSize; i++ {
		data[i] = t.cfg.RealLabel
	}
	return tensor.New(tensor.WithShape(2*t.cfg.BatchSize, 1), tensor.WithBacking(data))
}

// TrainOptions Knobs of the epoch loop.
type TrainOptions struct {
	// Draw batches uniformly with replacement instead of sequential slices.
	SampleWithReplacement bool
	// Invoke OnEval every EvalEvery steps (0 disables). Purely observational.
	EvalEvery int
	OnEval    func(step int, trainer *AdversarialTrainer)
	// OnStep fires after every step, e.g. for run logging.
	OnStep func(step int, res StepResult)
}

// Train Runs epochs*floor(DataLength/BatchSize) adversarial steps over the
// provided train set. Termination is fixed-count only, never adaptive.
func (t *AdversarialTrainer) Train(set *TrainSet, epochs int, opts TrainOptions) error {
	if set == nil || set.DataLength < t.cfg.BatchSize {
		return fmt.Errorf("train set must contain at least %d samples", t.cfg.BatchSize)
	}
	batches := set.DataLength / t.cfg.BatchSize
	var sampler *BatchSampler
	if opts.SampleWithReplacement {
		var err error
		sampler, err = NewBatchSampler(set, t.cfg.Seed+1)
		if err != nil {
			return err
		}
	}
	for epoch := 0; epoch < epochs; epoch++ {
		for b := 0; b < batches; b++ {
			var realBatch *tensor.Dense
			var err error
			if sampler != nil {
				realBatch, err = sampler.Sample(t.cfg.BatchSize)
			} else {
				start := b * t.cfg.BatchSize
				realBatch, err = set.SliceBatch(start, start+t.cfg.BatchSize)
			}
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("Can't prepare real batch #%d of epoch #%d", b, epoch))
			}
			res, err := t.Step(realBatch)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("Step failed at batch #%d of epoch #%d", b, epoch))
			}
			if opts.OnStep != nil {
				opts.OnStep(t.steps, res)
			}
			if opts.EvalEvery > 0 && opts.OnEval != nil && t.steps%opts.EvalEvery == 0 {
				opts.OnEval(t.steps, t)
			}
		}
	}
	return nil
}

// Sample Draws numBatches batches from the generator and stacks them into a
// single dense tensor of (numBatches*BatchSize) samples.
func (t *AdversarialTrainer) Sample(numBatches int) (*tensor.Dense, error) {
	if numBatches <= 0 {
		return nil, fmt.Errorf("number of batches must be positive, got %d", numBatches)
	}
	var stacked *tensor.Dense
	for i := 0; i < numBatches; i++ {
		latent := t.noise.NormBatch(t.cfg.BatchSize, t.cfg.LatentDim)
		if err := gorgonia.Let(t.inputGenerator, latent); err != nil {
			return nil, errors.Wrap(err, "Can't bind latent batch to Generator input")
		}
		if err := t.vmForward.RunAll(); err != nil {
			return nil, errors.Wrap(err, "Can't evaluate Generator forward pass")
		}
		t.vmForward.Reset()
		batchOut, ok := t.generatedVal.(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("generator output is not a dense tensor")
		}
		if stacked == nil {
			cloned := batchOut.Clone().(*tensor.Dense)
			stacked = cloned
			continue
		}
		next, err := stacked.Vstack(batchOut)
		if err != nil {
			return nil, errors.Wrap(err, "Can't stack generated batches")
		}
		stacked = next
	}
	return stacked, nil
}

// Classify Runs the discriminator over a batch of samples. The batch must
// match the discriminator's training input shape, i.e. carry 2*BatchSize
// samples (concatenate a batch with itself if needed).
func (t *AdversarialTrainer) Classify(batch *tensor.Dense) (*tensor.Dense, error) {
	want := append([]int{2 * t.cfg.BatchSize}, t.cfg.RealShape...)
	if batch == nil || !batch.Shape().Eq(tensor.Shape(want)) {
		return nil, fmt.Errorf("batch for classification must have shape %v", want)
	}
	if err := gorgonia.Let(t.inputDiscriminator, batch); err != nil {
		return nil, errors.Wrap(err, "Can't bind batch to Discriminator input")
	}
	// Target participates in the loss nodes only; verdicts don't depend on it.
	if err := gorgonia.Let(t.targetDiscrim, tensor.Ones(tensor.Float64, 2*t.cfg.BatchSize, 1)); err != nil {
		return nil, errors.Wrap(err, "Can't bind placeholder target")
	}
	if err := t.vmDisc.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't evaluate Discriminator graph")
	}
	t.vmDisc.Reset()
	out, ok := t.discriminator.Out().Value().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("discriminator output is not a dense tensor")
	}
	return out.Clone().(*tensor.Dense), nil
}

// Steps Number of completed adversarial steps
func (t *AdversarialTrainer) Steps() int {
	return t.steps
}

// DiscriminatorHistory Loss series of the discriminator, one value per step
func (t *AdversarialTrainer) DiscriminatorHistory() *History {
	return &t.historyDisc
}

// GeneratorHistory Loss series of the generator, one value per step
func (t *AdversarialTrainer) GeneratorHistory() *History {
	return &t.historyGen
}

// Generator Underlying generator network
func (t *AdversarialTrainer) Generator() *GeneratorNet {
	return t.generator
}

// Discriminator Underlying discriminator network
func (t *AdversarialTrainer) Discriminator() *DiscriminatorNet {
	return t.discriminator
}

// Close Releases tape machines
func (t *AdversarialTrainer) Close() error {
	if err := t.vmForward.Close(); err != nil {
		return err
	}
	if err := t.vmGen.Close(); err != nil {
		return err
	}
	return t.vmDisc.Close()
}

func scalarFromValue(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("no value has been recorded")
	}
	switch data := v.Data().(type) {
	case float64:
		return data, nil
	case []float64:
		if len(data) == 0 {
			return 0, fmt.Errorf("empty value")
		}
		return data[0], nil
	default:
		return 0, fmt.Errorf("unsupported value payload %T", data)
	}
}
