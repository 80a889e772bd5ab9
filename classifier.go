package ganlab

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ClassifierConfig Knobs of the supervised training loop.
type ClassifierConfig struct {
	BatchSize int
	// Shape of a single input sample, without the batch dimension.
	InputShape []int
	Classes    int
	LearnRate  float64
	Loss       LossFunc
	Solver     SolverKind
}

func (cfg *ClassifierConfig) validate() error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if len(cfg.InputShape) == 0 {
		return fmt.Errorf("input sample shape must be provided")
	}
	if cfg.Classes < 2 {
		return fmt.Errorf("number of classes must be at least 2, got %d", cfg.Classes)
	}
	if cfg.LearnRate == 0 {
		cfg.LearnRate = 0.001
	}
	if cfg.Loss == nil {
		cfg.Loss = CrossEntropyLoss
	}
	return nil
}

// NetworkBuilder Defines a network on the provided expression graph.
type NetworkBuilder func(g *gorgonia.ExprGraph) *Network

// ClassifierTrainer Supervised counterpart of AdversarialTrainer: single
// network, single graph, softmax cross-entropy by default.
type ClassifierTrainer struct {
	cfg ClassifierConfig
	net *Network

	input  *gorgonia.Node
	target *gorgonia.Node

	outVal  gorgonia.Value
	costVal gorgonia.Value

	vmForward gorgonia.VM
	vmTrain   gorgonia.VM
	solver    gorgonia.Solver

	history History
}

// NewClassifierTrainer Builds the evaluation graph for supervised training.
func NewClassifierTrainer(build NetworkBuilder, cfg ClassifierConfig) (*ClassifierTrainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := gorgonia.NewGraph()
	t := &ClassifierTrainer{cfg: cfg}
	t.net = build(g)

	inShape := append([]int{cfg.BatchSize}, cfg.InputShape...)
	t.input = gorgonia.NewTensor(g, gorgonia.Float64, len(inShape), gorgonia.WithShape(inShape...), gorgonia.WithName("classifier_input"))
	if err := t.net.Fwd(t.input, cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize classifier feedforward")
	}
	if !t.net.Out().Shape().Eq(tensor.Shape{cfg.BatchSize, cfg.Classes}) {
		return nil, fmt.Errorf("classifier must produce shape (%d, %d), but got %v", cfg.BatchSize, cfg.Classes, t.net.Out().Shape())
	}
	gorgonia.Read(t.net.Out(), &t.outVal)

	// Forward-only machine is compiled before the loss nodes exist, so
	// inference runs without a bound target.
	t.vmForward = gorgonia.NewTapeMachine(g)

	t.target = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(cfg.BatchSize, cfg.Classes), gorgonia.WithName("classifier_target"))
	cost, err := cfg.Loss(t.net.Out(), t.target)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define classifier loss")
	}
	gorgonia.WithName("classifier_loss")(cost)
	if _, err := gorgonia.Grad(cost, t.net.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define classifier gradients")
	}
	gorgonia.Read(cost, &t.costVal)

	t.vmTrain = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(t.net.Learnables()...))
	switch cfg.Solver {
	case SolverAdam:
		t.solver = gorgonia.NewAdamSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearnRate))
	case SolverVanilla:
		t.solver = gorgonia.NewVanillaSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearnRate))
	default:
		t.solver = gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearnRate))
	}
	return t, nil
}

// Step One solver step over a labeled batch. Targets are one-hot rows.
func (t *ClassifierTrainer) Step(batch, oneHotLabels *tensor.Dense) (float64, error) {
	wantIn := append([]int{t.cfg.BatchSize}, t.cfg.InputShape...)
	if batch == nil || !batch.Shape().Eq(tensor.Shape(wantIn)) {
		return 0, fmt.Errorf("batch must have shape %v", wantIn)
	}
	if oneHotLabels == nil || !oneHotLabels.Shape().Eq(tensor.Shape{t.cfg.BatchSize, t.cfg.Classes}) {
		return 0, fmt.Errorf("labels must have shape (%d, %d)", t.cfg.BatchSize, t.cfg.Classes)
	}
	if err := gorgonia.Let(t.input, batch); err != nil {
		return 0, errors.Wrap(err, "Can't bind batch to classifier input")
	}
	if err := gorgonia.Let(t.target, oneHotLabels); err != nil {
		return 0, errors.Wrap(err, "Can't bind labels to classifier target")
	}
	if err := t.vmTrain.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't evaluate classifier training graph")
	}
	if err := t.solver.Step(gorgonia.NodesToValueGrads(t.net.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't apply solver step to classifier")
	}
	t.vmTrain.Reset()
	loss, err := scalarFromValue(t.costVal)
	if err != nil {
		return 0, err
	}
	t.history.Append(loss)
	return loss, nil
}

// Predict Class probability rows for a batch of inputs.
func (t *ClassifierTrainer) Predict(batch *tensor.Dense) (*tensor.Dense, error) {
	wantIn := append([]int{t.cfg.BatchSize}, t.cfg.InputShape...)
	if batch == nil || !batch.Shape().Eq(tensor.Shape(wantIn)) {
		return nil, fmt.Errorf("batch must have shape %v", wantIn)
	}
	if err := gorgonia.Let(t.input, batch); err != nil {
		return nil, errors.Wrap(err, "Can't bind batch to classifier input")
	}
	if err := t.vmForward.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't evaluate classifier forward pass")
	}
	t.vmForward.Reset()
	out, ok := t.outVal.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("classifier output is not a dense tensor")
	}
	return out.Clone().(*tensor.Dense), nil
}

// Evaluate Top-1 accuracy over a labeled set. The trailing remainder that
// doesn't fill a whole batch is skipped.
func (t *ClassifierTrainer) Evaluate(set *TrainSet, labels []int) (float64, error) {
	if set == nil || set.DataLength != len(labels) {
		return 0, fmt.Errorf("labels must match the set length")
	}
	batches := set.DataLength / t.cfg.BatchSize
	if batches == 0 {
		return 0, fmt.Errorf("evaluation set must contain at least %d samples", t.cfg.BatchSize)
	}
	correct := 0
	total := 0
	for b := 0; b < batches; b++ {
		start := b * t.cfg.BatchSize
		batch, err := set.SliceBatch(start, start+t.cfg.BatchSize)
		if err != nil {
			return 0, err
		}
		probs, err := t.Predict(batch)
		if err != nil {
			return 0, err
		}
		rows, ok := probs.Data().([]float64)
		if !ok {
			return 0, fmt.Errorf("probabilities must be backed by []float64")
		}
		for i := 0; i < t.cfg.BatchSize; i++ {
			if argmaxRow(rows[i*t.cfg.Classes:(i+1)*t.cfg.Classes]) == labels[start+i] {
				correct++
			}
			total++
		}
	}
	return float64(correct) / float64(total), nil
}

// History Loss series, one value per step
func (t *ClassifierTrainer) History() *History {
	return &t.history
}

// Network Underlying network
func (t *ClassifierTrainer) Network() *Network {
	return t.net
}

// Close Releases tape machines
func (t *ClassifierTrainer) Close() error {
	if err := t.vmForward.Close(); err != nil {
		return err
	}
	return t.vmTrain.Close()
}

func argmaxRow(row []float64) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}
