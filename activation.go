package ganlab

import (
	"gorgonia.org/gorgonia"
)

// ActivationFunc Just an alias to Gorgonia'a api_gen.go - https://github.com/gorgonia/gorgonia/blob/master/api_gen.go#L1
type ActivationFunc func(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)

func NoActivation(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) { return a, nil }
func Abs(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)          { return gorgonia.Abs(a) }
func Sign(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)         { return gorgonia.Sign(a) }
func Sin(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)          { return gorgonia.Sin(a) }
func Cos(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)          { return gorgonia.Cos(a) }
func Exp(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)          { return gorgonia.Exp(a) }
func Log(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)          { return gorgonia.Log(a) }
func Neg(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)          { return gorgonia.Neg(a) }
func Square(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)       { return gorgonia.Square(a) }
func Sqrt(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)         { return gorgonia.Sqrt(a) }
func Tanh(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)         { return gorgonia.Tanh(a) }
func Sigmoid(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)      { return gorgonia.Sigmoid(a) }
func Softplus(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)     { return gorgonia.Softplus(a) }
func Rectify(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)      { return gorgonia.Rectify(a) }

func Softmax(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) {
	for i := range opts {
		// First i-th option with provided field 'Axis' would be considered for use.
		if len(opts[i].Axis) > 0 {
			return gorgonia.SoftMax(a, opts[i].Axis...)
		}
	}
	return gorgonia.SoftMax(a)
}

// LeakyRectify Leaky ReLU. Negative slope is taken from the first option
// carrying a non-zero Alpha; defaults to 0.01.
func LeakyRectify(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) {
	alpha := 0.01
	for i := range opts {
		if opts[i].Alpha != 0 {
			alpha = opts[i].Alpha
			break
		}
	}
	return gorgonia.LeakyRelu(a, alpha)
}

// Options Struct for holding options for certain activation functions.
type Options struct {
	Axis  []int
	Alpha float64
}
