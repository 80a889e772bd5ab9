package ganlab

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer Weight+Bias+ActivationFunction combo with op-specific geometry
type Layer struct {
	WeightNode *gorgonia.Node
	BiasNode   *gorgonia.Node
	Activation ActivationFunc
	Type       LayerType

	KernelHeight int
	KernelWidth  int
	Padding      []int
	Stride       []int
	Dilation     []int
	ReshapeDims  []int
	Probability  float64
}

type LayerType uint16

const (
	LayerLinear = LayerType(iota)
	LayerFlatten
	LayerConvolutional
	LayerMaxpool
	LayerReshape
	LayerDropout
)

var (
	allowedNoWeights = []LayerType{LayerMaxpool, LayerFlatten, LayerReshape, LayerDropout}
)

func noWeightsAllowed(checkType LayerType) bool {
	return checkLayerType(checkType, allowedNoWeights...)
}

func checkLayerType(checkType LayerType, t ...LayerType) bool {
	for _, typeOf := range t {
		if checkType == typeOf {
			return true
		}
	}
	return false
}

// Fwd Feedforwards input node through the layer. Activation is NOT applied here.
//
// batchSize - batch size. If it's >= 2 then broadcast function will be applied for bias node
// input - Input node
//
func (layer *Layer) Fwd(batchSize int, input *gorgonia.Node) (*gorgonia.Node, error) {
	if layer.WeightNode == nil && !noWeightsAllowed(layer.Type) {
		return nil, fmt.Errorf("Layer of type '%d' must have non-nil weight node", layer.Type)
	}
	nonActivated := &gorgonia.Node{}
	var err error
	switch layer.Type {
	case LayerLinear:
		tOp, err := gorgonia.Transpose(layer.WeightNode)
		if err != nil {
			return nil, errors.Wrap(err, "Can't transpose weights")
		}
		if batchSize < 2 {
			nonActivated, err = gorgonia.Mul(input, tOp)
			if err != nil {
				return nil, errors.Wrap(err, "Can't multiply input and weights")
			}
		} else {
			nonActivated, err = gorgonia.BatchedMatMul(input, tOp)
			if err != nil {
				return nil, errors.Wrap(err, "Can't multiply input and weights [batched]")
			}
		}
	case LayerConvolutional:
		nonActivated, err = gorgonia.Conv2d(input, layer.WeightNode, tensor.Shape{layer.KernelHeight, layer.KernelWidth}, layer.Padding, layer.Stride, layer.Dilation)
		if err != nil {
			return nil, errors.Wrap(err, "Can't convolve[2D] input by kernel")
		}
	case LayerMaxpool:
		nonActivated, err = gorgonia.MaxPool2D(input, tensor.Shape{layer.KernelHeight, layer.KernelWidth}, layer.Padding, layer.Stride)
		if err != nil {
			return nil, errors.Wrap(err, "Can't maxpool[2D] input by kernel")
		}
	case LayerFlatten:
		nonActivated, err = gorgonia.Reshape(input, tensor.Shape{batchSize, input.Shape().TotalSize() / batchSize})
		if err != nil {
			return nil, errors.Wrap(err, "Can't flatten input")
		}
	case LayerReshape:
		nonActivated, err = gorgonia.Reshape(input, layer.ReshapeDims)
		if err != nil {
			return nil, errors.Wrap(err, "Can't reshape input")
		}
	case LayerDropout:
		nonActivated, err = gorgonia.Dropout(input, layer.Probability)
		if err != nil {
			return nil, errors.Wrap(err, "Can't apply dropout to input")
		}
	default:
		return nil, fmt.Errorf("Layer type '%d' (uint16) is not handled", layer.Type)
	}
	if layer.BiasNode != nil {
		if batchSize < 2 {
			nonActivated, err = gorgonia.Add(nonActivated, layer.BiasNode)
			if err != nil {
				return nil, errors.Wrap(err, "Can't add bias to non-activated output")
			}
		} else {
			nonActivated, err = gorgonia.BroadcastAdd(nonActivated, layer.BiasNode, nil, []byte{0})
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("Can't add bias [in broadcast term with batch_size = %d] to non-activated output", batchSize))
			}
		}
	}
	return nonActivated, nil
}

// clone Copies layer structure onto the same graph. Weight and bias nodes are
// re-created with SHARED backing values, so solver updates to the source layer
// are visible through the clone.
func (layer *Layer) clone(g *gorgonia.ExprGraph, suffix string) (*Layer, error) {
	cloned := &Layer{
		Activation:   layer.Activation,
		Type:         layer.Type,
		KernelHeight: layer.KernelHeight,
		KernelWidth:  layer.KernelWidth,
		Padding:      layer.Padding,
		Stride:       layer.Stride,
		Dilation:     layer.Dilation,
		ReshapeDims:  layer.ReshapeDims,
		Probability:  layer.Probability,
	}
	if layer.WeightNode == nil && !noWeightsAllowed(layer.Type) {
		return nil, fmt.Errorf("Layer of type '%d' has nil weight node", layer.Type)
	}
	if layer.WeightNode != nil {
		cloned.WeightNode = gorgonia.NewTensor(g, gorgonia.Float64, layer.WeightNode.Dims(), gorgonia.WithShape(layer.WeightNode.Shape()...), gorgonia.WithName(layer.WeightNode.Name()+suffix), gorgonia.WithValue(layer.WeightNode.Value()))
	}
	if layer.BiasNode != nil {
		cloned.BiasNode = gorgonia.NewTensor(g, gorgonia.Float64, layer.BiasNode.Dims(), gorgonia.WithShape(layer.BiasNode.Shape()...), gorgonia.WithName(layer.BiasNode.Name()+suffix), gorgonia.WithValue(layer.BiasNode.Value()))
	}
	return cloned, nil
}
