package ganlab

import (
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// LeNet Classic convolutional classifier for (batch, 1, 28, 28) input:
// conv(6@5x5, pad 2) -> maxpool(2x2) -> conv(16@5x5) -> maxpool(2x2) ->
// flatten -> dense(120) -> dense(84) -> dense(classes) with softmax head.
func LeNet(g *gorgonia.ExprGraph, classes int) *Network {
	conv1 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(6, 1, 5, 5), gorgonia.WithName("lenet_conv1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	conv2 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(16, 6, 5, 5), gorgonia.WithName("lenet_conv2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	// After conv/pool stack the 28x28 plane shrinks to 16 maps of 5x5
	fc1w := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(120, 16*5*5), gorgonia.WithName("lenet_fc1_w"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	fc1b := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 120), gorgonia.WithName("lenet_fc1_b"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	fc2w := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(84, 120), gorgonia.WithName("lenet_fc2_w"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	fc2b := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 84), gorgonia.WithName("lenet_fc2_b"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	fc3w := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(classes, 84), gorgonia.WithName("lenet_fc3_w"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	fc3b := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, classes), gorgonia.WithName("lenet_fc3_b"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return &Network{
		Name: "lenet",
		Layers: []*Layer{
			{
				WeightNode:   conv1,
				Type:         LayerConvolutional,
				Activation:   Rectify,
				KernelHeight: 5,
				KernelWidth:  5,
				Padding:      []int{2, 2},
				Stride:       []int{1, 1},
				Dilation:     []int{1, 1},
			},
			{
				Type:         LayerMaxpool,
				Activation:   NoActivation,
				KernelHeight: 2,
				KernelWidth:  2,
				Padding:      []int{0, 0},
				Stride:       []int{2, 2},
			},
			{
				WeightNode:   conv2,
				Type:         LayerConvolutional,
				Activation:   Rectify,
				KernelHeight: 5,
				KernelWidth:  5,
				Padding:      []int{0, 0},
				Stride:       []int{1, 1},
				Dilation:     []int{1, 1},
			},
			{
				Type:         LayerMaxpool,
				Activation:   NoActivation,
				KernelHeight: 2,
				KernelWidth:  2,
				Padding:      []int{0, 0},
				Stride:       []int{2, 2},
			},
			{
				Type:       LayerFlatten,
				Activation: NoActivation,
			},
			{
				WeightNode: fc1w,
				BiasNode:   fc1b,
				Type:       LayerLinear,
				Activation: Rectify,
			},
			{
				WeightNode: fc2w,
				BiasNode:   fc2b,
				Type:       LayerLinear,
				Activation: Rectify,
			},
			{
				WeightNode: fc3w,
				BiasNode:   fc3b,
				Type:       LayerLinear,
				Activation: func(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) {
					return Softmax(a, Options{Axis: []int{1}})
				},
			},
		},
	}
}

// LeNetInputShape Single-sample input shape LeNet expects
func LeNetInputShape() tensor.Shape {
	return tensor.Shape{1, 28, 28}
}
