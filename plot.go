package ganlab

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

// Visualization sinks. All of them are purely observational: safe to skip in
// headless runs, no bearing on training correctness.

// PlotXY Plot chart for input y(x)
func PlotXY(x, y tensor.Tensor, fname string) error {
	if x.Dims() != 1 {
		return fmt.Errorf("X must have one dimension, but got %d", x.Dims())
	}
	if y.Dims() != 1 {
		return fmt.Errorf("Y(X) must have one dimension, but got %d", y.Dims())
	}
	if x.DataSize() != y.DataSize() {
		return fmt.Errorf("X and Y(X) must have same number of elements, but X has %d elements and Y(X) has %d elements", x.DataSize(), y.DataSize())
	}
	scatterData := make(plotter.XYs, x.DataSize())
	for i := 0; i < x.DataSize(); i++ {
		xval, err := x.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select X-value")
		}
		yval, err := y.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select Y(x)-value")
		}
		scatterData[i].X = xval.(float64)
		scatterData[i].Y = yval.(float64)
	}
	scatter, err := plotter.NewScatter(scatterData)
	if err != nil {
		return errors.Wrap(err, "Can't init new scatter")
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	p := plot.New()
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())
	p.Add(scatter)
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// PlotHistogram Renders the empirical distribution of all elements of the
// provided tensor into a PNG histogram.
func PlotHistogram(t *tensor.Dense, bins int, title, fname string) error {
	data, ok := t.Data().([]float64)
	if !ok || len(data) == 0 {
		return fmt.Errorf("tensor must be backed by non-empty []float64")
	}
	values := make(plotter.Values, len(data))
	copy(values, data)
	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return errors.Wrap(err, "Can't init new histogram")
	}
	hist.Normalize(1)
	p := plot.New()
	p.Title.Text = title
	p.Add(plotter.NewGrid())
	p.Add(hist)
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// PlotLossHistory Renders discriminator and generator loss series on one chart.
func PlotLossHistory(disc, gen *History, fname string) error {
	p := plot.New()
	p.Title.Text = "Training loss"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())
	for _, series := range []struct {
		name   string
		values []float64
		clr    color.RGBA
	}{
		{"discriminator", disc.Values(), color.RGBA{R: 255, A: 255}},
		{"generator", gen.Values(), color.RGBA{B: 255, A: 255}},
	} {
		pts := make(plotter.XYs, len(series.values))
		for i, v := range series.values {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrap(err, "Can't init new line")
		}
		line.Color = series.clr
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// SaveImageGrid Writes a batch of single-channel image samples as one PNG
// grid. Accepts (N, H*W) or (N, C, H, W) tensors with C=1; values are
// clamped to [0;1] and mapped to 8-bit gray.
func SaveImageGrid(samples *tensor.Dense, height, width, columns int, fname string) error {
	data, ok := samples.Data().([]float64)
	if !ok {
		return fmt.Errorf("samples must be backed by []float64")
	}
	pixels := height * width
	if pixels == 0 || len(data)%pixels != 0 {
		return fmt.Errorf("samples size %d is not a multiple of %dx%d", len(data), height, width)
	}
	n := len(data) / pixels
	if columns <= 0 {
		columns = 1
	}
	rows := (n + columns - 1) / columns
	const pad = 2
	img := image.NewGray(image.Rect(0, 0, columns*(width+pad)+pad, rows*(height+pad)+pad))
	for i := 0; i < n; i++ {
		offsetX := pad + (i%columns)*(width+pad)
		offsetY := pad + (i/columns)*(height+pad)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := data[i*pixels+y*width+x]
				if v < 0 {
					v = 0
				}
				if v > 1 {
					v = 1
				}
				img.SetGray(offsetX+x, offsetY+y, color.Gray{Y: uint8(v * 255)})
			}
		}
	}
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create image file")
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return errors.Wrap(err, "Can't encode image grid")
	}
	return nil
}
