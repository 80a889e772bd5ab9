// Package histo loads directories of fixed-size histopathology patches
// (PNG/JPEG) into dense tensors. Patches are unlabeled; the GAN trainer is
// the only consumer.
package histo

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	ganlab "github.com/ganlab/ganlab"
)

// LoadOptions Geometry every patch in the directory must match.
type LoadOptions struct {
	Height int
	Width  int
	// Gray collapses RGB to a single luminance channel.
	Gray bool
}

// Load Walks dir (non-recursive), decodes every .png/.jpg/.jpeg patch and
// stacks them into an NCHW tensor with values in [0;1]. A patch whose size
// differs from the configured geometry fails the whole load.
func Load(dir string, opts LoadOptions) (*ganlab.TrainSet, error) {
	if opts.Height <= 0 || opts.Width <= 0 {
		return nil, fmt.Errorf("patch geometry must be positive, got %dx%d", opts.Height, opts.Width)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read patch directory")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no patches found in %s", dir)
	}
	sort.Strings(files)

	channels := 3
	if opts.Gray {
		channels = 1
	}
	patchSize := channels * opts.Height * opts.Width
	data := make([]float64, len(files)*patchSize)
	for i, path := range files {
		if err := decodePatch(path, opts, data[i*patchSize:(i+1)*patchSize]); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't decode patch '%s'", path))
		}
	}
	return &ganlab.TrainSet{
		TrainData:  tensor.New(tensor.WithShape(len(files), channels, opts.Height, opts.Width), tensor.WithBacking(data)),
		DataLength: len(files),
	}, nil
}

func decodePatch(path string, opts LoadOptions, dst []float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	if bounds.Dx() != opts.Width || bounds.Dy() != opts.Height {
		return fmt.Errorf("patch is %dx%d, expected %dx%d", bounds.Dx(), bounds.Dy(), opts.Width, opts.Height)
	}
	plane := opts.Height * opts.Width
	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*opts.Width + x
			if opts.Gray {
				dst[idx] = (float64(r) + float64(g) + float64(b)) / (3 * 65535.0)
				continue
			}
			dst[idx] = float64(r) / 65535.0
			dst[plane+idx] = float64(g) / 65535.0
			dst[2*plane+idx] = float64(b) / 65535.0
		}
	}
	return nil
}
