// Package mnist loads the classic IDX-formatted digit dataset (optionally
// gzip-compressed) into dense tensors.
package mnist

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	ganlab "github.com/ganlab/ganlab"
)

const (
	magicImages = 0x00000803
	magicLabels = 0x00000801

	// ImgSize Side of one digit image
	ImgSize = 28

	// Header counts are attacker-controlled input to make(), so they are
	// bounded before any allocation happens.
	maxSamples = 1 << 24
	maxSide    = 1 << 12
)

// Set Loaded split: images normalized to [0;1], labels as digits 0-9.
type Set struct {
	// Images (N, 1, ImgSize, ImgSize)
	Images *tensor.Dense
	Labels []int
	N      int
}

// Load Reads an images file and a labels file of one split. Both may be
// gzip-compressed. Missing paths and malformed headers fail fast.
func Load(imagesPath, labelsPath string) (*Set, error) {
	images, rows, cols, err := readImages(imagesPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read images file")
	}
	if rows != ImgSize || cols != ImgSize {
		return nil, fmt.Errorf("expected %dx%d images, got %dx%d", ImgSize, ImgSize, rows, cols)
	}
	labels, err := readLabels(labelsPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read labels file")
	}
	n := len(images) / (rows * cols)
	if n != len(labels) {
		return nil, fmt.Errorf("images file carries %d samples, labels file carries %d", n, len(labels))
	}
	data := make([]float64, len(images))
	for i, px := range images {
		data[i] = float64(px) / 255.0
	}
	intLabels := make([]int, len(labels))
	for i, l := range labels {
		intLabels[i] = int(l)
	}
	return &Set{
		Images: tensor.New(tensor.WithShape(n, 1, ImgSize, ImgSize), tensor.WithBacking(data)),
		Labels: intLabels,
		N:      n,
	}, nil
}

// Flat Returns a copy of the images reshaped to (N, ImgSize*ImgSize).
func (s *Set) Flat() (*tensor.Dense, error) {
	flat := s.Images.Clone().(*tensor.Dense)
	if err := flat.Reshape(s.N, ImgSize*ImgSize); err != nil {
		return nil, err
	}
	return flat, nil
}

// ToTrainSet Wraps the split as a labeled train set with one-hot labels.
func (s *Set) ToTrainSet(flat bool) (*ganlab.TrainSet, error) {
	oneHot, err := ganlab.OneHotDense(s.Labels, 10)
	if err != nil {
		return nil, err
	}
	data := s.Images
	if flat {
		data, err = s.Flat()
		if err != nil {
			return nil, err
		}
	}
	return &ganlab.TrainSet{
		TrainData:  data,
		TrainLabel: oneHot,
		DataLength: s.N,
	}, nil
}

func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	head, err := br.Peek(2)
	if err != nil {
		f.Close()
		return nil, err
	}
	if head[0] == 0x1f && head[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &gzipFile{gz: gz, f: f}, nil
	}
	return &plainFile{r: br, f: f}, nil
}

type gzipFile struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipFile) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipFile) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

type plainFile struct {
	r io.Reader
	f *os.File
}

func (p *plainFile) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p *plainFile) Close() error               { return p.f.Close() }

func readImages(path string) ([]byte, int, int, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer r.Close()
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, errors.Wrap(err, "Can't read IDX images header")
	}
	if header[0] != magicImages {
		return nil, 0, 0, fmt.Errorf("unexpected magic %#08x in images file", header[0])
	}
	count, rows, cols := int(header[1]), int(header[2]), int(header[3])
	if count <= 0 || count > maxSamples || rows <= 0 || rows > maxSide || cols <= 0 || cols > maxSide {
		return nil, 0, 0, fmt.Errorf("implausible IDX images header: %d samples of %dx%d", count, rows, cols)
	}
	pixels := make([]byte, count*rows*cols)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, 0, 0, errors.Wrap(err, "Can't read image pixels")
	}
	return pixels, rows, cols, nil
}

func readLabels(path string) ([]byte, error) {
	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "Can't read IDX labels header")
	}
	if header[0] != magicLabels {
		return nil, fmt.Errorf("unexpected magic %#08x in labels file", header[0])
	}
	count := int(header[1])
	if count <= 0 || count > maxSamples {
		return nil, fmt.Errorf("implausible IDX labels header: %d samples", count)
	}
	labels := make([]byte, count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, errors.Wrap(err, "Can't read label bytes")
	}
	return labels, nil
}
