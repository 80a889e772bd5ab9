package mnist

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"gorgonia.org/tensor"
)

func writeImagesFile(t *testing.T, path string, pixels [][]byte, gzipped bool) {
	t.Helper()
	var buf bytes.Buffer
	header := []uint32{magicImages, uint32(len(pixels)), ImgSize, ImgSize}
	if err := binary.Write(&buf, binary.BigEndian, header); err != nil {
		t.Fatal(err)
	}
	for _, img := range pixels {
		buf.Write(img)
	}
	writeFile(t, path, buf.Bytes(), gzipped)
}

func writeLabelsFile(t *testing.T, path string, labels []byte, gzipped bool) {
	t.Helper()
	var buf bytes.Buffer
	header := []uint32{magicLabels, uint32(len(labels))}
	if err := binary.Write(&buf, binary.BigEndian, header); err != nil {
		t.Fatal(err)
	}
	buf.Write(labels)
	writeFile(t, path, buf.Bytes(), gzipped)
}

func writeFile(t *testing.T, path string, payload []byte, gzipped bool) {
	t.Helper()
	if gzipped {
		var gzBuf bytes.Buffer
		gz := gzip.NewWriter(&gzBuf)
		if _, err := gz.Write(payload); err != nil {
			t.Fatal(err)
		}
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
		payload = gzBuf.Bytes()
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}
}

func testImage(fill byte) []byte {
	img := make([]byte, ImgSize*ImgSize)
	for i := range img {
		img[i] = fill
	}
	return img
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	imagesPath := filepath.Join(dir, "images-idx3-ubyte")
	labelsPath := filepath.Join(dir, "labels-idx1-ubyte.gz")

	// Images plain, labels gzipped: both layouts must be read transparently
	writeImagesFile(t, imagesPath, [][]byte{testImage(0), testImage(255), testImage(51)}, false)
	writeLabelsFile(t, labelsPath, []byte{7, 0, 3}, true)

	set, err := Load(imagesPath, labelsPath)
	if err != nil {
		t.Fatal(err)
	}
	if set.N != 3 {
		t.Fatalf("expected 3 samples, got %d", set.N)
	}
	if !set.Images.Shape().Eq(tensor.Shape{3, 1, ImgSize, ImgSize}) {
		t.Fatalf("expected shape (3, 1, %d, %d), got %v", ImgSize, ImgSize, set.Images.Shape())
	}
	if got := set.Labels; got[0] != 7 || got[1] != 0 || got[2] != 3 {
		t.Fatalf("unexpected labels %v", got)
	}

	data := set.Images.Data().([]float64)
	if data[0] != 0 {
		t.Fatalf("pixel 0 of image #0 must be 0, got %f", data[0])
	}
	if data[ImgSize*ImgSize] != 1.0 {
		t.Fatalf("pixel 0 of image #1 must be normalized to 1.0, got %f", data[ImgSize*ImgSize])
	}
	if data[2*ImgSize*ImgSize] != 0.2 {
		t.Fatalf("pixel 0 of image #2 must be normalized to 0.2, got %f", data[2*ImgSize*ImgSize])
	}
}

func TestLoadRejectsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	imagesPath := filepath.Join(dir, "images")
	labelsPath := filepath.Join(dir, "labels")
	writeImagesFile(t, imagesPath, [][]byte{testImage(1)}, false)
	writeLabelsFile(t, labelsPath, []byte{1}, false)

	if _, err := Load(filepath.Join(dir, "missing"), labelsPath); err == nil {
		t.Fatal("expected error for missing images file")
	}

	// Wrong magic
	badPath := filepath.Join(dir, "bad")
	writeLabelsFile(t, badPath, []byte{1}, false)
	if _, err := Load(badPath, labelsPath); err == nil {
		t.Fatal("expected error for labels magic in images file")
	}

	// Count mismatch between splits
	twoLabels := filepath.Join(dir, "two-labels")
	writeLabelsFile(t, twoLabels, []byte{1, 2}, false)
	if _, err := Load(imagesPath, twoLabels); err == nil {
		t.Fatal("expected error for sample count mismatch")
	}
}

func TestLoadRejectsImplausibleHeaderCounts(t *testing.T) {
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "labels")
	writeLabelsFile(t, labelsPath, []byte{1}, false)

	// Claims a billion images but carries no payload: must be rejected on the
	// header alone, before any allocation sized by it
	hugeImages := filepath.Join(dir, "huge-images")
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, []uint32{magicImages, 1 << 30, ImgSize, ImgSize}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, hugeImages, buf.Bytes(), false)
	if _, err := Load(hugeImages, labelsPath); err == nil {
		t.Fatal("expected error for implausible image count")
	}

	// Same for an oversized image side
	wideImages := filepath.Join(dir, "wide-images")
	buf.Reset()
	if err := binary.Write(&buf, binary.BigEndian, []uint32{magicImages, 1, 1 << 20, ImgSize}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, wideImages, buf.Bytes(), false)
	if _, err := Load(wideImages, labelsPath); err == nil {
		t.Fatal("expected error for implausible image geometry")
	}

	// And for the labels file
	imagesPath := filepath.Join(dir, "images")
	writeImagesFile(t, imagesPath, [][]byte{testImage(1)}, false)
	hugeLabels := filepath.Join(dir, "huge-labels")
	buf.Reset()
	if err := binary.Write(&buf, binary.BigEndian, []uint32{magicLabels, 1 << 30}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, hugeLabels, buf.Bytes(), false)
	if _, err := Load(imagesPath, hugeLabels); err == nil {
		t.Fatal("expected error for implausible label count")
	}
}

func TestFlatAndToTrainSet(t *testing.T) {
	dir := t.TempDir()
	imagesPath := filepath.Join(dir, "images")
	labelsPath := filepath.Join(dir, "labels")
	writeImagesFile(t, imagesPath, [][]byte{testImage(0), testImage(255)}, true)
	writeLabelsFile(t, labelsPath, []byte{2, 9}, false)

	set, err := Load(imagesPath, labelsPath)
	if err != nil {
		t.Fatal(err)
	}
	flat, err := set.Flat()
	if err != nil {
		t.Fatal(err)
	}
	if !flat.Shape().Eq(tensor.Shape{2, ImgSize * ImgSize}) {
		t.Fatalf("expected flat shape (2, %d), got %v", ImgSize*ImgSize, flat.Shape())
	}
	// Flat must be a copy
	if !set.Images.Shape().Eq(tensor.Shape{2, 1, ImgSize, ImgSize}) {
		t.Fatal("flattening must not reshape the original images")
	}

	trainSet, err := set.ToTrainSet(true)
	if err != nil {
		t.Fatal(err)
	}
	if trainSet.DataLength != 2 {
		t.Fatalf("expected train set of 2 samples, got %d", trainSet.DataLength)
	}
	if !trainSet.TrainLabel.Shape().Eq(tensor.Shape{2, 10}) {
		t.Fatalf("expected one-hot labels (2, 10), got %v", trainSet.TrainLabel.Shape())
	}
	oneHot := trainSet.TrainLabel.Data().([]float64)
	if oneHot[2] != 1 || oneHot[10+9] != 1 {
		t.Fatalf("one-hot rows don't match labels 2 and 9: %v", oneHot)
	}
}
