package histo

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gorgonia.org/tensor"
)

func writePatch(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadGray(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, filepath.Join(dir, "a.png"), 4, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	writePatch(t, filepath.Join(dir, "b.png"), 4, 4, color.RGBA{A: 255})
	// Non-image files are skipped
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := Load(dir, LoadOptions{Height: 4, Width: 4, Gray: true})
	if err != nil {
		t.Fatal(err)
	}
	if set.DataLength != 2 {
		t.Fatalf("expected 2 patches, got %d", set.DataLength)
	}
	if !set.TrainData.Shape().Eq(tensor.Shape{2, 1, 4, 4}) {
		t.Fatalf("expected shape (2, 1, 4, 4), got %v", set.TrainData.Shape())
	}
	data := set.TrainData.Data().([]float64)
	// Files are sorted, so the white patch comes first
	if data[0] != 1.0 {
		t.Fatalf("white pixel must decode to 1.0, got %f", data[0])
	}
	if data[16] != 0.0 {
		t.Fatalf("black pixel must decode to 0.0, got %f", data[16])
	}
}

func TestLoadRGB(t *testing.T) {
	dir := t.TempDir()
	writePatch(t, filepath.Join(dir, "a.png"), 2, 2, color.RGBA{R: 255, A: 255})

	set, err := Load(dir, LoadOptions{Height: 2, Width: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !set.TrainData.Shape().Eq(tensor.Shape{1, 3, 2, 2}) {
		t.Fatalf("expected shape (1, 3, 2, 2), got %v", set.TrainData.Shape())
	}
	data := set.TrainData.Data().([]float64)
	if data[0] != 1.0 {
		t.Fatalf("red plane must be 1.0, got %f", data[0])
	}
	if data[4] != 0.0 || data[8] != 0.0 {
		t.Fatalf("green/blue planes must be 0.0, got %f/%f", data[4], data[8])
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir, LoadOptions{Height: 4, Width: 4}); err == nil {
		t.Fatal("expected error for empty directory")
	}
	if _, err := Load(dir, LoadOptions{Height: 0, Width: 4}); err == nil {
		t.Fatal("expected error for non-positive geometry")
	}

	writePatch(t, filepath.Join(dir, "a.png"), 4, 4, color.RGBA{A: 255})
	writePatch(t, filepath.Join(dir, "b.png"), 8, 8, color.RGBA{A: 255})
	if _, err := Load(dir, LoadOptions{Height: 4, Width: 4}); err == nil {
		t.Fatal("expected error for mismatched patch size")
	}
}
