package usecase

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// stubEmbedder returns canned vectors keyed by input content.
type stubEmbedder struct {
	dim     int
	textVec []float32
	// imageVecs is keyed by the first byte that differs between test images.
	imageVecs map[string][]float32
}

func (s *stubEmbedder) EmbedText(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.textVec
	}
	return out, nil
}

func (s *stubEmbedder) EmbedImage(images [][]byte) ([][]float32, error) {
	out := make([][]float32, len(images))
	for i, img := range images {
		if vec, ok := s.imageVecs[string(img)]; ok {
			out[i] = vec
		} else {
			out[i] = make([]float32, s.dim)
		}
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int    { return s.dim }
func (s *stubEmbedder) ModelName() string { return "stub" }

// writePNG writes a tiny valid PNG with the given pixel shade and returns
// both its path and its exact bytes.
func writePNG(t *testing.T, dir, name string, shade uint8) (string, []byte) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatal(err)
	}
	f.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return path, data
}

func TestFuseNoImagesHalvesTextMagnitude(t *testing.T) {
	emb := &stubEmbedder{dim: 4, textVec: []float32{1, 2, 3, 4}}
	fuser := NewFuser(emb, nil)

	res, err := fuser.Fuse("some case text", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.ImagesUsed != 0 || res.ImagesSkipped != 0 {
		t.Errorf("unexpected image counts: used=%d skipped=%d", res.ImagesUsed, res.ImagesSkipped)
	}

	// Averaging with the zero vector yields exactly half the text vector.
	want := []float32{0.5, 1, 1.5, 2}
	for i := range want {
		if res.Vector[i] != want[i] {
			t.Errorf("vector[%d] = %f, want %f", i, res.Vector[i], want[i])
		}
	}
}

func TestFuseImageMeanCommutative(t *testing.T) {
	dir := t.TempDir()
	pathA, bytesA := writePNG(t, dir, "a.png", 10)
	pathB, bytesB := writePNG(t, dir, "b.png", 200)

	emb := &stubEmbedder{
		dim:     2,
		textVec: []float32{0, 0},
		imageVecs: map[string][]float32{
			string(bytesA): {1, 0},
			string(bytesB): {0, 1},
		},
	}
	fuser := NewFuser(emb, nil)

	forward, err := fuser.Fuse("text", []string{pathA, pathB})
	if err != nil {
		t.Fatal(err)
	}
	reversed, err := fuser.Fuse("text", []string{pathB, pathA})
	if err != nil {
		t.Fatal(err)
	}

	for i := range forward.Vector {
		if math.Abs(float64(forward.Vector[i]-reversed.Vector[i])) > 1e-6 {
			t.Errorf("fusion depends on image order at dim %d: %f vs %f", i, forward.Vector[i], reversed.Vector[i])
		}
	}
	// mean({1,0},{0,1}) = {0.5,0.5}; averaged with zero text = {0.25,0.25}.
	if forward.Vector[0] != 0.25 || forward.Vector[1] != 0.25 {
		t.Errorf("unexpected fused vector: %v", forward.Vector)
	}
}

func TestFuseSkipsUndecodableImages(t *testing.T) {
	dir := t.TempDir()
	goodPath, goodBytes := writePNG(t, dir, "good.png", 50)

	badPath := filepath.Join(dir, "bad.jpg")
	if err := os.WriteFile(badPath, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	missingPath := filepath.Join(dir, "missing.png")

	emb := &stubEmbedder{
		dim:     2,
		textVec: []float32{2, 2},
		imageVecs: map[string][]float32{
			string(goodBytes): {4, 4},
		},
	}
	fuser := NewFuser(emb, nil)

	res, err := fuser.Fuse("text", []string{badPath, goodPath, missingPath})
	if err != nil {
		t.Fatal(err)
	}
	if res.ImagesUsed != 1 {
		t.Errorf("expected 1 image used, got %d", res.ImagesUsed)
	}
	if res.ImagesSkipped != 2 {
		t.Errorf("expected 2 images skipped, got %d", res.ImagesSkipped)
	}
	// (text {2,2} + image {4,4}) / 2 = {3,3}
	if res.Vector[0] != 3 || res.Vector[1] != 3 {
		t.Errorf("unexpected fused vector: %v", res.Vector)
	}
}

func TestFuseAllImagesFailFallsBackToZero(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(badPath, []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}

	emb := &stubEmbedder{dim: 2, textVec: []float32{1, 1}}
	fuser := NewFuser(emb, nil)

	res, err := fuser.Fuse("text", []string{badPath})
	if err != nil {
		t.Fatal(err)
	}
	if res.ImagesSkipped != 1 {
		t.Errorf("expected 1 image skipped, got %d", res.ImagesSkipped)
	}
	if res.Vector[0] != 0.5 || res.Vector[1] != 0.5 {
		t.Errorf("expected zero-vector fallback, got %v", res.Vector)
	}
}

func TestFuseLengthAlwaysDimension(t *testing.T) {
	for _, dim := range []int{2, 8, 512} {
		emb := &stubEmbedder{dim: dim, textVec: make([]float32, dim)}
		fuser := NewFuser(emb, nil)
		res, err := fuser.Fuse("", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Vector) != dim {
			t.Errorf("dim %d: fused vector has length %d", dim, len(res.Vector))
		}
	}
}

func TestMeanVectors(t *testing.T) {
	got := meanVectors([][]float32{{1, 3}, {3, 5}})
	if fmt.Sprintf("%v", got) != "[2 4]" {
		t.Errorf("unexpected mean: %v", got)
	}
}
