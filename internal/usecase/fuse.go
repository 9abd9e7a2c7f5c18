package usecase

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"sync"

	// Registered decoders for case image validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"caserag/internal/port"
)

// Fuser combines a case's text and image embeddings into one vector.
type Fuser struct {
	embedder port.Embedder
	logger   *zap.Logger
}

// NewFuser creates a fusion engine over the given embedder.
func NewFuser(embedder port.Embedder, logger *zap.Logger) *Fuser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fuser{embedder: embedder, logger: logger}
}

// FuseResult is the fused vector plus image bookkeeping for the ledger.
type FuseResult struct {
	Vector        []float32
	ImagesUsed    int
	ImagesSkipped int
}

// Fuse embeds the case text and its images and averages them into a single
// vector of the embedder's dimension. Images that cannot be read or decoded
// are skipped with a warning; a case with no usable images falls back to a
// zero image vector. Text and image embedding run concurrently.
//
// The zero-vector fallback halves the magnitude of text-only cases relative
// to image-bearing ones. Cosine search is scale-invariant so ranking is
// unaffected, and the upstream behavior is kept as-is.
func (f *Fuser) Fuse(text string, imagePaths []string) (FuseResult, error) {
	var (
		wg            sync.WaitGroup
		textVec       []float32
		textErr       error
		imageVecs     [][]float32
		imageErr      error
		imagesSkipped int
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		vecs, err := f.embedder.EmbedText([]string{text})
		if err != nil {
			textErr = fmt.Errorf("text embedding failed: %w", err)
			return
		}
		if len(vecs) != 1 {
			textErr = fmt.Errorf("expected 1 text embedding, got %d", len(vecs))
			return
		}
		textVec = vecs[0]
	}()

	go func() {
		defer wg.Done()
		var decoded [][]byte
		for _, path := range imagePaths {
			data, err := loadImage(path)
			if err != nil {
				f.logger.Warn("skipping image", zap.String("path", path), zap.Error(err))
				imagesSkipped++
				continue
			}
			decoded = append(decoded, data)
		}
		if len(decoded) == 0 {
			return
		}
		vecs, err := f.embedder.EmbedImage(decoded)
		if err != nil {
			imageErr = fmt.Errorf("image embedding failed: %w", err)
			return
		}
		imageVecs = vecs
	}()

	wg.Wait()

	if textErr != nil {
		return FuseResult{}, textErr
	}
	if imageErr != nil {
		return FuseResult{}, imageErr
	}

	dim := f.embedder.Dimension()
	imageVec := make([]float32, dim)
	if len(imageVecs) > 0 {
		imageVec = meanVectors(imageVecs)
	}

	fused := make([]float32, dim)
	for i := range fused {
		fused[i] = (textVec[i] + imageVec[i]) / 2
	}

	return FuseResult{
		Vector:        fused,
		ImagesUsed:    len(imageVecs),
		ImagesSkipped: imagesSkipped,
	}, nil
}

// EmbedQueryText embeds a query string directly, without fusion.
func (f *Fuser) EmbedQueryText(query string) ([]float32, error) {
	vecs, err := f.embedder.EmbedText([]string{query})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// EmbedQueryImage embeds a query image file directly, without fusion.
// Unlike case ingestion, an unreadable query image is an error.
func (f *Fuser) EmbedQueryImage(path string) ([]float32, error) {
	data, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	vecs, err := f.embedder.EmbedImage([][]byte{data})
	if err != nil {
		return nil, fmt.Errorf("image query embedding failed: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 image embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// loadImage reads an image file and verifies it decodes.
func loadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return data, nil
}

// meanVectors returns the elementwise mean of the given vectors.
func meanVectors(vecs [][]float32) []float32 {
	mean := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		for i := range mean {
			mean[i] += v[i]
		}
	}
	n := float32(len(vecs))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}
