package embedding

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClipEmbedder talks to a CLIP embedding service over HTTP. Text and images
// are projected into the same vector space, so one collection serves both
// text and image queries.
type ClipEmbedder struct {
	model     string
	baseURL   string
	dimension int
	client    *http.Client
}

type textRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type imageRequest struct {
	Model  string   `json:"model"`
	Images []string `json:"images"` // base64-encoded bytes
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// NewClipEmbedder creates a client for the embedding service at baseURL.
func NewClipEmbedder(baseURL, model string, dimension int, timeout time.Duration) (*ClipEmbedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding service base URL is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension: %d", dimension)
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if model == "" {
		model = "clip-ViT-B-32"
	}

	return &ClipEmbedder{
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// EmbedText generates embeddings for the given texts.
func (e *ClipEmbedder) EmbedText(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.post("/embed/text", textRequest{Model: e.model, Texts: texts}, len(texts))
}

// EmbedImage generates embeddings for the given raw image bytes.
func (e *ClipEmbedder) EmbedImage(images [][]byte) ([][]float32, error) {
	if len(images) == 0 {
		return nil, nil
	}
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}
	return e.post("/embed/image", imageRequest{Model: e.model, Images: encoded}, len(images))
}

func (e *ClipEmbedder) post(path string, reqBody any, want int) ([][]float32, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", e.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("embedding service error: %s", embResp.Error.Message)
	}
	if len(embResp.Embeddings) != want {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", want, len(embResp.Embeddings))
	}
	for _, v := range embResp.Embeddings {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", e.dimension, len(v))
		}
	}

	return embResp.Embeddings, nil
}

// Dimension returns the embedding vector dimension.
func (e *ClipEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model.
func (e *ClipEmbedder) ModelName() string {
	return e.model
}

// MockEmbedder produces deterministic vectors without a service. Identical
// inputs always yield identical vectors.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) EmbedText(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.vectorFor([]byte(text))
	}
	return embeddings, nil
}

func (e *MockEmbedder) EmbedImage(images [][]byte) ([][]float32, error) {
	embeddings := make([][]float32, len(images))
	for i, img := range images {
		embeddings[i] = e.vectorFor(img)
	}
	return embeddings, nil
}

func (e *MockEmbedder) vectorFor(data []byte) []float32 {
	vec := make([]float32, e.dimension)
	for i, b := range data {
		vec[i%e.dimension] += float32(b) / 1000.0
	}
	return vec
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
