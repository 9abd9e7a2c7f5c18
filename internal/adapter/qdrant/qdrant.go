// Package qdrant is a minimal REST client for the Qdrant vector store.
package qdrant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"caserag/internal/port"
)

// Client wraps one Qdrant collection with cosine distance.
type Client struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// Config configures the Qdrant client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// New creates a Qdrant client. The collection is not touched until
// EnsureCollection is called.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid vector dimension: %d", cfg.Dimension)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// EnsureCollection creates the collection with the configured dimension and
// cosine distance when it does not exist. An existing collection is left
// untouched; destructive recreation only happens through Recreate.
func (c *Client) EnsureCollection() error {
	exists, err := c.collectionExists()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.createCollection()
}

// Recreate drops the collection and creates it again, discarding all points.
func (c *Client) Recreate() error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/collections/%s", c.url, c.collection), nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return c.createCollection()
}

func (c *Client) collectionExists() (bool, error) {
	req, err := http.NewRequest(http.MethodGet, c.url+"/collections", nil)
	if err != nil {
		return false, err
	}
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.do(req, &resp); err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, col := range resp.Result.Collections {
		if col.Name == c.collection {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) createCollection() error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}
	if err := c.putJSON(fmt.Sprintf("%s/collections/%s", c.url, c.collection), body, nil); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert adds or overwrites points by identity. Uses wait=true so the write
// is visible before the call returns.
func (c *Client) Upsert(points []port.Point) error {
	if len(points) == 0 {
		return nil
	}
	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		if len(p.Vector) != c.dimension {
			return fmt.Errorf("vector dimension mismatch for point %s: expected %d, got %d", p.ID, c.dimension, len(p.Vector))
		}
		qdrantPoints[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": qdrantPoints}
	if err := c.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection), body, nil); err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// Search returns the topK nearest points ordered by descending score.
func (c *Client) Search(vector []float32, topK int) ([]port.SearchHit, error) {
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", c.dimension, len(vector))
	}
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.postJSON(fmt.Sprintf("%s/collections/%s/points/search", c.url, c.collection), body, &resp); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	hits := make([]port.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, port.SearchHit{Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// Count returns the exact number of points in the collection.
func (c *Client) Count() (int, error) {
	body := map[string]any{"exact": true}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := c.postJSON(fmt.Sprintf("%s/collections/%s/points/count", c.url, c.collection), body, &resp); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return resp.Result.Count, nil
}

func (c *Client) putJSON(url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) postJSON(url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s returned %s: %s", req.Method, req.URL.Path, resp.Status, string(body))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
