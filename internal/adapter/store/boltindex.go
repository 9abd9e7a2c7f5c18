package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"caserag/internal/port"
)

var bucketPoints = []byte("points")

// BoltIndex implements port.VectorIndex on a local BoltDB file.
// Brute-force cosine search; serves development and tests without a running
// Qdrant instance.
type BoltIndex struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	// In-memory cache for fast search
	points map[string]pointEntry
}

type pointEntry struct {
	vector  []float32
	payload map[string]any
}

type storedPoint struct {
	Vector  []float32      `json:"v"`
	Payload map[string]any `json:"p,omitempty"`
}

// NewBoltIndex opens a local vector index at path.
func NewBoltIndex(path string, dimension int) (*BoltIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid vector dimension: %d", dimension)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index db: %w", err)
	}
	idx := &BoltIndex{
		db:        db,
		dimension: dimension,
		points:    make(map[string]pointEntry),
	}
	return idx, nil
}

// EnsureCollection creates the points bucket if missing and loads existing
// points into memory.
func (s *BoltIndex) EnsureCollection() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPoints)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create points bucket: %w", err)
	}
	return s.loadPoints()
}

// Recreate drops every stored point.
func (s *BoltIndex) Recreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketPoints) != nil {
			if err := tx.DeleteBucket(bucketPoints); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucketIfNotExists(bucketPoints)
		return err
	})
	if err != nil {
		return err
	}
	s.points = make(map[string]pointEntry)
	return nil
}

func (s *BoltIndex) loadPoints() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPoints)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedPoint
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.points[string(k)] = pointEntry{
				vector:  stored.Vector,
				payload: stored.Payload,
			}
			return nil
		})
	})
}

// Upsert adds or overwrites points by identity.
func (s *BoltIndex) Upsert(points []port.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPoints)
		if b == nil {
			return fmt.Errorf("points bucket not found; call EnsureCollection first")
		}

		for _, p := range points {
			if len(p.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(p.Vector))
			}

			stored := storedPoint{Vector: p.Vector, Payload: p.Payload}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(p.ID), data); err != nil {
				return err
			}
			s.points[p.ID] = pointEntry{vector: p.Vector, payload: p.Payload}
		}
		return nil
	})
}

// Search finds the topK nearest points using cosine similarity.
func (s *BoltIndex) Search(query []float32, topK int) ([]port.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	if len(s.points) == 0 {
		return nil, nil
	}

	type scored struct {
		score   float64
		payload map[string]any
	}

	scores := make([]scored, 0, len(s.points))
	for _, entry := range s.points {
		scores = append(scores, scored{
			score:   cosineSimilarity(query, entry.vector),
			payload: entry.payload,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	hits := make([]port.SearchHit, topK)
	for i := 0; i < topK; i++ {
		hits[i] = port.SearchHit{Score: scores[i].score, Payload: scores[i].payload}
	}
	return hits, nil
}

// Count returns the number of stored points.
func (s *BoltIndex) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points), nil
}

// Close closes the underlying database.
func (s *BoltIndex) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
