package port

// Point is one embedding unit to be stored in the vector index.
type Point struct {
	ID      string         // Deterministic point identity (UUID string)
	Vector  []float32      // Embedding vector, always the index dimension
	Payload map[string]any // Case payload stored alongside the vector
}

// SearchHit is one nearest-neighbor result. Score is a similarity measure
// (higher is more similar under cosine distance) and is never mutated
// downstream.
type SearchHit struct {
	Score   float64
	Payload map[string]any
}

// VectorIndex wraps the external vector store.
type VectorIndex interface {
	// EnsureCollection creates the target collection with the configured
	// dimension and cosine distance if it does not exist. An existing
	// collection is left untouched.
	EnsureCollection() error

	// Recreate drops and recreates the collection. Destructive; never
	// called implicitly.
	Recreate() error

	// Upsert adds or overwrites points by identity. The call either fails
	// or the batch is applied; partial application surfaces as an error.
	Upsert(points []Point) error

	// Search returns the topK nearest points ordered by descending score.
	Search(vector []float32, topK int) ([]SearchHit, error)

	// Count returns the number of points in the collection.
	Count() (int, error)
}
