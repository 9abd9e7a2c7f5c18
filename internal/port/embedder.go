package port

// Embedder generates vector embeddings for text and images in a shared
// vector space of fixed dimension.
type Embedder interface {
	// EmbedText generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	EmbedText(texts []string) ([][]float32, error)

	// EmbedImage generates embeddings for the given raw image bytes.
	// Inputs are expected to be decodable images; the caller validates.
	EmbedImage(images [][]byte) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
