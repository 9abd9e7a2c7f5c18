package cli

import (
	"fmt"
	"os"
	"time"

	"caserag/config"
	"caserag/internal/adapter/embedding"
	"caserag/internal/adapter/llm"
	"caserag/internal/adapter/qdrant"
	"caserag/internal/adapter/store"
	"caserag/internal/port"
)

// newEmbedder constructs the configured embedding provider.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "clip":
		return embedding.NewClipEmbedder(
			cfg.Embedding.BaseURL,
			cfg.Embedding.Model,
			cfg.Embedding.Dimension,
			time.Duration(cfg.Embedding.TimeoutSecs)*time.Second,
		)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newIndex constructs the configured vector index. The returned closer is
// nil for remote providers.
func newIndex(cfg *config.Config) (port.VectorIndex, func() error, error) {
	switch cfg.Index.Provider {
	case "qdrant":
		client, err := qdrant.New(qdrant.Config{
			URL:        cfg.Index.URL,
			APIKey:     os.Getenv(cfg.Index.APIKeyEnv),
			Collection: cfg.Index.Collection,
			Dimension:  cfg.Embedding.Dimension,
			Timeout:    time.Duration(cfg.Index.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	case "bolt":
		idx, err := store.NewBoltIndex(cfg.Index.Path, cfg.Embedding.Dimension)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported index provider: %s", cfg.Index.Provider)
	}
}

// newLLM constructs the configured generative provider. Missing credentials
// fail here, before any retrieval work starts.
func newLLM(cfg *config.Config) (port.LLM, error) {
	switch cfg.Answer.Provider {
	case "gemini":
		return llm.NewGeminiClient(
			cfg.Answer.APIKeyEnv,
			cfg.Answer.Model,
			time.Duration(cfg.Answer.TimeoutSecs)*time.Second,
		)
	case "mock":
		return llm.NewMockLLM("mock answer"), nil
	default:
		return nil, fmt.Errorf("unsupported answer provider: %s", cfg.Answer.Provider)
	}
}
