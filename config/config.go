package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the case retrieval tool.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Answer    AnswerConfig    `yaml:"answer"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatasetConfig holds dataset build and ingestion paths.
type DatasetConfig struct {
	JSONDir  string `yaml:"json_dir"`  // Per-case JSON documents
	ImageDir string `yaml:"image_dir"` // Case image folders (Case-<id>/)
	Path     string `yaml:"path"`      // Line-delimited JSON dataset
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "clip", "mock"
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Provider    string `yaml:"provider"` // "qdrant", "bolt"
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	Path        string `yaml:"path"` // Local database path for the bolt provider
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrieveConfig holds retrieval and context assembly configuration.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	ContextMaxChars int `yaml:"context_max_chars"`
	SnippetMaxChars int `yaml:"snippet_max_chars"`
}

// AnswerConfig holds generative answering configuration.
type AnswerConfig struct {
	Provider    string `yaml:"provider"` // "gemini", "mock"
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IngestConfig holds bulk ingestion configuration.
type IngestConfig struct {
	Workers    int    `yaml:"workers"`
	LedgerPath string `yaml:"ledger_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	ErrorFile string `yaml:"error_file"` // Append-only log of per-case failures
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			JSONDir:  "json-output",
			ImageDir: "image-output",
			Path:     "dataset_ready.jsonl",
		},
		Embedding: EmbeddingConfig{
			Provider:    "clip",
			BaseURL:     "http://localhost:8081",
			Model:       "clip-ViT-B-32",
			Dimension:   512,
			TimeoutSecs: 60,
		},
		Index: IndexConfig{
			Provider:    "qdrant",
			URL:         "http://localhost:6333",
			APIKeyEnv:   "QDRANT_API_KEY",
			Collection:  "tropical_disease_cases",
			Path:        filepath.Join(".caserag", "index.db"),
			TimeoutSecs: 15,
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			ContextMaxChars: 3500,
			SnippetMaxChars: 600,
		},
		Answer: AnswerConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			TimeoutSecs: 120,
		},
		Ingest: IngestConfig{
			Workers:    4,
			LedgerPath: filepath.Join(".caserag", "ledger.db"),
		},
		Logging: LoggingConfig{
			Level:     "info",
			ErrorFile: filepath.Join(".caserag", "errors.log"),
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for caserag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "caserag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".caserag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureStateDir ensures the .caserag state directory exists under dir.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".caserag"), 0755)
}
