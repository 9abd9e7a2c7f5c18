package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caserag/config"
	"caserag/pkg/logutil"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "caserag",
	Short: "Multimodal clinical case retrieval and diagnosis assistant",
	Long: `caserag indexes clinical case reports (text plus images) as fused
CLIP embeddings in a vector store and answers diagnostic questions by
retrieving similar cases and handing them to a generative model.

Example usage:
  caserag build                       # Build dataset_ready.jsonl from case JSON
  caserag ingest                      # Embed and upsert all cases
  caserag query -q "fever and rash"   # Find similar cases
  caserag ask                         # Interactive diagnosis session`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := config.EnsureStateDir(rootDir); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}

		logger, err = logutil.New(cfg.Logging.Level, cfg.Logging.ErrorFile)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./caserag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
