package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"caserag/internal/adapter/dataset"
)

var (
	buildJSONDir  string
	buildImageDir string
	buildOutput   string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the ingestion dataset from per-case JSON files",
	Long: `Build assembles the line-delimited dataset consumed by ingest.
Each Case-<id>.json in the JSON folder becomes one record with its canonical
text rendering, disease label, and the images found under the matching
image folder (Case-<id>/*.jpg|*.png). Missing fields are defaulted, so no
record ever has an absent attribute.

Examples:
  caserag build
  caserag build --json-dir json-output --image-dir image-output -o dataset_ready.jsonl`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildJSONDir, "json-dir", "", "folder of per-case JSON files (default from config)")
	buildCmd.Flags().StringVar(&buildImageDir, "image-dir", "", "folder of per-case image folders (default from config)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output dataset path (default from config)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	jsonDir := cfg.Dataset.JSONDir
	if buildJSONDir != "" {
		jsonDir = buildJSONDir
	}
	imageDir := cfg.Dataset.ImageDir
	if buildImageDir != "" {
		imageDir = buildImageDir
	}
	output := cfg.Dataset.Path
	if buildOutput != "" {
		output = buildOutput
	}

	result, err := dataset.Build(jsonDir, imageDir, output)
	if err != nil {
		return fmt.Errorf("dataset build failed: %w", err)
	}

	fmt.Printf("Dataset written to %s (%d cases)\n", output, result.CasesWritten)
	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}
