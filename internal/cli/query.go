package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"caserag/internal/domain"
	"caserag/internal/usecase"
)

var (
	queryText  string
	queryImage string
	queryTopK  int
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search indexed cases by text or image",
	Long: `Search for the most similar clinical cases using cosine similarity
over fused embeddings. Queries are embedded directly (text or image), so
either modality can match any indexed case.

Examples:
  caserag query -q "fever and rash after travel"
  caserag query --image rash.jpg --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "free-text query")
	queryCmd.Flags().StringVar(&queryImage, "image", "", "query image file path")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if (queryText == "") == (queryImage == "") {
		return fmt.Errorf("provide exactly one of --query or --image")
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	index, closeIndex, err := newIndex(cfg)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	if closeIndex != nil {
		defer closeIndex()
	}
	if err := index.EnsureCollection(); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	fuser := usecase.NewFuser(embedder, logger)
	retrieveUC := usecase.NewRetrieveUseCase(fuser, index)

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	var results []domain.RetrievedCase
	if queryText != "" {
		raw, err := retrieveUC.ByText(queryText, topK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		results = usecase.Cases(raw)
	} else {
		raw, err := retrieveUC.ByImage(queryImage, topK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		results = usecase.Cases(raw)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	what := queryText
	if what == "" {
		what = queryImage
	}
	fmt.Printf("Found %d similar cases for: %s\n\n", len(results), what)
	for i, r := range results {
		fmt.Printf("%d. Case %s — %s (score: %.4f)\n", i+1, r.CaseID, r.Label, r.Score)
		snippet := r.Snippet
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		if snippet != "" {
			fmt.Printf("   %s\n", snippet)
		}
		if r.ImagePath != "" {
			fmt.Printf("   Image: %s\n", r.ImagePath)
		}
		fmt.Println()
	}

	return nil
}
