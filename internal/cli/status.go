package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"caserag/internal/adapter/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ingest ledger and index statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ledger, err := store.NewLedger(cfg.Ingest.LedgerPath)
	if err != nil {
		return fmt.Errorf("failed to open ingest ledger: %w", err)
	}
	defer ledger.Close()

	stats, err := ledger.Stats()
	if err != nil {
		return fmt.Errorf("failed to read ledger stats: %w", err)
	}

	fmt.Printf("Ingest ledger (%s):\n", cfg.Ingest.LedgerPath)
	fmt.Printf("  Cases ingested: %d\n", stats.TotalCases)
	fmt.Printf("  Images used:    %d\n", stats.ImagesEmbedded)
	fmt.Printf("  Images skipped: %d\n", stats.ImagesSkipped)
	if stats.LastIngestUnix > 0 {
		fmt.Printf("  Last ingest:    %s\n", time.Unix(stats.LastIngestUnix, 0).Format(time.RFC3339))
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

	count, err := index.Count()
	if err != nil {
		return fmt.Errorf("failed to count index points: %w", err)
	}
	fmt.Printf("\nVector index (%s, collection %q):\n", cfg.Index.Provider, cfg.Index.Collection)
	fmt.Printf("  Points: %d\n", count)

	return nil
}
