package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caserag/internal/adapter/dataset"
	"caserag/internal/adapter/store"
	"caserag/internal/usecase"
)

var (
	ingestDataset  string
	ingestWorkers  int
	ingestRecreate bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dataset.jsonl]",
	Short: "Embed case records and upsert them into the vector index",
	Long: `Ingest reads the line-delimited dataset, fuses each case's text and
image embeddings into a single vector, and upserts one point per case.
Point identities are deterministic, so re-running ingestion overwrites
instead of duplicating, and an interrupted run can simply be re-run.

Per-case failures are appended to the error log and the batch continues.

Examples:
  caserag ingest
  caserag ingest dataset_ready.jsonl --workers 8
  caserag ingest --recreate    # Drop and rebuild the collection first`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "concurrent case workers (default from config)")
	ingestCmd.Flags().BoolVar(&ingestRecreate, "recreate", false, "drop and recreate the collection before ingesting (destructive)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	datasetPath := cfg.Dataset.Path
	if len(args) > 0 {
		datasetPath = args[0]
	}

	records, malformed, err := dataset.ReadAll(datasetPath)
	if err != nil {
		return err
	}
	for _, m := range malformed {
		logger.Warn("skipping malformed dataset record", zap.String("detail", m))
	}
	if len(records) == 0 {
		return fmt.Errorf("no case records in %s", datasetPath)
	}
	fmt.Printf("Loaded %d cases from %s\n", len(records), datasetPath)

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

	if ingestRecreate {
		fmt.Printf("Recreating collection %q (all points dropped)...\n", cfg.Index.Collection)
		if err := index.Recreate(); err != nil {
			return fmt.Errorf("failed to recreate collection: %w", err)
		}
	} else if err := index.EnsureCollection(); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	ledger, err := store.NewLedger(cfg.Ingest.LedgerPath)
	if err != nil {
		return fmt.Errorf("failed to open ingest ledger: %w", err)
	}
	defer ledger.Close()

	workers := cfg.Ingest.Workers
	if ingestWorkers > 0 {
		workers = ingestWorkers
	}

	fuser := usecase.NewFuser(embedder, logger)
	ingestUC := usecase.NewIngestUseCase(fuser, index, ledger, logger, workers)

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding cases[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	// Interrupt stops between cases; completed upserts stay intact.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, runErr := ingestUC.Run(ctx, records, func(done, total int) {
		_ = bar.Set(done)
	})

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Cases ingested: %d\n", result.CasesIngested)
	fmt.Printf("  Cases failed:   %d\n", result.CasesFailed)
	fmt.Printf("  Images used:    %d\n", result.ImagesEmbedded)
	fmt.Printf("  Images skipped: %d\n", result.ImagesSkipped)

	if len(result.Errors) > 0 {
		fmt.Printf("\nFailures (also appended to %s):\n", cfg.Logging.ErrorFile)
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if runErr != nil {
		fmt.Println("\nIngestion interrupted; re-run to pick up the remaining cases.")
	}
	return nil
}
