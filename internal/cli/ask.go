package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"caserag/internal/domain"
	"caserag/internal/usecase"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Interactive diagnosis session over the indexed cases",
	Long: `Ask starts an interactive loop. Each input is either a free-text
question or the path of an image file (detected automatically). Similar
cases are retrieved, packed into a bounded context, and sent to the
generative model for a structured answer.

Type 'exit' or 'quit' to leave; Ctrl-C also exits cleanly.`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "retrieved cases per question (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

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

	generator, err := newLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to create answer model: %w", err)
	}

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	fuser := usecase.NewFuser(embedder, logger)
	retrieveUC := usecase.NewRetrieveUseCase(fuser, index)
	answerUC, err := usecase.NewAnswerUseCase(retrieveUC, generator, topK, cfg.Retrieve.ContextMaxChars, cfg.Retrieve.SnippetMaxChars)
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		fmt.Println("\nGoodbye!")
		os.Exit(0)
	}()

	fmt.Printf("=== Clinical case assistant (%s + %s) ===\n", embedder.ModelName(), generator.ModelName())
	fmt.Println("Describe symptoms, ask a question, or enter an image path. Type 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println("Goodbye!")
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		if isImagePath(input) {
			hits, err := retrieveUC.ByImage(input, topK)
			if err != nil {
				fmt.Printf("Image search failed: %v\n", err)
				continue
			}
			printHits(usecase.Cases(hits))
			continue
		}

		result, err := answerUC.Answer(input)
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			continue
		}
		if len(result.Hits) == 0 {
			fmt.Println("No matching cases found.")
			continue
		}

		fmt.Printf("Retrieved %d similar cases.\n", len(result.Hits))
		fmt.Println("\n================= ANSWER =================")
		fmt.Println(result.Answer)
		fmt.Println("==========================================")
	}
}

// isImagePath treats input as an image query when it names an existing file
// with an image extension.
func isImagePath(input string) bool {
	lower := strings.ToLower(input)
	if !strings.HasSuffix(lower, ".jpg") && !strings.HasSuffix(lower, ".jpeg") && !strings.HasSuffix(lower, ".png") {
		return false
	}
	info, err := os.Stat(input)
	return err == nil && !info.IsDir()
}

func printHits(hits []domain.RetrievedCase) {
	for i, r := range hits {
		fmt.Printf("%d. Case %s — %s (score: %.4f)\n", i+1, r.CaseID, r.Label, r.Score)
		if r.ImagePath != "" {
			fmt.Printf("   Image: %s\n", r.ImagePath)
		}
	}
}
