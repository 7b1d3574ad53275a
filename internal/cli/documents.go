package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/veracity/internal/model"
)

var (
	ingestOut     outputFlags
	ingestTimeout time.Duration

	checkOut     outputFlags
	checkTimeout time.Duration
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file|url>",
	Short: "Ingest a document and score its methodology",
	Long: `Ingest reads a plain text or HTML document from a file or URL, extracts
its findings and scores its methodological quality. The printed document
id is what assess and batch take.

Example:
  veracity ingest paper.txt
  veracity ingest https://example.org/article --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file|url> <claim>",
	Short: "Ingest a document and assess one claim against it",
	Long: `Check ingests a document and assesses a claim against it in one step.

Example:
  veracity check paper.txt "Exercise reduces resting heart rate"
  veracity check https://example.org/article "Coffee improves memory" -f json -o result.json`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(checkCmd)

	ingestOut.register(ingestCmd)
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 2*time.Minute, "overall timeout")

	checkOut.register(checkCmd)
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall timeout")
	checkCmd.Flags().String("llm-provider", "", "LLM provider for entailment and explanation (openai, anthropic, ollama)")
	checkCmd.Flags().String("llm-model", "", "LLM model name")
	checkCmd.Flags().String("embedding-provider", "", "embedding provider (hash, openai, ollama, gemini)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ingestOut.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ingestTimeout)
	defer cancel()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		doc, err := ingestTarget(ctx, a, args[0])
		if err != nil {
			return err
		}
		return ingestOut.document(a, doc)
	})
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkOut.validate(); err != nil {
		return err
	}
	applyLLMFlags(cmd)

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		doc, err := ingestTarget(ctx, a, args[0])
		if err != nil {
			return err
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Assessing claim...\n")
		}
		assessment, err := a.engine.CreateAssessment(ctx, doc.ID, args[1])
		if err != nil {
			return fmt.Errorf("assess: %w", err)
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "✓ %s with confidence %.2f\n\n", assessment.Stance, assessment.ConfidenceScore)
		}
		return checkOut.assessment(a, assessment)
	})
}

func ingestTarget(ctx context.Context, a *app, target string) (*model.Document, error) {
	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Loading %s...\n", target)
	}

	text, err := a.loader.Load(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	doc, err := a.engine.IngestDocument(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Document %s: %d findings, method quality %.2f\n", doc.ID, len(doc.ExtractedClaims), doc.MethodQualityScore)
	}
	return doc, nil
}

// applyLLMFlags copies the changed model flags into viper so they win over
// file and environment values
func applyLLMFlags(cmd *cobra.Command) {
	set := func(flag, key string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
	set("llm-provider", "llm.provider")
	set("llm-model", "llm.model")
	set("embedding-provider", "embedding.provider")

	if f := cmd.Flags().Lookup("llm-provider"); f != nil && f.Changed && f.Value.String() != "" {
		viper.Set("llm.entailment", true)
		viper.Set("llm.explanation", true)
	}
}
