package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	assessOut outputFlags
	showOut   outputFlags
	sharedOut outputFlags
)

// assessCmd represents the assess command
var assessCmd = &cobra.Command{
	Use:   "assess <document-id> <claim>",
	Short: "Assess a claim against a stored document",
	Long: `Assess evaluates a claim against a previously ingested document.
Documents persist between runs only with the postgres store.

Example:
  veracity assess 7f8c... "Exercise reduces resting heart rate" --store-dsn postgres://...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := assessOut.validate(); err != nil {
			return err
		}
		applyLLMFlags(cmd)

		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			assessment, err := a.engine.CreateAssessment(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return assessOut.assessment(a, assessment)
		})
	},
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <assessment-id>",
	Short: "Print a stored assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := showOut.validate(); err != nil {
			return err
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			assessment, err := a.engine.GetAssessment(ctx, args[0])
			if err != nil {
				return err
			}
			return showOut.assessment(a, assessment)
		})
	},
}

// shareCmd represents the share command
var shareCmd = &cobra.Command{
	Use:   "share <assessment-id>",
	Short: "Print the share id of an assessment, creating it on first use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			shareID, err := a.engine.EnsureShareID(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(shareID)
			return nil
		})
	},
}

// sharedCmd represents the shared command
var sharedCmd = &cobra.Command{
	Use:   "shared <share-id>",
	Short: "Print an assessment by its share id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sharedOut.validate(); err != nil {
			return err
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			assessment, err := a.engine.GetSharedAssessment(ctx, args[0])
			if err != nil {
				return err
			}
			return sharedOut.assessment(a, assessment)
		})
	},
}

// feedbackCmd represents the feedback command
var feedbackCmd = &cobra.Command{
	Use:   "feedback <assessment-id> <1|-1> [comment]",
	Short: "Rate an assessment",
	Long: `Feedback attaches a rating of 1 (helpful) or -1 (not helpful) and an
optional comment to an assessment. Only the first rating is kept.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("score must be 1 or -1, got %q", args[1])
		}
		comment := ""
		if len(args) == 3 {
			comment = args[2]
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			fb, err := a.engine.RecordFeedback(ctx, args[0], score, comment)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Feedback %+d recorded at %s\n", fb.Score, fb.CreatedAt.Format("2006-01-02 15:04:05"))
			if fb.Score != score || fb.Comment != strings.TrimSpace(comment) {
				fmt.Println("  An earlier rating was already stored; this one was not applied.")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(sharedCmd)
	rootCmd.AddCommand(feedbackCmd)

	assessOut.register(assessCmd)
	assessCmd.Flags().String("llm-provider", "", "LLM provider for entailment and explanation (openai, anthropic, ollama)")
	assessCmd.Flags().String("llm-model", "", "LLM model name")
	assessCmd.Flags().String("embedding-provider", "", "embedding provider (hash, openai, ollama, gemini)")

	showOut.register(showCmd)
	sharedOut.register(sharedCmd)
}
