package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/veracity/internal/ingest"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	metricsAddr  string
	batchOut     outputFlags
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file|url|document-id> <claims-file>",
	Short: "Assess many claims against one document in parallel",
	Long: `Batch assesses every claim in a file against one document:
- Claims are read one per line; blank lines and # comments are skipped
- Duplicate claims are assessed once
- Claims run in parallel with a configurable worker count
- Each assessment is written to the output directory as JSON and Markdown

The document is ingested first unless it names a stored document id.

Example:
  veracity batch paper.txt claims.txt
  veracity batch paper.html claims.txt --concurrency 8 --output-dir ./assessments
  veracity batch paper.txt claims.txt --metrics-addr :9464`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers; overrides workers.concurrency")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./veracity-assessments", "output directory for assessments")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	batchCmd.Flags().String("llm-provider", "", "LLM provider for entailment and explanation (openai, anthropic, ollama)")
	batchCmd.Flags().String("llm-model", "", "LLM model name")
	batchCmd.Flags().String("embedding-provider", "", "embedding provider (hash, openai, ollama, gemini)")
	batchOut.register(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	if err := batchOut.validate(); err != nil {
		return err
	}
	applyLLMFlags(cmd)

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		workers := concurrency
		if !cmd.Flags().Changed("concurrency") && viper.IsSet("workers.concurrency") {
			workers = a.cfg.Workers.Concurrency
		}

		addr := metricsAddr
		if addr == "" && a.cfg.Metrics.Enabled {
			addr = a.cfg.Metrics.Addr
		}
		if addr != "" {
			stop := serveMetrics(a, addr)
			defer stop()
		}

		docID, err := resolveDocument(ctx, a, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
		fmt.Fprintf(os.Stderr, "  Veracity Batch Assessment\n")
		fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  Document:     %s\n", docID)
		fmt.Fprintf(os.Stderr, "  Claims file:  %s\n", args[1])
		fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
		fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
		fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
		fmt.Fprintf(os.Stderr, "\n")

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		processor := worker.NewBatchProcessor(a.engine, workers)
		results, err := processor.ProcessFile(ctx, docID, args[1])
		if err != nil {
			return fmt.Errorf("process file: %w", err)
		}

		r := a.rendererFor(batchOut.noFooter)
		for _, res := range results {
			if res.Error != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Claim, res.Error)
				continue
			}

			as := res.Assessment
			base := filepath.Join(outputDir, fmt.Sprintf("%03d-%s", res.Index+1, as.ID))
			if err := r.WriteFile(base+".json", func(w io.Writer) error { return r.JSON(w, as) }); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", res.Claim, err)
				continue
			}
			if err := r.WriteFile(base+".md", func(w io.Writer) error { return r.AssessmentMarkdown(w, as) }); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", res.Claim, err)
				continue
			}

			fmt.Fprintf(os.Stderr, "✓ %s (%s, confidence %.2f)\n", res.Claim, as.Stance, as.ConfidenceScore)
		}

		summary := worker.Summarize(results)

		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
		fmt.Fprintf(os.Stderr, "  Batch Complete\n")
		fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  Total:       %d claims\n", summary.Total)
		fmt.Fprintf(os.Stderr, "  Success:     %d\n", summary.Succeeded)
		fmt.Fprintf(os.Stderr, "  Failures:    %d\n", summary.Failed)
		fmt.Fprintf(os.Stderr, "  Confidence:  mean %.2f, median %.2f\n", summary.MeanConfidence, summary.MedianConfidence)
		fmt.Fprintf(os.Stderr, "\n")

		return r.WriteFile(batchOut.out, func(w io.Writer) error {
			md := func(w io.Writer) error { return r.BatchMarkdown(w, docID, results, summary) }
			switch batchOut.format {
			case "json":
				return r.JSON(w, summary)
			case "html":
				return r.HTML(w, "Batch assessment of "+docID, md)
			}
			return md(w)
		})
	})
}

// resolveDocument returns the id of a stored document, ingesting target
// when it is not one
func resolveDocument(ctx context.Context, a *app, target string) (string, error) {
	if _, err := os.Stat(target); err != nil && !ingest.IsURL(target) {
		doc, getErr := a.engine.GetDocument(ctx, target)
		if getErr == nil {
			return doc.ID, nil
		}
	}

	doc, err := ingestTarget(ctx, a, target)
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// serveMetrics exposes the recorder until the returned stop func runs
func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", logging.String("addr", addr), logging.Err(err))
		}
	}()
	a.log.Info("serving metrics", logging.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
