package stance

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/veracity/internal/llm"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
)

// Completer is the slice of llm.Client the classifier needs
type Completer interface {
	Name() string
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// LLMClassifier asks a language model to judge each snippet. Snippets the
// model cannot judge fall back to the heuristic, and the result carries a
// degradation record.
type LLMClassifier struct {
	client      Completer
	fallback    *Heuristic
	concurrency int
	log         logging.Logger
	metrics     *metrics.Recorder
}

// NewLLMClassifier creates a model-backed classifier
func NewLLMClassifier(client Completer, log logging.Logger, rec *metrics.Recorder) *LLMClassifier {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LLMClassifier{
		client:      client,
		fallback:    NewHeuristic(),
		concurrency: 4,
		log:         log.Named("stance"),
		metrics:     rec,
	}
}

// Name identifies the classifier
func (c *LLMClassifier) Name() string { return "llm:" + c.client.Name() }

// Classify judges snippets concurrently and aggregates in evidence order
func (c *LLMClassifier) Classify(ctx context.Context, claim string, evidence []model.EvidenceSnippet) (*Result, error) {
	verdicts := make([]Verdict, len(evidence))

	var (
		mu       sync.Mutex
		firstErr error
		fellBack int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, e := range evidence {
		g.Go(func() error {
			v, err := c.judge(gctx, claim, e.Text)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				fellBack++
				mu.Unlock()
				v = c.fallback.Judge(claim, e.Text)
			}
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := Aggregate(evidence, verdicts)
	if firstErr != nil {
		c.log.Warn("entailment collaborator failed, using heuristic",
			logging.String("collaborator", c.client.Name()),
			logging.Int("snippets", len(evidence)),
			logging.Int("fallbacks", fellBack),
			logging.Err(firstErr))
		c.metrics.Degradation(model.DegradeStance)
		result.Degradation = &model.Degradation{
			Stage:    "classified",
			Kind:     model.DegradeStance,
			Reason:   fmt.Sprintf("%d/%d snippets: %v", fellBack, len(evidence), firstErr),
			Fallback: c.fallback.Name(),
		}
	}
	return result, nil
}

func (c *LLMClassifier) judge(ctx context.Context, claim, evidence string) (Verdict, error) {
	resp, err := c.client.Complete(ctx, llm.EntailmentRequest(claim, evidence))
	if err != nil {
		return Verdict{}, err
	}
	s, score, err := llm.ParseEntailment(resp.Text)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Stance: s, Score: score}, nil
}
