package explain

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ppiankov/veracity/internal/llm"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
)

var number = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Completer is the slice of llm.Client the enhancer needs
type Completer interface {
	Name() string
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// LLMEnhancer rewrites the template text with a language model. Output that
// introduces a number absent from the template is rejected, so reported
// scores cannot drift.
type LLMEnhancer struct {
	client  Completer
	base    *Template
	log     logging.Logger
	metrics *metrics.Recorder
}

// NewLLMEnhancer wraps base with a model rewrite
func NewLLMEnhancer(client Completer, base *Template, log logging.Logger, rec *metrics.Recorder) *LLMEnhancer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LLMEnhancer{client: client, base: base, log: log.Named("explain"), metrics: rec}
}

// Name identifies the generator
func (e *LLMEnhancer) Name() string { return "llm:" + e.client.Name() }

// Generate returns the rewritten text, or the template text and a
// degradation when the model fails or changes the numbers
func (e *LLMEnhancer) Generate(ctx context.Context, in Input) (string, *model.Degradation, error) {
	base := e.base.Render(in)

	resp, err := e.client.Complete(ctx, llm.ExplanationRequest(in.Claim, base))
	if err == nil {
		err = checkNumbers(base, resp.Text)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		e.log.Warn("explanation collaborator rejected, using template",
			logging.String("collaborator", e.client.Name()),
			logging.Err(err))
		e.metrics.Degradation(model.DegradeExplanation)
		return base, &model.Degradation{
			Stage:    "explained",
			Kind:     model.DegradeExplanation,
			Reason:   err.Error(),
			Fallback: e.base.Name(),
		}, nil
	}

	return resp.Text, nil, nil
}

// checkNumbers fails if rewritten is empty or states a number base does not
func checkNumbers(base, rewritten string) error {
	if rewritten == "" {
		return fmt.Errorf("empty rewrite")
	}
	allowed := make(map[string]bool)
	for _, n := range number.FindAllString(base, -1) {
		allowed[n] = true
	}
	for _, n := range number.FindAllString(rewritten, -1) {
		if !allowed[n] {
			return fmt.Errorf("rewrite introduced number %s", n)
		}
	}
	return nil
}
