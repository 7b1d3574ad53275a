package extract

import (
	"context"
	"strings"

	"github.com/ppiankov/veracity/internal/llm"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
)

// Longest document prefix sent to the model
const maxPromptChars = 12000

// Completer is the slice of llm.Client the augmenter needs
type Completer interface {
	Name() string
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// LLMAugmenter adds model-extracted findings after the heuristic ones
type LLMAugmenter struct {
	client    Completer
	heuristic *FindingExtractor
	log       logging.Logger
	metrics   *metrics.Recorder
}

// NewLLMAugmenter wraps the heuristic extractor with a model pass
func NewLLMAugmenter(client Completer, heuristic *FindingExtractor, log logging.Logger, rec *metrics.Recorder) *LLMAugmenter {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LLMAugmenter{client: client, heuristic: heuristic, log: log.Named("extract"), metrics: rec}
}

// Extract returns heuristic findings plus new valid model findings. On a
// model failure the heuristic findings come back with a degradation.
func (a *LLMAugmenter) Extract(ctx context.Context, text string, sentences []model.Sentence) ([]model.Finding, *model.Degradation) {
	base := a.heuristic.Scan(sentences)

	prompt := text
	if len(prompt) > maxPromptChars {
		prompt = strings.ToValidUTF8(prompt[:maxPromptChars], "")
	}

	resp, err := a.client.Complete(ctx, llm.ExtractionRequest(prompt, a.heuristic.maxFindings))
	var extra []model.Finding
	if err == nil {
		for _, f := range llm.ParseFindings(resp.Text) {
			if ValidFinding(f) {
				extra = append(extra, model.Finding{Text: f, Heuristic: string(model.FindingLLM), Sentence: -1})
			}
		}
	}

	if err != nil {
		a.log.Warn("extraction collaborator failed, using heuristic findings",
			logging.String("collaborator", a.client.Name()),
			logging.Err(err))
		a.metrics.Degradation(model.DegradeExtraction)
		return base, &model.Degradation{
			Stage:    "ingested",
			Kind:     model.DegradeExtraction,
			Reason:   err.Error(),
			Fallback: "heuristic",
		}
	}

	return a.heuristic.limit(Dedupe(base, extra)), nil
}
