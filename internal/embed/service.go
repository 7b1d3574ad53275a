package embed

import (
	"context"
	"fmt"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/util"
	"github.com/ppiankov/veracity/internal/worker"
)

// Vectors are the embeddings for one (document, claim) pair, all produced
// by the same model.
type Vectors struct {
	Sentences    [][]float64
	Claim        []float64
	ModelVersion string
	Degradation  *model.Degradation
}

// Service embeds documents and claims through a primary embedder, falling
// back to a local embedder when the primary is unavailable.
type Service struct {
	primary  Embedder
	fallback Embedder
	cache    *SentenceCache
	policy   worker.RetryPolicy
	limiter  *worker.Limiter
	log      logging.Logger
	metrics  *metrics.Recorder
}

// ServiceOptions wires a Service
type ServiceOptions struct {
	Primary  Embedder
	Fallback Embedder // nil disables fallback
	Cache    *SentenceCache
	Policy   worker.RetryPolicy
	Limiter  *worker.Limiter
	Logger   logging.Logger
	Metrics  *metrics.Recorder
}

// NewService creates an embedding service
func NewService(opts ServiceOptions) *Service {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	// Falling back to the same implementation would not help
	fallback := opts.Fallback
	if fallback != nil && opts.Primary != nil && fallback.Version() == opts.Primary.Version() {
		fallback = nil
	}
	return &Service{
		primary:  opts.Primary,
		fallback: fallback,
		cache:    opts.Cache,
		policy:   opts.Policy,
		limiter:  opts.Limiter,
		log:      log.Named("embed"),
		metrics:  opts.Metrics,
	}
}

// PrimaryVersion is the model version used when nothing degrades
func (s *Service) PrimaryVersion() string { return s.primary.Version() }

// Vectors embeds the document sentences (through the cache) and the claim
func (s *Service) Vectors(ctx context.Context, docID string, sentences []model.Sentence, claim string) (*Vectors, error) {
	vecs, err := s.vectorsWith(ctx, s.primary, docID, sentences, claim)
	if err == nil {
		return vecs, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if s.fallback == nil {
		return nil, apperr.Wrap(err, apperr.CodeCollaboratorUnavailable, "embedding "+s.primary.Name())
	}

	s.log.Warn("embedding collaborator unavailable, using fallback",
		logging.String("collaborator", s.primary.Name()),
		logging.String("fallback", s.fallback.Name()),
		logging.String("document_id", docID),
		logging.Err(err))
	s.metrics.Degradation(model.DegradeEmbedding)

	vecs, ferr := s.vectorsWith(ctx, s.fallback, docID, sentences, claim)
	if ferr != nil {
		return nil, apperr.Wrap(ferr, apperr.CodeCollaboratorUnavailable, "embedding fallback "+s.fallback.Name())
	}
	vecs.Degradation = &model.Degradation{
		Stage:    "retrieved",
		Kind:     model.DegradeEmbedding,
		Reason:   err.Error(),
		Fallback: s.fallback.Version(),
	}
	return vecs, nil
}

func (s *Service) vectorsWith(ctx context.Context, e Embedder, docID string, sentences []model.Sentence, claim string) (*Vectors, error) {
	texts := make([]string, len(sentences))
	for i, sentence := range sentences {
		texts[i] = util.StripCitations(sentence.Text)
	}

	compute := func(ctx context.Context) ([][]float64, error) {
		return s.embed(ctx, e, texts)
	}

	var sentVecs [][]float64
	var err error
	if s.cache != nil {
		sentVecs, err = s.cache.Get(ctx, docID, e.Version(), sentences, compute)
	} else {
		sentVecs, err = compute(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("embed sentences: %w", err)
	}

	claimVecs, err := s.embed(ctx, e, []string{util.StripCitations(claim)})
	if err != nil {
		return nil, fmt.Errorf("embed claim: %w", err)
	}

	return &Vectors{
		Sentences:    sentVecs,
		Claim:        claimVecs[0],
		ModelVersion: e.Version(),
	}, nil
}

// embed applies rate limiting and the retry policy to remote embedders
func (s *Service) embed(ctx context.Context, e Embedder, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if _, local := e.(*HashEmbedder); local {
		return e.Embed(ctx, texts)
	}

	collaborator := "embedding:" + e.Name()
	var out [][]float64
	attempts, err := s.policy.Do(ctx, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx, collaborator); err != nil {
			return err
		}
		vecs, err := e.Embed(ctx, texts)
		if err != nil {
			s.metrics.Collaborator(collaborator, "error")
			return err
		}
		if len(vecs) != len(texts) {
			s.metrics.Collaborator(collaborator, "error")
			return fmt.Errorf("%s returned %d vectors for %d texts", e.Name(), len(vecs), len(texts))
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed after %d attempts: %w", e.Name(), attempts, err)
	}
	s.metrics.Collaborator(collaborator, "ok")
	return out, nil
}
