// Package pipeline is the assessment engine: it ingests documents and runs
// each (document, claim) request through the staged scoring pipeline.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/cache"
	"github.com/ppiankov/veracity/internal/cite"
	"github.com/ppiankov/veracity/internal/embed"
	"github.com/ppiankov/veracity/internal/explain"
	"github.com/ppiankov/veracity/internal/extract"
	"github.com/ppiankov/veracity/internal/fusion"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/quality"
	"github.com/ppiankov/veracity/internal/retrieve"
	"github.com/ppiankov/veracity/internal/segment"
	"github.com/ppiankov/veracity/internal/stance"
	"github.com/ppiankov/veracity/internal/store"
)

const (
	maxClaimLength   = 2000
	maxCommentLength = 2000
)

// Deps are the collaborators of an Engine. Nil fields get the local,
// heuristic implementations built from the config.
type Deps struct {
	Store      store.Store
	Embeddings *embed.Service
	Stance     stance.Classifier
	Explainer  explain.Generator
	Findings   extract.Extractor
	Authority  *quality.AuthorityClassifier
	Logger     logging.Logger
	Metrics    *metrics.Recorder

	// Overridable for tests
	Now   func() time.Time
	NewID func() string
}

// Engine runs assessments. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	cfg        model.Config
	store      store.Store
	segmenter  *segment.Segmenter
	embeddings *embed.Service
	retriever  *retrieve.Retriever
	stance     stance.Classifier
	scorer     *quality.Scorer
	fuser      *fusion.Fuser
	explainer  explain.Generator
	template   *explain.Template
	linker     *cite.Linker
	findings   extract.Extractor
	log        logging.Logger
	metrics    *metrics.Recorder
	now        func() time.Time
	newID      func() string
}

// NewEngine wires an engine from cfg and deps
func NewEngine(cfg model.Config, deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	e := &Engine{
		cfg:        cfg,
		store:      deps.Store,
		segmenter:  segment.NewSegmenter(cfg.Engine.MinSentenceWords),
		embeddings: deps.Embeddings,
		retriever:  retrieve.NewRetriever(cfg.Engine.TopK, cfg.Engine.MinSimilarity),
		stance:     deps.Stance,
		scorer:     quality.NewScorer(cfg.Quality, deps.Authority),
		fuser:      fusion.NewFuser(cfg.Fusion),
		explainer:  deps.Explainer,
		template:   explain.NewTemplate(cfg.Engine.MaxQuoteLength),
		linker:     cite.NewLinker(),
		findings:   deps.Findings,
		log:        log.Named("engine"),
		metrics:    deps.Metrics,
		now:        deps.Now,
		newID:      deps.NewID,
	}

	if e.store == nil {
		e.store = store.NewMemory()
	}
	if e.embeddings == nil {
		memory := cache.NewMemoryCache(cfg.Cache.MemoryTTL, 10*time.Minute)
		e.embeddings = embed.NewService(embed.ServiceOptions{
			Primary: embed.NewHashEmbedder(cfg.Embedding.Dimensions),
			Cache:   embed.NewSentenceCache(memory, cfg.Cache.MemoryTTL, log, deps.Metrics),
			Logger:  log,
			Metrics: deps.Metrics,
		})
	}
	if e.stance == nil {
		e.stance = stance.NewHeuristic()
	}
	if e.explainer == nil {
		e.explainer = e.template
	}
	if e.findings == nil {
		e.findings = extract.NewFindingExtractor(cfg.Engine.MaxFindings)
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Store returns the persistence collaborator
func (e *Engine) Store() store.Store { return e.store }

// IngestDocument segments, extracts findings and scores method quality once,
// then stores the immutable document
func (e *Engine) IngestDocument(ctx context.Context, in *model.ExtractedText) (*model.Document, error) {
	if in == nil || strings.TrimSpace(in.Text) == "" {
		return nil, apperr.ErrInputInvalid.WithDetail("document text is empty")
	}
	if !utf8.ValidString(in.Text) {
		return nil, apperr.ErrInputInvalid.WithDetail("document text is not valid UTF-8")
	}

	start := time.Now()
	sentences := e.segmenter.Split(in.Text)
	if len(sentences) == 0 {
		return nil, apperr.ErrDocumentUnprocessable.WithDetail("no sentences found in document text")
	}

	doc := &model.Document{
		ID:        e.newID(),
		Title:     strings.TrimSpace(in.Title),
		Authors:   in.Authors,
		Abstract:  in.Abstract,
		DOI:       in.DOI,
		URL:       in.URL,
		FileType:  in.FileType,
		Text:      in.Text,
		CreatedAt: e.now(),
	}
	if doc.Title == "" {
		doc.Title = "Untitled Document"
	}
	if doc.Authors == nil {
		doc.Authors = []string{}
	}

	findings, degradation := e.findings.Extract(ctx, in.Text, sentences)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if findings == nil {
		findings = []model.Finding{}
	}
	doc.ExtractedClaims = findings
	if degradation != nil {
		doc.Degradations = append(doc.Degradations, *degradation)
		e.metrics.Degradation(degradation.Kind)
	}

	doc.Quality = e.scorer.Score(doc, sentences)
	doc.MethodQualityScore = doc.Quality.Score
	doc.ConfidenceScore = doc.Quality.Score

	if err := e.store.SaveDocument(ctx, doc); err != nil {
		return nil, wrapStore(err, "save document")
	}

	e.metrics.Ingested(doc.FileType)
	e.log.Info("document ingested",
		logging.String("document_id", doc.ID),
		logging.String("file_type", doc.FileType),
		logging.Int("sentences", len(sentences)),
		logging.Int("findings", len(findings)),
		logging.Float64("method_quality", doc.MethodQualityScore),
		logging.Duration("elapsed", time.Since(start)),
	)
	return doc, nil
}

// GetDocument loads a stored document
func (e *Engine) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.ErrDocumentNotFound.WithDetail("empty id")
	}
	return e.store.GetDocument(ctx, id)
}

// CreateAssessment evaluates claim against a stored document and commits
// the result. Nothing is stored when any stage fails.
func (e *Engine) CreateAssessment(ctx context.Context, documentID, claim string) (*model.Assessment, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return nil, apperr.ErrInputInvalid.WithDetail("claim text is empty")
	}
	if utf8.RuneCountInString(claim) > maxClaimLength {
		return nil, apperr.Newf(apperr.CodeInputInvalid, "invalid input", "claim exceeds %d characters", maxClaimLength)
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, apperr.ErrInputInvalid.WithDetail("document id is empty")
	}

	doc, err := e.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, apperr.ErrDocumentUnprocessable.WithDetail("document has no text")
	}

	run := &request{doc: doc, claim: claim, state: StageReceived}
	if err := e.execute(ctx, run); err != nil {
		return nil, err
	}
	return run.assessment, nil
}

// GetAssessment loads a stored assessment
func (e *Engine) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.ErrAssessmentNotFound.WithDetail("empty id")
	}
	return e.store.GetAssessment(ctx, id)
}

// GetSharedAssessment loads an assessment by its public share id
func (e *Engine) GetSharedAssessment(ctx context.Context, shareID string) (*model.Assessment, error) {
	if strings.TrimSpace(shareID) == "" {
		return nil, apperr.ErrShareNotFound.WithDetail("empty share id")
	}
	return e.store.GetAssessmentByShareID(ctx, shareID)
}

// EnsureShareID returns the assessment's share id, generating it on first use
func (e *Engine) EnsureShareID(ctx context.Context, assessmentID string) (string, error) {
	a, err := e.GetAssessment(ctx, assessmentID)
	if err != nil {
		return "", err
	}
	if a.ShareID != "" {
		return a.ShareID, nil
	}

	shareID, err := e.store.SetShareID(ctx, assessmentID, e.newID())
	if err != nil {
		return "", wrapStore(err, "set share id")
	}
	e.log.Debug("assessment shared",
		logging.String("assessment_id", assessmentID),
		logging.String("share_id", shareID),
	)
	return shareID, nil
}

// RecordFeedback attaches a rating to an assessment. Only the first
// submission is kept; later ones return the stored feedback unchanged.
func (e *Engine) RecordFeedback(ctx context.Context, assessmentID string, score int, comment string) (*model.Feedback, error) {
	if score != 1 && score != -1 {
		return nil, apperr.Newf(apperr.CodeInputInvalid, "invalid input", "feedback score must be 1 or -1, got %d", score)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, apperr.Newf(apperr.CodeInputInvalid, "invalid input", "comment exceeds %d characters", maxCommentLength)
	}
	if strings.TrimSpace(assessmentID) == "" {
		return nil, apperr.ErrAssessmentNotFound.WithDetail("empty id")
	}

	fb, applied, err := e.store.AttachFeedback(ctx, assessmentID, model.Feedback{
		Score:     score,
		Comment:   comment,
		CreatedAt: e.now(),
	})
	if err != nil {
		return nil, wrapStore(err, "attach feedback")
	}
	if !applied {
		e.log.Info("feedback already recorded, ignoring resubmission",
			logging.String("assessment_id", assessmentID))
	}
	return fb, nil
}

// wrapStore keeps typed store errors and marks the rest as processing failures
func wrapStore(err error, op string) error {
	if apperr.CodeOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Wrap(err, apperr.CodeProcessingFailed, op)
}
