package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/embed"
	"github.com/ppiankov/veracity/internal/explain"
	"github.com/ppiankov/veracity/internal/fusion"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/stance"
)

// Stage is a state of one assessment request
type Stage string

const (
	StageReceived   Stage = "received"
	StageSegmented  Stage = "segmented"
	StageRetrieved  Stage = "retrieved"
	StageClassified Stage = "classified"
	StageFused      Stage = "fused"
	StageExplained  Stage = "explained"
	StageLinked     Stage = "linked"
	StageCommitted  Stage = "committed"
)

// request is the working state of one assessment. It is owned by a single
// goroutine and discarded if any transition fails.
type request struct {
	doc   *model.Document
	claim string
	state Stage

	sentences    []model.Sentence
	vectors      *embed.Vectors
	evidence     []model.EvidenceSnippet
	stance       *stance.Result
	fused        fusion.Result
	similarity   float64
	explanation  string
	citations    []model.Citation
	degradations []model.Degradation
	assessment   *model.Assessment
}

type transition struct {
	from Stage
	to   Stage
	run  func(*Engine, context.Context, *request) error
}

// Each transition moves the request exactly one state forward
var transitions = []transition{
	{StageReceived, StageSegmented, (*Engine).segment},
	{StageSegmented, StageRetrieved, (*Engine).retrieve},
	{StageRetrieved, StageClassified, (*Engine).classify},
	{StageClassified, StageFused, (*Engine).fuse},
	{StageFused, StageExplained, (*Engine).explain},
	{StageExplained, StageLinked, (*Engine).link},
	{StageLinked, StageCommitted, (*Engine).commit},
}

// execute drives r from received to committed
func (e *Engine) execute(ctx context.Context, r *request) error {
	log := e.log.With(
		logging.String("document_id", r.doc.ID),
	)
	started := time.Now()

	for _, t := range transitions {
		if r.state != t.from {
			return apperr.Newf(apperr.CodeProcessingFailed, "processing failed", "request in state %s, expected %s", r.state, t.from)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		stageStart := time.Now()
		if err := t.run(e, ctx, r); err != nil {
			log.Warn("assessment aborted",
				logging.String("stage", string(t.to)),
				logging.Err(err),
			)
			return stageError(t.to, err)
		}
		e.metrics.Stage(string(t.to), time.Since(stageStart))
		r.state = t.to
	}

	log.Info("assessment committed",
		logging.String("assessment_id", r.assessment.ID),
		logging.String("stance", string(r.assessment.Stance)),
		logging.Float64("confidence", r.assessment.ConfidenceScore),
		logging.Int("evidence", len(r.assessment.EvidenceSnippets)),
		logging.Int("degradations", len(r.degradations)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// stageError keeps typed and context errors and marks the rest as
// processing failures of the stage
func stageError(stage Stage, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch apperr.CodeOf(err) {
	case "":
		return apperr.Wrap(err, apperr.CodeProcessingFailed, string(stage))
	case apperr.CodeCollaboratorUnavailable:
		// All fallbacks are exhausted by the time an error reaches here
		return apperr.Wrap(err, apperr.CodeProcessingFailed, string(stage))
	}
	return err
}

func (e *Engine) degrade(r *request, d *model.Degradation) {
	if d == nil {
		return
	}
	r.degradations = append(r.degradations, *d)
	e.metrics.Degradation(d.Kind)
}

func (e *Engine) segment(ctx context.Context, r *request) error {
	r.sentences = e.segmenter.Split(r.doc.Text)
	if len(r.sentences) == 0 {
		return apperr.ErrDocumentUnprocessable.WithDetail("no sentences found in document text")
	}
	return nil
}

func (e *Engine) retrieve(ctx context.Context, r *request) error {
	vecs, err := e.embeddings.Vectors(ctx, r.doc.ID, r.sentences, r.claim)
	if err != nil {
		return err
	}
	r.vectors = vecs
	e.degrade(r, vecs.Degradation)

	r.evidence = e.retriever.Retrieve(vecs.Claim, r.sentences, vecs.Sentences)
	if len(r.evidence) > 0 {
		r.similarity = r.evidence[0].Similarity
	}
	return nil
}

func (e *Engine) classify(ctx context.Context, r *request) error {
	res, err := e.stance.Classify(ctx, r.claim, r.evidence)
	if err != nil {
		return fmt.Errorf("%s: %w", e.stance.Name(), err)
	}
	r.stance = res
	e.degrade(r, res.Degradation)
	return nil
}

func (e *Engine) fuse(ctx context.Context, r *request) error {
	r.fused = e.fuser.Fuse(fusion.Inputs{
		Similarity: r.similarity,
		Entailment: r.stance.Entailment,
		Quality:    r.doc.MethodQualityScore,
		Evidence:   r.stance.Snippets,
	})
	return nil
}

func (e *Engine) explain(ctx context.Context, r *request) error {
	in := explain.Input{
		Claim:      r.claim,
		Document:   r.doc,
		Stance:     r.stance.Stance,
		Similarity: r.similarity,
		Confidence: r.fused.Confidence,
		Quality:    r.doc.MethodQualityScore,
		Evidence:   r.stance.Snippets,
	}

	text, degradation, err := e.explainer.Generate(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text = e.template.Render(in)
		degradation = &model.Degradation{
			Stage:    string(StageExplained),
			Kind:     model.DegradeExplanation,
			Reason:   err.Error(),
			Fallback: e.template.Name(),
		}
	}
	r.explanation = text
	e.degrade(r, degradation)
	return nil
}

func (e *Engine) link(ctx context.Context, r *request) error {
	r.citations = e.linker.Link(r.doc, r.stance.Snippets)
	return nil
}

func (e *Engine) commit(ctx context.Context, r *request) error {
	snippets := r.stance.Snippets
	if snippets == nil {
		snippets = []model.EvidenceSnippet{}
	}

	a := &model.Assessment{
		ID:                    e.newID(),
		DocumentID:            r.doc.ID,
		ClaimText:             r.claim,
		SimilarityScore:       r.similarity,
		Stance:                r.stance.Stance,
		EntailmentScore:       r.stance.Entailment,
		MethodQualityScore:    r.doc.MethodQualityScore,
		EvidenceStrengthScore: r.fused.EvidenceStrength,
		ConfidenceScore:       r.fused.Confidence,
		Explanation:           r.explanation,
		EvidenceSnippets:      snippets,
		Citations:             r.citations,
		Signals:               r.fused.Signals,
		Degradations:          r.degradations,
		ModelVersion:          r.vectors.ModelVersion,
		CreatedAt:             e.now(),
	}

	if err := e.store.SaveAssessment(ctx, a); err != nil {
		return wrapStore(err, "save assessment")
	}
	r.assessment = a
	e.metrics.Assessment(string(a.Stance), a.ConfidenceScore)
	return nil
}
