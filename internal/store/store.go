// Package store persists documents and assessments. Committed records are
// read-only; the only updates are the share id and the single feedback entry.
package store

import (
	"context"
	"fmt"

	"github.com/ppiankov/veracity/internal/model"
)

// Store is the persistence collaborator handed to the engine
type Store interface {
	SaveDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)

	SaveAssessment(ctx context.Context, a *model.Assessment) error
	GetAssessment(ctx context.Context, id string) (*model.Assessment, error)
	GetAssessmentByShareID(ctx context.Context, shareID string) (*model.Assessment, error)

	// SetShareID assigns shareID unless the assessment already has one and
	// returns the share id now in effect
	SetShareID(ctx context.Context, assessmentID, shareID string) (string, error)

	// AttachFeedback stores fb if the assessment has no feedback yet. It
	// returns the feedback now in effect and whether fb was the one stored.
	AttachFeedback(ctx context.Context, assessmentID string, fb model.Feedback) (*model.Feedback, bool, error)

	Close() error
}

// Open creates the store selected by cfg
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Driver)
	}
}

func cloneDocument(d *model.Document) *model.Document {
	c := *d
	c.Authors = append([]string(nil), d.Authors...)
	c.ExtractedClaims = append([]model.Finding(nil), d.ExtractedClaims...)
	c.Quality.Signals = append([]model.Signal(nil), d.Quality.Signals...)
	c.Degradations = append([]model.Degradation(nil), d.Degradations...)
	return &c
}

func cloneAssessment(a *model.Assessment) *model.Assessment {
	c := *a
	c.EvidenceSnippets = append([]model.EvidenceSnippet(nil), a.EvidenceSnippets...)
	c.Citations = append([]model.Citation(nil), a.Citations...)
	c.Signals = append([]model.Signal(nil), a.Signals...)
	c.Degradations = append([]model.Degradation(nil), a.Degradations...)
	if a.Feedback != nil {
		fb := *a.Feedback
		c.Feedback = &fb
	}
	return &c
}
