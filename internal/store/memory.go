package store

import (
	"context"
	"sync"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/model"
)

// Memory keeps records in process. Values are copied in and out so callers
// cannot mutate committed state.
type Memory struct {
	mu          sync.RWMutex
	documents   map[string]*model.Document
	assessments map[string]*model.Assessment
	shares      map[string]string // share id -> assessment id
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		documents:   make(map[string]*model.Document),
		assessments: make(map[string]*model.Assessment),
		shares:      make(map[string]string),
	}
}

func (m *Memory) SaveDocument(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.documents[doc.ID]; exists {
		return apperr.Newf(apperr.CodeProcessingFailed, "duplicate document", "%s", doc.ID)
	}
	m.documents[doc.ID] = cloneDocument(doc)
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[id]
	if !ok {
		return nil, apperr.ErrDocumentNotFound.WithDetail(id)
	}
	return cloneDocument(doc), nil
}

func (m *Memory) SaveAssessment(ctx context.Context, a *model.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.assessments[a.ID]; exists {
		return apperr.Newf(apperr.CodeProcessingFailed, "duplicate assessment", "%s", a.ID)
	}
	if _, exists := m.documents[a.DocumentID]; !exists {
		return apperr.ErrDocumentNotFound.WithDetail(a.DocumentID)
	}
	m.assessments[a.ID] = cloneAssessment(a)
	if a.ShareID != "" {
		m.shares[a.ShareID] = a.ID
	}
	return nil
}

func (m *Memory) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assessments[id]
	if !ok {
		return nil, apperr.ErrAssessmentNotFound.WithDetail(id)
	}
	return cloneAssessment(a), nil
}

func (m *Memory) GetAssessmentByShareID(ctx context.Context, shareID string) (*model.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.shares[shareID]
	if !ok {
		return nil, apperr.ErrShareNotFound.WithDetail(shareID)
	}
	return cloneAssessment(m.assessments[id]), nil
}

func (m *Memory) SetShareID(ctx context.Context, assessmentID, shareID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[assessmentID]
	if !ok {
		return "", apperr.ErrAssessmentNotFound.WithDetail(assessmentID)
	}
	if a.ShareID != "" {
		return a.ShareID, nil
	}
	a.ShareID = shareID
	m.shares[shareID] = assessmentID
	return shareID, nil
}

func (m *Memory) AttachFeedback(ctx context.Context, assessmentID string, fb model.Feedback) (*model.Feedback, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[assessmentID]
	if !ok {
		return nil, false, apperr.ErrAssessmentNotFound.WithDetail(assessmentID)
	}
	if a.Feedback != nil {
		existing := *a.Feedback
		return &existing, false, nil
	}
	stored := fb
	a.Feedback = &stored
	return &fb, true, nil
}

func (m *Memory) Close() error { return nil }
