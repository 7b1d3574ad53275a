package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	authors              JSONB NOT NULL DEFAULT '[]',
	abstract             TEXT NOT NULL DEFAULT '',
	doi                  TEXT NOT NULL DEFAULT '',
	url                  TEXT NOT NULL DEFAULT '',
	file_type            TEXT NOT NULL,
	body                 TEXT NOT NULL,
	extracted_claims     JSONB NOT NULL DEFAULT '[]',
	method_quality_score DOUBLE PRECISION NOT NULL,
	confidence_score     DOUBLE PRECISION NOT NULL,
	quality              JSONB NOT NULL,
	degradations         JSONB NOT NULL DEFAULT '[]',
	created_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	id               TEXT PRIMARY KEY,
	document_id      TEXT NOT NULL REFERENCES documents(id),
	claim_text       TEXT NOT NULL,
	stance           TEXT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	result           JSONB NOT NULL,
	share_id         TEXT UNIQUE,
	feedback_score   SMALLINT,
	feedback_comment TEXT,
	feedback_at      TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS assessments_document_id_idx ON assessments (document_id);
`

type documentRow struct {
	ID                 string    `db:"id"`
	Title              string    `db:"title"`
	Authors            []byte    `db:"authors"`
	Abstract           string    `db:"abstract"`
	DOI                string    `db:"doi"`
	URL                string    `db:"url"`
	FileType           string    `db:"file_type"`
	Body               string    `db:"body"`
	ExtractedClaims    []byte    `db:"extracted_claims"`
	MethodQualityScore float64   `db:"method_quality_score"`
	ConfidenceScore    float64   `db:"confidence_score"`
	Quality            []byte    `db:"quality"`
	Degradations       []byte    `db:"degradations"`
	CreatedAt          time.Time `db:"created_at"`
}

type assessmentRow struct {
	ID              string         `db:"id"`
	DocumentID      string         `db:"document_id"`
	ClaimText       string         `db:"claim_text"`
	Stance          string         `db:"stance"`
	ConfidenceScore float64        `db:"confidence_score"`
	Result          []byte         `db:"result"`
	ShareID         sql.NullString `db:"share_id"`
	FeedbackScore   sql.NullInt32  `db:"feedback_score"`
	FeedbackComment sql.NullString `db:"feedback_comment"`
	FeedbackAt      sql.NullTime   `db:"feedback_at"`
	CreatedAt       time.Time      `db:"created_at"`
}

const assessmentColumns = `id, document_id, claim_text, stance, confidence_score, result,
	share_id, feedback_score, feedback_comment, feedback_at, created_at`

// Postgres stores records in PostgreSQL. Scores and collections are kept as
// JSONB alongside the columns used for lookups.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to dsn and ensures the schema exists
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, apperr.Newf(apperr.CodeConfigInvalid, "invalid configuration", "store.dsn is required for the postgres driver")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	p := NewPostgresWithDB(db)
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithDB wraps an existing connection
func NewPostgresWithDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables if they do not exist
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (p *Postgres) SaveDocument(ctx context.Context, doc *model.Document) error {
	row, err := toDocumentRow(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (
			id, title, authors, abstract, doi, url, file_type, body, extracted_claims,
			method_quality_score, confidence_score, quality, degradations, created_at
		) VALUES (
			:id, :title, :authors, :abstract, :doi, :url, :file_type, :body, :extracted_claims,
			:method_quality_score, :confidence_score, :quality, :degradations, :created_at
		)`

	if _, err := p.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (p *Postgres) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var row documentRow
	err := p.db.GetContext(ctx, &row, `
		SELECT id, title, authors, abstract, doi, url, file_type, body, extracted_claims,
			method_quality_score, confidence_score, quality, degradations, created_at
		FROM documents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrDocumentNotFound.WithDetail(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return row.toModel()
}

func (p *Postgres) SaveAssessment(ctx context.Context, a *model.Assessment) error {
	result, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO assessments (id, document_id, claim_text, stance, confidence_score, result, share_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.DocumentID, a.ClaimText, string(a.Stance), a.ConfidenceScore, result,
		nullString(a.ShareID), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (p *Postgres) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	var row assessmentRow
	err := p.db.GetContext(ctx, &row, `SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrAssessmentNotFound.WithDetail(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return row.toModel()
}

func (p *Postgres) GetAssessmentByShareID(ctx context.Context, shareID string) (*model.Assessment, error) {
	var row assessmentRow
	err := p.db.GetContext(ctx, &row, `SELECT `+assessmentColumns+` FROM assessments WHERE share_id = $1`, shareID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrShareNotFound.WithDetail(shareID)
	}
	if err != nil {
		return nil, fmt.Errorf("get shared assessment: %w", err)
	}
	return row.toModel()
}

func (p *Postgres) SetShareID(ctx context.Context, assessmentID, shareID string) (string, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE assessments SET share_id = $2 WHERE id = $1 AND share_id IS NULL`,
		assessmentID, shareID)
	if err != nil {
		return "", fmt.Errorf("set share id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return shareID, nil
	}

	// Lost the race or already shared
	var existing sql.NullString
	err = p.db.GetContext(ctx, &existing, `SELECT share_id FROM assessments WHERE id = $1`, assessmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrAssessmentNotFound.WithDetail(assessmentID)
	}
	if err != nil {
		return "", fmt.Errorf("get share id: %w", err)
	}
	return existing.String, nil
}

func (p *Postgres) AttachFeedback(ctx context.Context, assessmentID string, fb model.Feedback) (*model.Feedback, bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE assessments SET feedback_score = $2, feedback_comment = $3, feedback_at = $4
		WHERE id = $1 AND feedback_score IS NULL`,
		assessmentID, fb.Score, nullString(fb.Comment), fb.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("attach feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return &fb, true, nil
	}

	a, err := p.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, false, err
	}
	return a.Feedback, false, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func toDocumentRow(doc *model.Document) (*documentRow, error) {
	row := &documentRow{
		ID:                 doc.ID,
		Title:              doc.Title,
		Abstract:           doc.Abstract,
		DOI:                doc.DOI,
		URL:                doc.URL,
		FileType:           doc.FileType,
		Body:               doc.Text,
		MethodQualityScore: doc.MethodQualityScore,
		ConfidenceScore:    doc.ConfidenceScore,
		CreatedAt:          doc.CreatedAt,
	}

	var err error
	if row.Authors, err = marshalList(doc.Authors); err != nil {
		return nil, fmt.Errorf("marshal authors: %w", err)
	}
	if row.ExtractedClaims, err = marshalList(doc.ExtractedClaims); err != nil {
		return nil, fmt.Errorf("marshal findings: %w", err)
	}
	if row.Quality, err = json.Marshal(doc.Quality); err != nil {
		return nil, fmt.Errorf("marshal quality: %w", err)
	}
	if row.Degradations, err = marshalList(doc.Degradations); err != nil {
		return nil, fmt.Errorf("marshal degradations: %w", err)
	}
	return row, nil
}

func (r *documentRow) toModel() (*model.Document, error) {
	doc := &model.Document{
		ID:                 r.ID,
		Title:              r.Title,
		Abstract:           r.Abstract,
		DOI:                r.DOI,
		URL:                r.URL,
		FileType:           r.FileType,
		Text:               r.Body,
		MethodQualityScore: r.MethodQualityScore,
		ConfidenceScore:    r.ConfidenceScore,
		CreatedAt:          r.CreatedAt,
	}
	for _, f := range []struct {
		name string
		raw  []byte
		dest interface{}
	}{
		{"authors", r.Authors, &doc.Authors},
		{"extracted_claims", r.ExtractedClaims, &doc.ExtractedClaims},
		{"quality", r.Quality, &doc.Quality},
		{"degradations", r.Degradations, &doc.Degradations},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", f.name, err)
		}
	}
	return doc, nil
}

func (r *assessmentRow) toModel() (*model.Assessment, error) {
	var a model.Assessment
	if err := json.Unmarshal(r.Result, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}

	// Mutable columns win over the snapshot taken at insert time
	a.ID = r.ID
	a.DocumentID = r.DocumentID
	a.CreatedAt = r.CreatedAt
	a.ShareID = r.ShareID.String
	a.Feedback = nil
	if r.FeedbackScore.Valid {
		a.Feedback = &model.Feedback{
			Score:     int(r.FeedbackScore.Int32),
			Comment:   r.FeedbackComment.String,
			CreatedAt: r.FeedbackAt.Time,
		}
	}
	return &a, nil
}

// marshalList encodes nil slices as [] so JSONB columns never hold null
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
