package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/model"
)

var assessmentCols = []string{
	"id", "document_id", "claim_text", "stance", "confidence_score", "result",
	"share_id", "feedback_score", "feedback_comment", "feedback_at", "created_at",
}

type PostgresSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	db    *sqlx.DB
	store *Postgres
	ctx   context.Context
}

func (s *PostgresSuite) SetupTest() {
	raw, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.db = sqlx.NewDb(raw, "postgres")
	s.mock = mock
	s.store = NewPostgresWithDB(s.db)
	s.ctx = context.Background()
}

func (s *PostgresSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func (s *PostgresSuite) resultJSON(a model.Assessment) []byte {
	raw, err := json.Marshal(a)
	s.Require().NoError(err)
	return raw
}

func (s *PostgresSuite) TestMigrate() {
	s.mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s.NoError(s.store.Migrate(s.ctx))
}

func (s *PostgresSuite) TestSaveDocument() {
	s.mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.store.SaveDocument(s.ctx, &model.Document{
		ID:        "doc-1",
		Title:     "Exercise study",
		Text:      "Exercise lowers resting heart rate.",
		FileType:  "txt",
		CreatedAt: time.Now(),
	})
	s.NoError(err)
}

func (s *PostgresSuite) TestGetDocument_Found() {
	now := time.Now().UTC()
	quality, _ := json.Marshal(model.QualityReport{Score: 0.35, Band: "low"})

	s.mock.ExpectQuery(`SELECT (.+) FROM documents WHERE id = \$1`).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "authors", "abstract", "doi", "url", "file_type", "body", "extracted_claims",
			"method_quality_score", "confidence_score", "quality", "degradations", "created_at",
		}).AddRow(
			"doc-1", "Exercise study", []byte(`["Jane Smith","Li Wei"]`), "", "10.1234/x", "", "txt",
			"Exercise lowers resting heart rate.", []byte(`[]`), 0.35, 0.35, quality, []byte(`[]`), now,
		))

	doc, err := s.store.GetDocument(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Equal("Exercise study", doc.Title)
	s.Equal([]string{"Jane Smith", "Li Wei"}, doc.Authors)
	s.Equal("Exercise lowers resting heart rate.", doc.Text)
	s.Equal("10.1234/x", doc.DOI)
	s.InDelta(0.35, doc.Quality.Score, 1e-9)
}

func (s *PostgresSuite) TestGetDocument_NotFound() {
	s.mock.ExpectQuery(`SELECT (.+) FROM documents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.store.GetDocument(s.ctx, "missing")
	s.Equal(apperr.CodeDocumentNotFound, apperr.CodeOf(err))
}

func (s *PostgresSuite) TestSaveAssessment() {
	s.mock.ExpectExec("INSERT INTO assessments").
		WithArgs("a-1", "doc-1", "Exercise reduces heart rate", "supports", 0.75,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.store.SaveAssessment(s.ctx, &model.Assessment{
		ID:              "a-1",
		DocumentID:      "doc-1",
		ClaimText:       "Exercise reduces heart rate",
		Stance:          model.StanceSupports,
		ConfidenceScore: 0.75,
		CreatedAt:       time.Now(),
	})
	s.NoError(err)
}

func (s *PostgresSuite) TestGetAssessment_ColumnsOverrideSnapshot() {
	now := time.Now().UTC()
	snapshot := s.resultJSON(model.Assessment{
		ID:              "a-1",
		ClaimText:       "Exercise reduces heart rate",
		Stance:          model.StanceSupports,
		ConfidenceScore: 0.75,
	})

	s.mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(assessmentCols).AddRow(
			"a-1", "doc-1", "Exercise reduces heart rate", "supports", 0.75, snapshot,
			"share-1", 1, "helpful", now, now,
		))

	a, err := s.store.GetAssessment(s.ctx, "a-1")
	s.Require().NoError(err)
	s.Equal("doc-1", a.DocumentID)
	s.Equal("share-1", a.ShareID)
	s.Equal(model.StanceSupports, a.Stance)
	s.Require().NotNil(a.Feedback)
	s.Equal(1, a.Feedback.Score)
	s.Equal("helpful", a.Feedback.Comment)
}

func (s *PostgresSuite) TestGetAssessmentByShareID_NotFound() {
	s.mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE share_id = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(assessmentCols))

	_, err := s.store.GetAssessmentByShareID(s.ctx, "nope")
	s.Equal(apperr.CodeShareNotFound, apperr.CodeOf(err))
}

func (s *PostgresSuite) TestSetShareID_FirstWriterWins() {
	s.mock.ExpectExec(`UPDATE assessments SET share_id = \$2 WHERE id = \$1 AND share_id IS NULL`).
		WithArgs("a-1", "share-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.store.SetShareID(s.ctx, "a-1", "share-1")
	s.NoError(err)
	s.Equal("share-1", id)
}

func (s *PostgresSuite) TestSetShareID_AlreadyShared() {
	s.mock.ExpectExec(`UPDATE assessments SET share_id`).
		WithArgs("a-1", "share-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery(`SELECT share_id FROM assessments WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows([]string{"share_id"}).AddRow("share-1"))

	id, err := s.store.SetShareID(s.ctx, "a-1", "share-2")
	s.NoError(err)
	s.Equal("share-1", id)
}

func (s *PostgresSuite) TestSetShareID_Missing() {
	s.mock.ExpectExec(`UPDATE assessments SET share_id`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery(`SELECT share_id FROM assessments`).
		WillReturnRows(sqlmock.NewRows([]string{"share_id"}))

	_, err := s.store.SetShareID(s.ctx, "nope", "share-1")
	s.Equal(apperr.CodeAssessmentNotFound, apperr.CodeOf(err))
}

func (s *PostgresSuite) TestAttachFeedback_Stored() {
	s.mock.ExpectExec(`UPDATE assessments SET feedback_score (.+) WHERE id = \$1 AND feedback_score IS NULL`).
		WithArgs("a-1", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	fb, applied, err := s.store.AttachFeedback(s.ctx, "a-1", model.Feedback{Score: 1, Comment: "great"})
	s.NoError(err)
	s.True(applied)
	s.Equal("great", fb.Comment)
}

func (s *PostgresSuite) TestAttachFeedback_SecondSubmissionIsNoop() {
	now := time.Now().UTC()
	s.mock.ExpectExec(`UPDATE assessments SET feedback_score`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery(`SELECT (.+) FROM assessments WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(assessmentCols).AddRow(
			"a-1", "doc-1", "claim", "neutral", 0.1, s.resultJSON(model.Assessment{}),
			nil, -1, "first", now, now,
		))

	fb, applied, err := s.store.AttachFeedback(s.ctx, "a-1", model.Feedback{Score: 1, Comment: "second"})
	s.NoError(err)
	s.False(applied)
	s.Require().NotNil(fb)
	s.Equal(-1, fb.Score)
	s.Equal("first", fb.Comment)
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}
