package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/veracity/internal/model"
)

// mockAssessor fails claims containing "fail"
type mockAssessor struct{}

func (mockAssessor) CreateAssessment(ctx context.Context, documentID, claim string) (*model.Assessment, error) {
	time.Sleep(5 * time.Millisecond)
	if strings.Contains(claim, "fail") {
		return nil, errors.New("assessment error")
	}
	stance := model.StanceSupports
	confidence := 0.8
	if strings.Contains(claim, "not") {
		stance = model.StanceContradicts
		confidence = 0.4
	}
	return &model.Assessment{
		DocumentID:      documentID,
		ClaimText:       claim,
		Stance:          stance,
		ConfidenceScore: confidence,
	}, nil
}

func TestBatchProcessor_ProcessClaims_PreservesOrder(t *testing.T) {
	processor := NewBatchProcessor(mockAssessor{}, 3)
	claims := []string{"a holds", "b does not hold", "c will fail", "d holds", "e holds"}

	results := processor.ProcessClaims(context.Background(), "doc-1", claims)

	if len(results) != len(claims) {
		t.Fatalf("expected %d results, got %d", len(claims), len(results))
	}
	for i, r := range results {
		if r.Index != i || r.Claim != claims[i] {
			t.Errorf("result %d = %+v, want claim %q", i, r, claims[i])
		}
	}
	if results[2].Error == nil || results[2].Assessment != nil {
		t.Errorf("claim 2 should fail: %+v", results[2])
	}
	if results[0].Assessment == nil || results[0].Assessment.DocumentID != "doc-1" {
		t.Errorf("claim 0 should succeed: %+v", results[0])
	}
}

func TestBatchProcessor_ProcessClaims_Empty(t *testing.T) {
	results := NewBatchProcessor(mockAssessor{}, 2).ProcessClaims(context.Background(), "doc-1", nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessClaims_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(mockAssessor{}, 2).ProcessClaims(ctx, "doc-1", []string{"a", "b", "c"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("result %d is nil", i)
		}
	}
}

func TestSummarize(t *testing.T) {
	results := NewBatchProcessor(mockAssessor{}, 2).ProcessClaims(context.Background(), "doc-1",
		[]string{"a holds", "b does not hold", "c will fail", "d holds"})

	s := Summarize(results)
	if s.Total != 4 || s.Succeeded != 3 || s.Failed != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.ByStance[model.StanceSupports] != 2 || s.ByStance[model.StanceContradicts] != 1 {
		t.Errorf("by stance = %v", s.ByStance)
	}
	if diff := s.MeanConfidence - (0.8+0.4+0.8)/3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("mean confidence = %v", s.MeanConfidence)
	}
	if s.MedianConfidence != 0.8 {
		t.Errorf("median confidence = %v", s.MedianConfidence)
	}

	if empty := Summarize(nil); empty.MeanConfidence != 0 || empty.Total != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	content := "Exercise reduces heart rate\n# comment\n   \nCoffee improves memory   \nExercise reduces heart rate\n"

	path := filepath.Join(t.TempDir(), "claims.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	expected := []string{"Exercise reduces heart rate", "Coffee improves memory"}
	if len(claims) != len(expected) {
		t.Fatalf("expected %d claims, got %d: %v", len(expected), len(claims), claims)
	}
	for i, c := range claims {
		if c != expected[i] {
			t.Errorf("claim %d = %q, want %q", i, c, expected[i])
		}
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.txt")
	if err := os.WriteFile(path, []byte("a holds\n# skip\nb holds\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := NewBatchProcessor(mockAssessor{}, 2).ProcessFile(context.Background(), "doc-1", path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	if _, err := NewBatchProcessor(mockAssessor{}, 2).ProcessFile(context.Background(), "doc-1", "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestReadClaimsFromFile_Spreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.xlsx")

	f := excelize.NewFile()
	for i, v := range []string{"Claim", "Exercise reduces heart rate", "", "Coffee improves memory", "Exercise reduces heart rate"} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	expected := []string{"Exercise reduces heart rate", "Coffee improves memory"}
	if len(claims) != len(expected) {
		t.Fatalf("expected %d claims, got %d: %v", len(expected), len(claims), claims)
	}
	for i, c := range claims {
		if c != expected[i] {
			t.Errorf("claim %d = %q, want %q", i, c, expected[i])
		}
	}
}
