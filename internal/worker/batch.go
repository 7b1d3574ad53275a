package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/veracity/internal/model"
)

// Assessor evaluates one claim against a stored document
type Assessor interface {
	CreateAssessment(ctx context.Context, documentID, claim string) (*model.Assessment, error)
}

// ClaimJob assesses one claim of a batch
type ClaimJob struct {
	Index      int
	DocumentID string
	Claim      string
	Assessor   Assessor
}

// Execute runs the assessment
func (j *ClaimJob) Execute(ctx context.Context) Result {
	a, err := j.Assessor.CreateAssessment(ctx, j.DocumentID, j.Claim)
	return &ClaimResult{
		Index:      j.Index,
		Claim:      j.Claim,
		Assessment: a,
		Error:      err,
	}
}

// ClaimResult is the outcome for one claim
type ClaimResult struct {
	Index      int
	Claim      string
	Assessment *model.Assessment
	Error      error
}

// GetError returns the assessment error, if any
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchProcessor assesses many claims against one document concurrently
type BatchProcessor struct {
	assessor    Assessor
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(assessor Assessor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		assessor:    assessor,
		concurrency: concurrency,
	}
}

// ProcessClaims assesses every claim and returns results in input order.
// Claims not started before ctx ends carry ctx's error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, documentID string, claims []string) []*ClaimResult {
	out := make([]*ClaimResult, len(claims))
	if len(claims) == 0 {
		return out
	}

	jobs := make([]Job, len(claims))
	for i, claim := range claims {
		jobs[i] = &ClaimJob{
			Index:      i,
			DocumentID: documentID,
			Claim:      claim,
			Assessor:   b.assessor,
		}
	}

	for _, result := range Run(ctx, b.concurrency, jobs) {
		r := result.(*ClaimResult)
		out[r.Index] = r
	}

	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &ClaimResult{Index: i, Claim: claims[i], Error: err}
		}
	}
	return out
}

// ProcessFile reads claims from a file and assesses them
func (b *BatchProcessor) ProcessFile(ctx context.Context, documentID, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, documentID, claims), nil
}

// ReadClaimsFromFile reads one claim per line, skipping blank lines, #
// comments and duplicates. An .xlsx file contributes the first column of
// its first sheet.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	var lines []string
	var err error
	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		lines, err = readSpreadsheet(filePath)
	} else {
		lines, err = readLines(filePath)
	}
	if err != nil {
		return nil, err
	}

	var claims []string
	seen := make(map[string]bool)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}
	return claims, nil
}

func readLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return lines, nil
}

// readSpreadsheet returns column A of the first sheet. A "claim" header
// cell is dropped.
func readSpreadsheet(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	var lines []string
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "claim") {
			continue
		}
		lines = append(lines, row[0])
	}
	return lines, nil
}

// Summary aggregates a batch
type Summary struct {
	Total            int                  `json:"total"`
	Succeeded        int                  `json:"succeeded"`
	Failed           int                  `json:"failed"`
	ByStance         map[model.Stance]int `json:"by_stance"`
	MeanConfidence   float64              `json:"mean_confidence"`
	MedianConfidence float64              `json:"median_confidence"`
}

// Summarize counts outcomes and describes the confidence distribution of
// the successful assessments
func Summarize(results []*ClaimResult) Summary {
	s := Summary{
		Total:    len(results),
		ByStance: make(map[model.Stance]int),
	}

	var confidences stats.Float64Data
	for _, r := range results {
		if r == nil || r.Error != nil || r.Assessment == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.ByStance[r.Assessment.Stance]++
		confidences = append(confidences, r.Assessment.ConfidenceScore)
	}

	if len(confidences) > 0 {
		s.MeanConfidence, _ = stats.Mean(confidences)
		s.MedianConfidence, _ = stats.Median(confidences)
	}
	return s
}
