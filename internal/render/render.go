// Package render writes assessments, documents and batch summaries as JSON
// or Markdown.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/worker"
)

const footer = "\n---\n\n_Generated by veracity. Confidence reflects how well this document supports the claim, not whether the claim is true._\n"

// Renderer formats engine results
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer. The footer is appended to Markdown output only.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// JSON writes v as indented JSON
func (r *Renderer) JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteFile renders into path, creating parent directories. "-" means stdout.
func (r *Renderer) WriteFile(path string, fn func(io.Writer) error) (err error) {
	if path == "-" {
		return fn(os.Stdout)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return fn(f)
}

// AssessmentMarkdown writes a human-readable assessment report
func (r *Renderer) AssessmentMarkdown(w io.Writer, a *model.Assessment) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Assessment %s\n\n", a.ID)
	fmt.Fprintf(&b, "**Claim:** %s\n\n", a.ClaimText)
	fmt.Fprintf(&b, "**Stance:** %s  \n", a.Stance)
	fmt.Fprintf(&b, "**Confidence:** %.2f (%s)\n\n", a.ConfidenceScore, model.Band(a.ConfidenceScore))

	b.WriteString("## Scores\n\n")
	b.WriteString("| Signal | Score |\n|---|---|\n")
	fmt.Fprintf(&b, "| Similarity | %.3f |\n", a.SimilarityScore)
	fmt.Fprintf(&b, "| Entailment | %.3f |\n", a.EntailmentScore)
	fmt.Fprintf(&b, "| Method quality | %.3f |\n", a.MethodQualityScore)
	fmt.Fprintf(&b, "| Evidence strength | %.3f |\n", a.EvidenceStrengthScore)
	fmt.Fprintf(&b, "| **Confidence** | **%.3f** |\n\n", a.ConfidenceScore)

	b.WriteString("## Explanation\n\n")
	b.WriteString(a.Explanation)
	b.WriteString("\n\n")

	b.WriteString("## Evidence\n\n")
	if len(a.EvidenceSnippets) == 0 {
		b.WriteString("No sentence in the document was similar enough to the claim.\n\n")
	}
	for i, s := range a.EvidenceSnippets {
		cite := ""
		if i < len(a.Citations) {
			cite = " [" + a.Citations[i].ID + "]"
		}
		fmt.Fprintf(&b, "%d. > %s%s\n   _similarity %.3f, %s_\n", i+1, escapeInline(s.Text), cite, s.Similarity, stanceLabel(s.Stance))
	}
	if len(a.EvidenceSnippets) > 0 {
		b.WriteString("\n")
	}

	if len(a.Citations) > 0 {
		b.WriteString("## Citations\n\n")
		for _, c := range a.Citations {
			fmt.Fprintf(&b, "- **%s** %s", c.ID, c.DocumentTitle)
			if c.DOI != "" {
				fmt.Fprintf(&b, " doi:%s", c.DOI)
			}
			if c.URL != "" {
				fmt.Fprintf(&b, " <%s>", c.URL)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	writeDegradations(&b, a.Degradations)

	fmt.Fprintf(&b, "_Model: %s. Created %s._\n", a.ModelVersion, a.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if a.ShareID != "" {
		fmt.Fprintf(&b, "_Share id: %s_\n", a.ShareID)
	}
	if a.Feedback != nil {
		fmt.Fprintf(&b, "_Feedback: %+d", a.Feedback.Score)
		if a.Feedback.Comment != "" {
			fmt.Fprintf(&b, " (%s)", a.Feedback.Comment)
		}
		b.WriteString("_\n")
	}

	return r.finish(w, &b)
}

// DocumentMarkdown writes a document summary with its quality rubric
func (r *Renderer) DocumentMarkdown(w io.Writer, d *model.Document) error {
	var b strings.Builder

	title := d.Title
	if title == "" {
		title = "Untitled document"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **ID:** %s\n", d.ID)
	if len(d.Authors) > 0 {
		fmt.Fprintf(&b, "- **Authors:** %s\n", strings.Join(d.Authors, ", "))
	}
	if d.DOI != "" {
		fmt.Fprintf(&b, "- **DOI:** %s\n", d.DOI)
	}
	if d.URL != "" {
		fmt.Fprintf(&b, "- **URL:** %s\n", d.URL)
	}
	fmt.Fprintf(&b, "- **Type:** %s\n", d.FileType)
	fmt.Fprintf(&b, "- **Method quality:** %.2f (%s)\n\n", d.MethodQualityScore, d.Quality.Band)

	if d.Abstract != "" {
		fmt.Fprintf(&b, "## Abstract\n\n%s\n\n", d.Abstract)
	}

	if len(d.Quality.Signals) > 0 {
		b.WriteString("## Quality signals\n\n")
		b.WriteString("| Signal | Present | Weight | Detail |\n|---|---|---|---|\n")
		for _, s := range d.Quality.Signals {
			present := "no"
			if s.Present {
				present = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %.2f | %s |\n", s.Type, present, s.Weight, escapeCell(s.Description))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Findings (%d)\n\n", len(d.ExtractedClaims))
	for _, f := range d.ExtractedClaims {
		fmt.Fprintf(&b, "- %s", escapeInline(f.Text))
		if f.Heuristic != "" {
			fmt.Fprintf(&b, " _(%s)_", f.Heuristic)
		}
		b.WriteString("\n")
	}
	if len(d.ExtractedClaims) > 0 {
		b.WriteString("\n")
	}

	writeDegradations(&b, d.Degradations)

	return r.finish(w, &b)
}

// BatchMarkdown writes one table row per claim followed by the summary
func (r *Renderer) BatchMarkdown(w io.Writer, documentID string, results []*worker.ClaimResult, summary worker.Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Batch assessment of %s\n\n", documentID)
	b.WriteString("| # | Claim | Stance | Confidence | Assessment |\n|---|---|---|---|---|\n")
	for _, res := range results {
		if res.Error != nil || res.Assessment == nil {
			reason := "failed"
			if res.Error != nil {
				reason = res.Error.Error()
			}
			fmt.Fprintf(&b, "| %d | %s | error | - | %s |\n", res.Index+1, escapeCell(res.Claim), escapeCell(reason))
			continue
		}
		a := res.Assessment
		fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s |\n", res.Index+1, escapeCell(res.Claim), a.Stance, a.ConfidenceScore, a.ID)
	}

	b.WriteString("\n## Summary\n\n")
	fmt.Fprintf(&b, "- **Total:** %d\n", summary.Total)
	fmt.Fprintf(&b, "- **Succeeded:** %d\n", summary.Succeeded)
	fmt.Fprintf(&b, "- **Failed:** %d\n", summary.Failed)
	for _, st := range []model.Stance{model.StanceSupports, model.StanceContradicts, model.StanceNeutral} {
		fmt.Fprintf(&b, "- **%s:** %d\n", st, summary.ByStance[st])
	}
	fmt.Fprintf(&b, "- **Mean confidence:** %.3f\n", summary.MeanConfidence)
	fmt.Fprintf(&b, "- **Median confidence:** %.3f\n", summary.MedianConfidence)

	return r.finish(w, &b)
}

func (r *Renderer) finish(w io.Writer, b *strings.Builder) error {
	if r.includeFooter {
		b.WriteString(footer)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

func writeDegradations(b *strings.Builder, degradations []model.Degradation) {
	if len(degradations) == 0 {
		return
	}
	b.WriteString("## Degradations\n\n")
	for _, d := range degradations {
		fmt.Fprintf(b, "- %s at %s: served by %s (%s)\n", d.Kind, d.Stage, d.Fallback, d.Reason)
	}
	b.WriteString("\n")
}

func stanceLabel(s model.Stance) string {
	if s == "" {
		return "unclassified"
	}
	return string(s)
}

func escapeInline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// escapeCell keeps a value on one table row
func escapeCell(s string) string {
	return strings.ReplaceAll(escapeInline(s), "|", `\|`)
}
