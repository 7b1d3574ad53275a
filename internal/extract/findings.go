// Package extract finds candidate declarative findings in a document.
package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/util"
)

// Extractor produces a document's findings. It never fails the pipeline:
// a collaborator problem comes back as a degradation alongside the
// heuristic findings.
type Extractor interface {
	Extract(ctx context.Context, text string, sentences []model.Sentence) ([]model.Finding, *model.Degradation)
}

const (
	minFindingChars = 20
	maxFindingChars = 500
	dedupeOverlap   = 0.6
)

type cue struct {
	kind    model.FindingKind
	phrases []string
}

// Checked in order; the first matching cue labels the sentence
var cues = []cue{
	{model.FindingConclusion, []string{
		"we conclude", "in conclusion", "our findings suggest", "results indicate",
		"evidence suggests", "we found that", "this study shows", "our results demonstrate",
		"the data indicate", "findings reveal", "we provide evidence", "results support",
		"evidence supports", "our study provides evidence",
	}},
	{model.FindingInference, []string{
		"therefore", "thus", "hence", "consequently", "in summary", "to summarize",
	}},
	{model.FindingHypothesis, []string{
		"we hypothesize", "we propose", "we predict", "our hypothesis", "we argue",
		"it is likely", "it is probable",
	}},
}

var statisticalMarker = regexp.MustCompile(`(?i)(?:\bp\s*[<=>≤]\s*0?\.\d+|\d+(?:\.\d+)?\s*%|\bsignificant(?:ly)?\b|\bodds ratio\b|\bhazard ratio\b)`)

// Canonical stems that mark an effect or association
var indicatorStems = map[string]bool{
	"decreas": true, "increas": true, "improv": true, "worsen": true,
	"caus": true, "prevent": true, "associat": true, "effect": true,
}

// FindingExtractor is the heuristic extractor
type FindingExtractor struct {
	maxFindings int
}

// NewFindingExtractor creates a heuristic extractor. maxFindings <= 0 keeps
// every finding.
func NewFindingExtractor(maxFindings int) *FindingExtractor {
	return &FindingExtractor{maxFindings: maxFindings}
}

// Extract scans sentences in document order
func (e *FindingExtractor) Extract(ctx context.Context, text string, sentences []model.Sentence) ([]model.Finding, *model.Degradation) {
	return e.Scan(sentences), nil
}

// Scan labels each sentence with the first cue it matches, drops invalid
// and near-duplicate findings, and applies the cap
func (e *FindingExtractor) Scan(sentences []model.Sentence) []model.Finding {
	var findings []model.Finding
	for _, s := range sentences {
		heuristic, ok := match(s.Text)
		if !ok || !ValidFinding(s.Text) {
			continue
		}
		findings = append(findings, model.Finding{
			Text:      strings.TrimSpace(s.Text),
			Heuristic: heuristic,
			Sentence:  s.Index,
		})
	}
	return e.limit(Dedupe(nil, findings))
}

func (e *FindingExtractor) limit(findings []model.Finding) []model.Finding {
	if e.maxFindings > 0 && len(findings) > e.maxFindings {
		return findings[:e.maxFindings]
	}
	return findings
}

// match returns the heuristic label for a finding sentence
func match(sentence string) (string, bool) {
	lower := strings.ToLower(sentence)
	for _, c := range cues {
		for _, phrase := range c.phrases {
			if containsPhrase(lower, phrase) {
				return string(c.kind) + ":" + phrase, true
			}
		}
	}

	if m := statisticalMarker.FindString(sentence); m != "" {
		return string(model.FindingStatistical) + ":" + strings.ToLower(m), true
	}

	for _, term := range util.Terms(sentence) {
		if indicatorStems[term] {
			return string(model.FindingIndicator) + ":" + term, true
		}
	}
	return "", false
}

// containsPhrase matches phrase on word boundaries ("thus" but not "enthusiasm")
func containsPhrase(lower, phrase string) bool {
	for i := 0; ; {
		j := strings.Index(lower[i:], phrase)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(phrase)
		if (start == 0 || !isWordByte(lower[start-1])) && (end == len(lower) || !isWordByte(lower[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// ValidFinding rejects fragments, overlong passages and citation-only text
func ValidFinding(text string) bool {
	stripped := util.StripCitations(text)
	if len(stripped) < minFindingChars || len(text) > maxFindingChars {
		return false
	}
	long := 0
	for _, w := range util.Words(stripped) {
		if len(w) > 3 {
			long++
		}
	}
	return long >= 3
}

// Dedupe appends candidates to existing, skipping any whose word overlap
// with an already kept finding exceeds the threshold
func Dedupe(existing, candidates []model.Finding) []model.Finding {
	kept := append([]model.Finding{}, existing...)
	sets := make([]map[string]bool, len(kept))
	for i, f := range kept {
		sets[i] = util.TermSet(f.Text)
	}

	for _, c := range candidates {
		set := util.TermSet(c.Text)
		dup := false
		for _, other := range sets {
			if util.Jaccard(set, other) > dedupeOverlap {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
			sets = append(sets, set)
		}
	}
	return kept
}
