// Package explain renders an assessment as a short natural-language paragraph.
package explain

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/util"
)

// Input is everything an explanation may state. Scores are final; a
// generator reports them and never changes them.
type Input struct {
	Claim      string
	Document   *model.Document
	Stance     model.Stance
	Similarity float64
	Confidence float64
	Quality    float64
	Evidence   []model.EvidenceSnippet
}

// Generator produces the explanation text
type Generator interface {
	Name() string
	Generate(ctx context.Context, in Input) (string, *model.Degradation, error)
}

var stanceSentences = map[string]map[model.Stance]string{
	"high": {
		model.StanceSupports:    "The evidence strongly supports the claim.",
		model.StanceContradicts: "The evidence strongly contradicts the claim.",
		model.StanceNeutral:     "The evidence is mixed: relevant passages neither clearly support nor contradict the claim.",
	},
	"medium": {
		model.StanceSupports:    "The evidence moderately supports the claim, but not definitively.",
		model.StanceContradicts: "The evidence suggests the claim may not be accurate.",
		model.StanceNeutral:     "The document discusses related topics but does not directly address the claim.",
	},
	"low": {
		model.StanceSupports:    "There is weak evidence supporting the claim.",
		model.StanceContradicts: "There is weak evidence against the claim.",
		model.StanceNeutral:     "The document does not contain enough relevant information to evaluate the claim.",
	},
}

// Claim wording that the evidence rarely licenses
var absoluteTerms = map[string]bool{
	"always": true, "never": true, "all": true, "none": true, "completely": true,
	"totally": true, "definitely": true, "certainly": true, "proves": true,
}

// Template fills fixed sentences from the scores. It is deterministic.
type Template struct {
	maxQuote int
}

// NewTemplate creates the template generator. maxQuote <= 0 disables
// quote truncation.
func NewTemplate(maxQuote int) *Template {
	return &Template{maxQuote: maxQuote}
}

// Name identifies the generator
func (t *Template) Name() string { return "template" }

// Generate never fails
func (t *Template) Generate(ctx context.Context, in Input) (string, *model.Degradation, error) {
	return t.Render(in), nil, nil
}

// Render builds the explanation paragraph
func (t *Template) Render(in Input) string {
	confBand := model.Band(in.Confidence)
	stance := in.Stance
	if !stance.Valid() {
		stance = model.StanceNeutral
	}

	parts := []string{stanceSentences[confBand][stance]}

	if len(in.Evidence) > 0 {
		top := in.Evidence[0]
		parts = append(parts, fmt.Sprintf("The most relevant passage (similarity %.2f) reads: %q.",
			top.Similarity, Truncate(top.Text, t.maxQuote)))
	} else {
		parts = append(parts, "No passage in the document was similar enough to the claim to count as evidence.")
	}

	parts = append(parts,
		fmt.Sprintf("Method quality is %s (%.2f) and overall confidence is %s (%.2f).",
			model.Band(in.Quality), in.Quality, confBand, in.Confidence),
		similaritySentence(in.Similarity),
		evidenceSentence(len(in.Evidence)),
	)

	if caution := overclaiming(in.Claim, in.Similarity); caution != "" {
		parts = append(parts, caution)
	}
	if lim := limitations(in); lim != "" {
		parts = append(parts, lim)
	}

	return strings.Join(parts, " ")
}

func similaritySentence(sim float64) string {
	switch {
	case sim >= 0.8:
		return "The claim closely matches the document's wording."
	case sim >= 0.6:
		return "The claim is reasonably similar to the document's findings."
	case sim >= 0.4:
		return "The claim has some similarity to the document's findings."
	default:
		return "The claim has limited similarity to the document's findings."
	}
}

func evidenceSentence(n int) string {
	switch {
	case n >= 5:
		return fmt.Sprintf("%d relevant passages were found.", n)
	case n >= 2:
		return fmt.Sprintf("%d relevant passages were identified.", n)
	case n == 1:
		return "One relevant passage was identified."
	default:
		return "No relevant passages were found."
	}
}

func overclaiming(claim string, sim float64) string {
	if sim >= 0.7 {
		return ""
	}
	for _, w := range util.Words(claim) {
		if absoluteTerms[w] {
			return "Caution: the claim uses absolute language that the evidence may not support."
		}
	}
	return ""
}

func limitations(in Input) string {
	var lims []string
	if in.Confidence < 0.5 {
		lims = append(lims, "confidence is low because the evidence is limited")
	}
	if in.Document != nil {
		if len(in.Document.ExtractedClaims) == 0 {
			lims = append(lims, "no clear findings were extracted from the document")
		}
		if in.Document.DOI == "" && in.Document.URL == "" {
			lims = append(lims, "the source could not be verified")
		}
	}
	if in.Quality < 0.4 {
		lims = append(lims, "methodological weaknesses reduce reliability")
	}
	if len(lims) == 0 {
		return ""
	}
	return "Limitations: " + strings.Join(lims, "; ") + "."
}

// Truncate shortens text to at most limit runes, cutting at a word boundary
// and marking the cut with "...". The kept prefix is verbatim.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := limit - 3
	if cut < 1 {
		return string(runes[:limit])
	}
	prefix := string(runes[:cut])
	if i := strings.LastIndexByte(prefix, ' '); i > len(prefix)/2 {
		prefix = prefix[:i]
	}
	return strings.TrimRight(prefix, " ,;:") + "..."
}
