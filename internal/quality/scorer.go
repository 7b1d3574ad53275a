// Package quality scores a document's methodological rigor independently
// of any claim.
package quality

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/veracity/internal/model"
)

const (
	minSampleSize = 5
	maxSampleSize = 1_000_000
)

var (
	samplePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bn\s*=\s*(\d[\d,]*)`),
		regexp.MustCompile(`(?i)\bsample size (?:of|was|is|=)\s*(\d[\d,]*)`),
		regexp.MustCompile(`(?i)\b(\d[\d,]*)\s+(?:participants|subjects|patients|individuals|volunteers|respondents|adults|children|women|men)\b`),
		regexp.MustCompile(`(?i)\bstud(?:y|ies) (?:included|enrolled|recruited)\s+(\d[\d,]*)`),
	}
	controlPattern       = regexp.MustCompile(`(?i)\b(?:control (?:group|arm|condition|cohort)s?|placebo|comparison group|controlled trial)\b`)
	randomizationPattern = regexp.MustCompile(`(?i)\b(?:randomi[sz](?:ed|ation)|randomly (?:assigned|allocated))\b`)
	statisticalPattern   = regexp.MustCompile(`(?i)(?:\bp\s*[<=>≤]\s*0?\.\d+|\b(?:95|99)\s*%\s*(?:ci|confidence interval)|\bconfidence intervals?\b|\bstatistically significant)`)
	peerReviewPattern    = regexp.MustCompile(`(?i)(?:\bpeer[- ]reviewed\b|\bpublished in\b|\bjournal of\b|\bdoi:?\s*10\.\d{4,9}/|\b10\.\d{4,9}/\S+)`)
	limitationsPattern   = regexp.MustCompile(`(?i)\b(?:limitations?|caveats?|shortcomings?)\b`)
)

// Scorer applies the weighted methodological rubric
type Scorer struct {
	weights   model.QualityWeights
	authority *AuthorityClassifier
}

// NewScorer creates a rubric scorer. authority may be nil.
func NewScorer(weights model.QualityWeights, authority *AuthorityClassifier) *Scorer {
	if authority == nil {
		authority = NewAuthorityClassifier(nil)
	}
	return &Scorer{weights: weights, authority: authority}
}

// Score evaluates the document's sentences and metadata. The result depends
// only on its inputs, so repeated calls on unchanged text agree.
func (s *Scorer) Score(doc *model.Document, sentences []model.Sentence) model.QualityReport {
	signals := []model.Signal{
		s.sampleSize(sentences),
		s.patternSignal(model.SignalControlGroup, s.weights.ControlGroup, controlPattern, sentences, "Control or comparison group"),
		s.patternSignal(model.SignalRandomization, s.weights.Randomization, randomizationPattern, sentences, "Randomized assignment"),
		s.patternSignal(model.SignalStatistical, s.weights.Statistical, statisticalPattern, sentences, "Statistical significance reported"),
		s.peerReview(doc, sentences),
		s.patternSignal(model.SignalLimitations, s.weights.Limitations, limitationsPattern, sentences, "Limitations discussed"),
	}

	var score float64
	for _, sig := range signals {
		if sig.Present {
			score += sig.Weight
		}
	}
	score = min(max(score, 0), 1)

	return model.QualityReport{
		Score:   score,
		Band:    model.Band(score),
		Signals: signals,
	}
}

// sampleSize finds the largest plausible sample size mentioned
func (s *Scorer) sampleSize(sentences []model.Sentence) model.Signal {
	best := 0
	var found []int
	var where []int

	for _, sent := range sentences {
		for _, re := range samplePatterns {
			for _, m := range re.FindAllStringSubmatch(sent.Text, -1) {
				n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
				if err != nil || n < minSampleSize || n > maxSampleSize {
					continue
				}
				found = append(found, n)
				where = append(where, sent.Index)
				best = max(best, n)
			}
		}
	}

	sig := model.Signal{
		Type:        model.SignalSampleSize,
		Present:     best > 0,
		Weight:      s.weights.SampleSize,
		Description: "No sample size reported",
		Data: map[string]interface{}{
			"bounds":  fmt.Sprintf("%d..%d", minSampleSize, maxSampleSize),
			"formula": "weight if any n in bounds",
		},
	}
	if sig.Present {
		sig.Description = fmt.Sprintf("Sample size reported (max n=%d)", best)
		sig.Data["max_sample_size"] = best
		sig.Data["matches"] = found
		sig.Data["sentences"] = where
	}
	return sig
}

func (s *Scorer) patternSignal(typ model.SignalType, weight float64, re *regexp.Regexp, sentences []model.Sentence, label string) model.Signal {
	var matches []string
	var where []int
	for _, sent := range sentences {
		for _, m := range re.FindAllString(sent.Text, -1) {
			matches = append(matches, m)
			where = append(where, sent.Index)
		}
	}

	sig := model.Signal{
		Type:        typ,
		Present:     len(matches) > 0,
		Weight:      weight,
		Description: label + ": not found",
	}
	if sig.Present {
		sig.Description = fmt.Sprintf("%s (%d mentions)", label, len(matches))
		sig.Data = map[string]interface{}{
			"matches":   matches,
			"sentences": where,
		}
	}
	return sig
}

// peerReview looks for journal cues in text, then the document's DOI, then
// the authority of its source URL
func (s *Scorer) peerReview(doc *model.Document, sentences []model.Sentence) model.Signal {
	sig := s.patternSignal(model.SignalPeerReview, s.weights.PeerReview, peerReviewPattern, sentences, "Peer review or journal indexing")
	if sig.Present {
		sig.Data["source"] = "text"
		return sig
	}
	if doc == nil {
		return sig
	}

	switch {
	case doc.DOI != "":
		sig.Present = true
		sig.Description = "Peer review or journal indexing (DOI " + doc.DOI + ")"
		sig.Data = map[string]interface{}{"source": "doi", "doi": doc.DOI}
	case doc.URL != "":
		tier := s.authority.Classify(doc.URL)
		if tier == model.TierPrimary {
			sig.Present = true
			sig.Description = "Peer review or journal indexing (primary source host)"
		}
		sig.Data = map[string]interface{}{"source": "url", "url": doc.URL, "authority": tier.String()}
	}
	return sig
}
