package stance

import (
	"context"

	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/util"
)

// negationWindow is how many words before a shared term a negation may sit
const negationWindow = 4

// Adjectival negators that may follow the term they negate
// ("the drug was ineffective")
var trailingNegators = map[string]bool{
	"ineffective": true, "failed": true, "fails": true, "unable": true,
	"absent": true, "absence": true,
}

// Heuristic is the lexical stance classifier. It needs no collaborator and
// is always available.
type Heuristic struct{}

// NewHeuristic creates the lexical classifier
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name identifies the classifier in degradation records
func (h *Heuristic) Name() string { return "heuristic" }

// Classify judges each snippet lexically and aggregates
func (h *Heuristic) Classify(ctx context.Context, claim string, evidence []model.EvidenceSnippet) (*Result, error) {
	verdicts := make([]Verdict, len(evidence))
	for i, e := range evidence {
		verdicts[i] = h.Judge(claim, e.Text)
	}
	return Aggregate(evidence, verdicts), nil
}

// Judge compares the polarity of claim and evidence around their shared
// terms. Opposite polarity is a contradiction, equal polarity support, and
// no shared term is neutral.
func (h *Heuristic) Judge(claim, evidence string) Verdict {
	claimTerms := util.TermSet(claim)
	if len(claimTerms) == 0 {
		return Verdict{Stance: model.StanceNeutral, Score: 1}
	}

	claimNegated := false
	for _, w := range util.Words(claim) {
		if util.IsNegation(w) {
			claimNegated = true
			break
		}
	}

	words := util.Words(util.StripCitations(evidence))
	matched := make(map[string]bool)
	evidenceNegated := false
	flipped := false
	contrast := false
	hedged := false

	for i, w := range words {
		switch {
		case util.IsContrast(w):
			contrast = true
		case util.IsHedge(w):
			hedged = true
		}
		if util.IsStopword(w) {
			continue
		}

		stem := util.Stem(w)
		hit := claimTerms[stem]
		if !hit {
			// "raises" against "lowers" asserts the opposite direction
			if opp, ok := util.Opposite(stem); ok && claimTerms[opp] {
				matched[opp] = true
				flipped = true
				if negatedNear(words, i) {
					evidenceNegated = true
				}
			}
			continue
		}

		matched[stem] = true
		if negatedNear(words, i) {
			evidenceNegated = true
		}
	}

	if len(matched) == 0 {
		return Verdict{Stance: model.StanceNeutral, Score: 0.6}
	}

	opposed := claimNegated != evidenceNegated
	if flipped {
		opposed = !opposed
	}

	score := 0.5 + 0.4*float64(len(matched))/float64(len(claimTerms))
	if contrast {
		score -= 0.1
	}
	if hedged {
		score -= 0.05
	}
	score = clamp01(score)

	if opposed {
		return Verdict{Stance: model.StanceContradicts, Score: score}
	}
	return Verdict{Stance: model.StanceSupports, Score: score}
}

// negatedNear reports a negation in the words just before i, or an
// adjectival negator just after it
func negatedNear(words []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if util.IsNegation(words[j]) {
			return true
		}
	}
	for j := i + 1; j < len(words) && j <= i+negationWindow; j++ {
		if trailingNegators[words[j]] {
			return true
		}
	}
	return false
}
