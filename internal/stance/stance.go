// Package stance infers whether evidence supports, contradicts or is
// neutral toward a claim.
package stance

import (
	"context"

	"github.com/ppiankov/veracity/internal/model"
)

// Verdict is the judgement for a single evidence snippet
type Verdict struct {
	Stance model.Stance
	Score  float64 // Confidence in Stance, [0,1]
}

// Result is the aggregated stance for a claim
type Result struct {
	Stance      model.Stance
	Entailment  float64
	Snippets    []model.EvidenceSnippet // Input snippets annotated with their verdicts
	Votes       map[model.Stance]float64
	Degradation *model.Degradation
}

// Classifier decides the stance of an evidence set toward a claim.
// Implementations must not fail the pipeline when an optional
// collaborator is down.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, claim string, evidence []model.EvidenceSnippet) (*Result, error)
}

// Aggregate combines per-snippet verdicts into one stance. Each snippet puts
// similarity*score behind its verdict and similarity*(1-score) behind
// neutral. The highest vote wins; a supports/contradicts tie or a tie with
// neutral resolves to neutral. Entailment is the winner's margin over the
// runner-up divided by the total vote.
func Aggregate(evidence []model.EvidenceSnippet, verdicts []Verdict) *Result {
	votes := map[model.Stance]float64{
		model.StanceSupports:    0,
		model.StanceContradicts: 0,
		model.StanceNeutral:     0,
	}

	snippets := make([]model.EvidenceSnippet, len(evidence))
	copy(snippets, evidence)

	var total float64
	for i := range snippets {
		v := verdicts[i]
		sim := snippets[i].Similarity
		snippets[i].Stance = v.Stance
		snippets[i].StanceScore = v.Score

		votes[v.Stance] += sim * v.Score
		votes[model.StanceNeutral] += sim * (1 - v.Score)
		total += sim
	}

	result := &Result{Stance: model.StanceNeutral, Snippets: snippets, Votes: votes}
	if len(snippets) == 0 || total == 0 {
		return result
	}

	sup, con, neu := votes[model.StanceSupports], votes[model.StanceContradicts], votes[model.StanceNeutral]
	switch {
	case sup > con && sup > neu:
		result.Stance = model.StanceSupports
		result.Entailment = (sup - max(con, neu)) / total
	case con > sup && con > neu:
		result.Stance = model.StanceContradicts
		result.Entailment = (con - max(sup, neu)) / total
	case sup == con && sup >= neu:
		// Conflicting evidence of equal weight
		result.Entailment = 0
	default:
		result.Entailment = (neu - max(sup, con)) / total
	}

	result.Entailment = clamp01(result.Entailment)
	return result
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
