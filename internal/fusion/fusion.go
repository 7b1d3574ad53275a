// Package fusion combines the per-stage scores into one confidence score.
package fusion

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/ppiankov/veracity/internal/model"
)

// Inputs are the four signals fused into confidence
type Inputs struct {
	Similarity float64 // Best evidence similarity
	Entailment float64
	Quality    float64
	Evidence   []model.EvidenceSnippet
}

// Result is the fused score with its breakdown
type Result struct {
	EvidenceStrength float64
	Confidence       float64
	Signals          []model.Signal
}

// Fuser applies the configured weights
type Fuser struct {
	weights model.FusionWeights
}

// NewFuser creates a fuser. Weights are validated with the config.
func NewFuser(weights model.FusionWeights) *Fuser {
	return &Fuser{weights: weights}
}

// EvidenceStrength is the mean similarity of the retained evidence, 0 if none
func EvidenceStrength(evidence []model.EvidenceSnippet) float64 {
	if len(evidence) == 0 {
		return 0
	}
	sims := make(stats.Float64Data, len(evidence))
	for i, e := range evidence {
		sims[i] = e.Similarity
	}
	mean, err := stats.Mean(sims)
	if err != nil {
		return 0
	}
	return mean
}

// Fuse computes evidence strength and the weighted confidence, clamped to [0,1]
func (f *Fuser) Fuse(in Inputs) Result {
	strength := EvidenceStrength(in.Evidence)

	parts := []struct {
		typ    model.SignalType
		value  float64
		weight float64
		name   string
	}{
		{model.SignalSimilarity, clamp01(in.Similarity), f.weights.Similarity, "similarity"},
		{model.SignalEntailment, clamp01(in.Entailment), f.weights.Entailment, "entailment"},
		{model.SignalQuality, clamp01(in.Quality), f.weights.Quality, "method_quality"},
		{model.SignalEvidenceStrength, clamp01(strength), f.weights.EvidenceStrength, "evidence_strength"},
	}

	var confidence float64
	signals := make([]model.Signal, 0, len(parts))
	for _, p := range parts {
		contribution := p.value * p.weight
		confidence += contribution
		signals = append(signals, model.Signal{
			Type:        p.typ,
			Present:     p.value > 0,
			Weight:      p.weight,
			Description: fmt.Sprintf("%s %.3f x %.2f = %.3f", p.name, p.value, p.weight, contribution),
			Data: map[string]interface{}{
				"value":        p.value,
				"contribution": contribution,
			},
		})
	}
	signals[len(signals)-1].Data["formula"] = "mean(evidence similarity)"
	signals[len(signals)-1].Data["evidence_count"] = len(in.Evidence)

	return Result{
		EvidenceStrength: strength,
		Confidence:       clamp01(confidence),
		Signals:          signals,
	}
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
