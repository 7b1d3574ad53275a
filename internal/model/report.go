package model

import "time"

// Stance is the inferred relation between evidence and a claim
type Stance string

const (
	StanceSupports    Stance = "supports"
	StanceContradicts Stance = "contradicts"
	StanceNeutral     Stance = "neutral"
)

// Valid reports whether s is one of the three known stances
func (s Stance) Valid() bool {
	switch s {
	case StanceSupports, StanceContradicts, StanceNeutral:
		return true
	}
	return false
}

// Assessment is the result of evaluating one claim against one document.
// Immutable after creation except for ShareID and Feedback.
type Assessment struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	ClaimText  string `json:"claim_text"`

	SimilarityScore       float64 `json:"similarity_score"`
	Stance                Stance  `json:"stance"`
	EntailmentScore       float64 `json:"entailment_score"`
	MethodQualityScore    float64 `json:"method_quality_score"`
	EvidenceStrengthScore float64 `json:"evidence_strength_score"`
	ConfidenceScore       float64 `json:"confidence_score"`

	Explanation      string            `json:"explanation"`
	EvidenceSnippets []EvidenceSnippet `json:"evidence_snippets"`
	Citations        []Citation        `json:"citations"`

	Signals      []Signal      `json:"signals,omitempty"`      // Fusion breakdown with formulas
	Degradations []Degradation `json:"degradations,omitempty"` // Fallback paths taken
	ModelVersion string        `json:"model_version"`          // Embedding model actually used

	ShareID   string    `json:"share_id,omitempty"`
	Feedback  *Feedback `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Feedback is the single user rating attachable to an assessment
type Feedback struct {
	Score     int       `json:"score"` // -1 or 1
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Degradation records a collaborator that failed and the fallback used
type Degradation struct {
	Stage    string `json:"stage"`    // segmented, retrieved, classified, explained, ingested
	Kind     string `json:"kind"`     // embedding_fallback, stance_fallback, ...
	Reason   string `json:"reason"`   // Error text from the collaborator
	Fallback string `json:"fallback"` // Implementation that served the request
}

const (
	DegradeEmbedding   = "embedding_fallback"
	DegradeStance      = "stance_fallback"
	DegradeExplanation = "explanation_fallback"
	DegradeExtraction  = "extraction_fallback"
)

// QualityReport is the claim-independent methodological rubric result
type QualityReport struct {
	Score   float64  `json:"score"`
	Band    string   `json:"band"`
	Signals []Signal `json:"signals"`
}

// Signal represents a scoring input with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Present     bool                   `json:"present"`
	Weight      float64                `json:"weight"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies a scoring signal
type SignalType string

const (
	SignalSampleSize       SignalType = "sample_size"
	SignalControlGroup     SignalType = "control_group"
	SignalRandomization    SignalType = "randomization"
	SignalStatistical      SignalType = "statistical_significance"
	SignalPeerReview       SignalType = "peer_review"
	SignalLimitations      SignalType = "limitations"
	SignalSimilarity       SignalType = "similarity"
	SignalEntailment       SignalType = "entailment"
	SignalQuality          SignalType = "method_quality"
	SignalEvidenceStrength SignalType = "evidence_strength"
)

// Band maps a score onto the three-tier labels shown to callers
func Band(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "medium"
	default:
		return "low"
	}
}
