package model

// Finding is a candidate declarative result sentence extracted from a document
type Finding struct {
	Text      string `json:"text"`                // The finding text itself
	Heuristic string `json:"heuristic,omitempty"` // Which extraction rule matched (e.g., "cue:we found that")
	Sentence  int    `json:"sentence"`            // Sentence index in source (0-based), -1 for LLM-only findings
}

// FindingKind categorizes the lexical cue that surfaced a finding
type FindingKind string

const (
	FindingConclusion  FindingKind = "conclusion"  // Explicit conclusion phrasing ("we conclude")
	FindingInference   FindingKind = "inference"   // Therefore/thus/hence sentences
	FindingHypothesis  FindingKind = "hypothesis"  // Hypothesis statements
	FindingStatistical FindingKind = "statistical" // p-values, percentages, significance
	FindingIndicator   FindingKind = "indicator"   // Effect/association vocabulary
	FindingLLM         FindingKind = "llm"         // Added by the language-model augmenter
)

// Texts returns the finding texts in order
func Texts(findings []Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Text
	}
	return out
}
