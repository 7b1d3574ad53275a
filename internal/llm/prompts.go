package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/veracity/internal/model"
)

const defaultTimeout = 30 * time.Second

// isPermanentStatus reports responses that retrying will not fix
func isPermanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

const extractionSystem = "You extract the key empirical findings stated in scientific text. Only list findings the text itself states. Never add facts."

// ExtractionRequest builds the prompt for finding extraction
func ExtractionRequest(text string, maxFindings int) CompletionRequest {
	limit := "the key findings"
	if maxFindings > 0 {
		limit = fmt.Sprintf("at most %d key findings", maxFindings)
	}
	return CompletionRequest{
		System: extractionSystem,
		Prompt: fmt.Sprintf(`List %s stated in the following document.
Quote or closely paraphrase each finding as one sentence.
Return a numbered list, one finding per line, with no other text.

Document:
%s`, limit, text),
	}
}

var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)

// ParseFindings reads a numbered or bulleted list into finding strings
func ParseFindings(text string) []string {
	var findings []string
	for _, line := range strings.Split(text, "\n") {
		if !listMarker.MatchString(line) {
			continue
		}
		finding := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		finding = strings.Trim(finding, `"`)
		if finding != "" {
			findings = append(findings, finding)
		}
	}
	return findings
}

const entailmentSystem = "You are a strict natural language inference judge for scientific claims."

// EntailmentRequest builds the prompt for single-snippet stance classification
func EntailmentRequest(claim, evidence string) CompletionRequest {
	return CompletionRequest{
		System: entailmentSystem,
		Prompt: fmt.Sprintf(`Does the evidence support, contradict, or say nothing about the claim?

Claim: %s
Evidence: %s

Answer with JSON only: {"stance": "supports|contradicts|neutral", "score": <confidence between 0 and 1>}`, claim, evidence),
		MaxTokens: 60,
	}
}

type entailmentAnswer struct {
	Stance string  `json:"stance"`
	Score  float64 `json:"score"`
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseEntailment extracts the stance verdict from a model answer
func ParseEntailment(text string) (model.Stance, float64, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return "", 0, fmt.Errorf("no JSON object in entailment answer: %q", text)
	}

	var answer entailmentAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return "", 0, fmt.Errorf("decode entailment answer: %w", err)
	}

	stance := model.Stance(strings.ToLower(strings.TrimSpace(answer.Stance)))
	if !stance.Valid() {
		return "", 0, fmt.Errorf("unknown stance %q", answer.Stance)
	}
	if answer.Score < 0 || answer.Score > 1 {
		return "", 0, fmt.Errorf("entailment score %.3f outside [0,1]", answer.Score)
	}
	return stance, answer.Score, nil
}

const explanationSystem = "You rewrite assessment summaries for clarity. You never change, add, or remove numbers, labels, or quotes."

// ExplanationRequest asks the model to polish a templated explanation
func ExplanationRequest(claim, base string) CompletionRequest {
	return CompletionRequest{
		System: explanationSystem,
		Prompt: fmt.Sprintf(`Rewrite this assessment of the claim "%s" as one clear paragraph for a non-specialist.
Keep every number, percentage, stance word and quoted passage exactly as written. Do not add new facts.

Assessment:
%s`, claim, base),
	}
}
