package explain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/veracity/internal/llm"
	"github.com/ppiankov/veracity/internal/model"
)

func scenarioInput() Input {
	return Input{
		Claim:      "Exercise reduces heart rate",
		Document:   &model.Document{Title: "Exercise", ExtractedClaims: []model.Finding{{Text: "Exercise lowers resting heart rate."}}},
		Stance:     model.StanceSupports,
		Similarity: 0.894,
		Confidence: 0.7525,
		Quality:    0.35,
		Evidence:   []model.EvidenceSnippet{{Text: "Exercise lowers resting heart rate.", Similarity: 0.894}},
	}
}

func TestTemplate_Render(t *testing.T) {
	text := NewTemplate(240).Render(scenarioInput())

	for _, want := range []string{
		"strongly supports",
		`"Exercise lowers resting heart rate."`,
		"Method quality is low (0.35)",
		"overall confidence is high (0.75)",
		"the source could not be verified",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("explanation missing %q:\n%s", want, text)
		}
	}
}

func TestTemplate_Deterministic(t *testing.T) {
	tmpl := NewTemplate(240)
	first := tmpl.Render(scenarioInput())
	for i := 0; i < 3; i++ {
		if tmpl.Render(scenarioInput()) != first {
			t.Fatal("template output changed between runs")
		}
	}
}

func TestTemplate_EmptyEvidence(t *testing.T) {
	in := Input{Claim: "The moon is made of cheese", Stance: model.StanceNeutral, Quality: 0.35, Confidence: 0.07}
	text := NewTemplate(240).Render(in)

	if text == "" {
		t.Fatal("explanation must not be empty")
	}
	if !strings.Contains(text, "not contain enough relevant information") {
		t.Errorf("unexpected stance sentence: %s", text)
	}
	if !strings.Contains(text, "No passage in the document") {
		t.Errorf("expected no-evidence sentence: %s", text)
	}
}

func TestTemplate_Overclaiming(t *testing.T) {
	in := scenarioInput()
	in.Claim = "Exercise always reduces heart rate"
	in.Similarity = 0.5
	if text := NewTemplate(0).Render(in); !strings.Contains(text, "absolute language") {
		t.Errorf("expected caution: %s", text)
	}
}

func TestTruncate(t *testing.T) {
	long := "Participants who exercised regularly for twelve weeks showed markedly lower resting heart rates than sedentary controls."

	got := Truncate(long, 40)
	if utf8.RuneCountInString(got) > 40 {
		t.Errorf("len = %d: %q", utf8.RuneCountInString(got), got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}
	if !strings.HasPrefix(long, strings.TrimSuffix(got, "...")) {
		t.Errorf("prefix is not verbatim: %q", got)
	}

	if Truncate("short", 40) != "short" {
		t.Error("short text changed")
	}
	if Truncate(long, 0) != long {
		t.Error("limit 0 should disable truncation")
	}
}

type fakeCompleter struct {
	text string
	err  error
}

func (f fakeCompleter) Name() string { return "fake" }

func (f fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Text: f.text}, nil
}

func TestLLMEnhancer(t *testing.T) {
	in := scenarioInput()
	base := NewTemplate(240)

	tests := []struct {
		name     string
		client   fakeCompleter
		degraded bool
	}{
		{"accepted rewrite", fakeCompleter{text: "This document backs the claim: confidence is high (0.75), quality low (0.35)."}, false},
		{"new number rejected", fakeCompleter{text: "Confidence is 0.92, so the claim holds."}, true},
		{"collaborator error", fakeCompleter{err: errors.New("timeout")}, true},
		{"empty rewrite", fakeCompleter{text: ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewLLMEnhancer(tt.client, base, nil, nil)
			text, deg, err := gen.Generate(context.Background(), in)
			if err != nil {
				t.Fatal(err)
			}
			if (deg != nil) != tt.degraded {
				t.Fatalf("degradation = %+v, want degraded=%v", deg, tt.degraded)
			}
			if tt.degraded {
				if text != base.Render(in) {
					t.Errorf("fallback should be template text, got %q", text)
				}
				if deg.Kind != model.DegradeExplanation || deg.Fallback != "template" {
					t.Errorf("degradation = %+v", deg)
				}
			} else if text != tt.client.text {
				t.Errorf("text = %q", text)
			}
		})
	}
}
