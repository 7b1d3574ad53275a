package segment

import (
	"reflect"
	"testing"
)

func TestSplit_Basic(t *testing.T) {
	s := NewSegmenter(3)
	text := "Exercise lowers resting heart rate. The control group showed no significant change. Sample size was 200 participants."

	got := s.Split(text)
	want := []string{
		"Exercise lowers resting heart rate.",
		"The control group showed no significant change.",
		"Sample size was 200 participants.",
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %+v", len(want), len(got), got)
	}
	for i, sentence := range got {
		if sentence.Text != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, sentence.Text, want[i])
		}
		if sentence.Index != i {
			t.Errorf("sentence %d: index %d", i, sentence.Index)
		}
	}
	if got[0].WordCount != 5 {
		t.Errorf("expected 5 words, got %d", got[0].WordCount)
	}
}

func TestSplit_AbbreviationsAndDecimals(t *testing.T) {
	s := NewSegmenter(3)
	text := "Smith et al. reported a mean of 3.5 mmHg (see Fig. 2) in the cohort. " +
		"Effects were larger, e.g. in older adults, than expected! " +
		"Was the effect causal? J. Doe thinks so in this study."

	got := s.Split(text)
	want := []string{
		"Smith et al. reported a mean of 3.5 mmHg (see Fig. 2) in the cohort.",
		"Effects were larger, e.g. in older adults, than expected!",
		"Was the effect causal?",
		"J. Doe thinks so in this study.",
	}

	var texts []string
	for _, sentence := range got {
		texts = append(texts, sentence.Text)
	}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("got %q\nwant %q", texts, want)
	}
}

func TestSplit_DropsShortFragmentsWithoutGaps(t *testing.T) {
	s := NewSegmenter(3)
	text := "Results. The intervention improved outcomes markedly. Yes! Patients tolerated the dose well."

	got := s.Split(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(got), got)
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Errorf("expected contiguous indices, got %d and %d", got[0].Index, got[1].Index)
	}
	if got[1].Text != "Patients tolerated the dose well." {
		t.Errorf("unexpected second sentence %q", got[1].Text)
	}
}

func TestSplit_ParagraphsAndWhitespace(t *testing.T) {
	s := NewSegmenter(3)
	text := "Abstract heading without period\n\nWe   measured\tblood pressure\nin adults.  Outcomes improved."

	got := s.Split(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Abstract heading without period" {
		t.Errorf("unexpected first sentence %q", got[0].Text)
	}
	if got[1].Text != "We measured blood pressure in adults." {
		t.Errorf("unexpected second sentence %q", got[1].Text)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s := NewSegmenter(3)
	text := "First finding is here. Second finding follows now. Third one closes it."
	a := s.Split(text)
	b := s.Split(text)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical segmentation on repeated calls")
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := NewSegmenter(3).Split("   \n\n  "); len(got) != 0 {
		t.Errorf("expected no sentences, got %+v", got)
	}
}
