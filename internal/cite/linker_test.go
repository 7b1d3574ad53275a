package cite

import (
	"testing"

	"github.com/ppiankov/veracity/internal/model"
)

func TestLinker_Link(t *testing.T) {
	evidence := []model.EvidenceSnippet{
		{Text: "First.", Similarity: 0.9, SentenceIndex: 4},
		{Text: "Second.", Similarity: 0.5, SentenceIndex: 1},
	}

	t.Run("copies identifiers", func(t *testing.T) {
		doc := &model.Document{ID: "doc-1", Title: "Trial", DOI: "10.1000/182", URL: "https://doi.org/10.1000/182"}
		got := NewLinker().Link(doc, evidence)

		if len(got) != 2 {
			t.Fatalf("len = %d", len(got))
		}
		if got[0].ID != "citation_1" || got[1].ID != "citation_2" {
			t.Errorf("ids = %s, %s", got[0].ID, got[1].ID)
		}
		if got[0].SnippetIndex != 4 || got[0].SimilarityScore != 0.9 {
			t.Errorf("order not preserved: %+v", got[0])
		}
		if got[1].DOI != doc.DOI || got[1].URL != doc.URL || got[1].DocumentTitle != "Trial" {
			t.Errorf("identifiers not copied: %+v", got[1])
		}
	})

	t.Run("never fabricates identifiers", func(t *testing.T) {
		got := NewLinker().Link(&model.Document{ID: "doc-2", Title: "Notes"}, evidence)
		for _, c := range got {
			if c.DOI != "" || c.URL != "" {
				t.Errorf("fabricated identifier: %+v", c)
			}
		}
	})

	t.Run("empty evidence", func(t *testing.T) {
		got := NewLinker().Link(&model.Document{ID: "doc-3"}, nil)
		if got == nil || len(got) != 0 {
			t.Errorf("want empty non-nil list, got %#v", got)
		}
	})
}
