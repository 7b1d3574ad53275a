// Package cite links evidence snippets back to their source document.
package cite

import (
	"fmt"

	"github.com/ppiankov/veracity/internal/model"
)

// Linker turns evidence into citations
type Linker struct{}

// NewLinker creates a citation linker
func NewLinker() *Linker {
	return &Linker{}
}

// Link maps each snippet to a Citation in evidence order. DOI and URL are
// copied from the document only when present.
func (l *Linker) Link(doc *model.Document, evidence []model.EvidenceSnippet) []model.Citation {
	citations := make([]model.Citation, 0, len(evidence))
	for i, e := range evidence {
		c := model.Citation{
			ID:              fmt.Sprintf("citation_%d", i+1),
			Text:            e.Text,
			SimilarityScore: e.Similarity,
			SnippetIndex:    e.SentenceIndex,
		}
		if doc != nil {
			c.DocumentID = doc.ID
			c.DocumentTitle = doc.Title
			c.DOI = doc.DOI
			c.URL = doc.URL
		}
		citations = append(citations, c)
	}
	return citations
}
