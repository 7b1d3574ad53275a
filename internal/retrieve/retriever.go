package retrieve

import (
	"sort"

	"github.com/ppiankov/veracity/internal/embed"
	"github.com/ppiankov/veracity/internal/model"
)

// Retriever ranks document sentences against a claim
type Retriever struct {
	topK          int
	minSimilarity float64
}

// NewRetriever keeps at most topK sentences scoring at least minSimilarity
func NewRetriever(topK int, minSimilarity float64) *Retriever {
	if topK < 1 {
		topK = 1
	}
	return &Retriever{topK: topK, minSimilarity: minSimilarity}
}

// Retrieve returns evidence ordered by descending similarity, ties broken
// by ascending sentence index. An empty result is valid.
func (r *Retriever) Retrieve(claim []float64, sentences []model.Sentence, vectors [][]float64) []model.EvidenceSnippet {
	candidates := make([]model.EvidenceSnippet, 0, len(sentences))
	for i, sentence := range sentences {
		if i >= len(vectors) {
			break
		}
		sim := embed.Similarity(claim, vectors[i])
		if sim < r.minSimilarity || sim == 0 {
			continue
		}
		candidates = append(candidates, model.EvidenceSnippet{
			Text:          sentence.Text,
			Similarity:    sim,
			SentenceIndex: sentence.Index,
			WordCount:     sentence.WordCount,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].SentenceIndex < candidates[j].SentenceIndex
	})

	if len(candidates) > r.topK {
		candidates = candidates[:r.topK]
	}
	return candidates
}
