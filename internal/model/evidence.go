package model

// EvidenceSnippet is a single document sentence selected as relevant to a claim
type EvidenceSnippet struct {
	Text          string  `json:"text"`
	Similarity    float64 `json:"similarity"`     // Clamped cosine similarity to the claim, [0,1]
	SentenceIndex int     `json:"sentence_index"` // Position among the document's retained sentences
	WordCount     int     `json:"word_count"`

	// Set by the stance stage; not part of the ranking
	Stance      Stance  `json:"stance,omitempty"`
	StanceScore float64 `json:"stance_score,omitempty"`
}

// Citation links an evidence snippet back to its source document
type Citation struct {
	ID              string  `json:"id"` // citation_1, citation_2, ...
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
	DocumentID      string  `json:"document_id"`
	DocumentTitle   string  `json:"document_title"`
	SnippetIndex    int     `json:"snippet_index"`
	DOI             string  `json:"doi,omitempty"` // Only when the document has one
	URL             string  `json:"url,omitempty"` // Only when the document has one
}

// AuthorityTier represents the classification of a source host
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Publishers, indexes, preprint servers, agencies
	TierSecondary AuthorityTier = 2 // Encyclopedias, reputable science media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}
