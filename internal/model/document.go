package model

import "time"

// Document is an ingested source. Immutable once stored.
type Document struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	URL      string   `json:"url,omitempty"`
	FileType string   `json:"file_type"` // txt, html, url

	// Full extracted text. Never serialized to callers.
	Text string `json:"-"`

	ExtractedClaims    []Finding     `json:"extracted_claims"`
	MethodQualityScore float64       `json:"method_quality_score"`
	ConfidenceScore    float64       `json:"confidence_score"` // Document-level confidence, mirrors quality
	Quality            QualityReport `json:"quality"`
	Degradations       []Degradation `json:"degradations,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Sentence is a transient unit derived from Document text by the segmenter
type Sentence struct {
	Text      string `json:"text"`
	Index     int    `json:"index"` // Zero-based among retained sentences
	WordCount int    `json:"word_count"`
}

// ExtractedText is what the ingestion collaborator hands the engine
type ExtractedText struct {
	Text     string   `json:"text"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	URL      string   `json:"url,omitempty"`
	FileType string   `json:"file_type"`
}

// Source describes raw bytes handed to the ingestion collaborator
type Source struct {
	Name        string `json:"name"`                   // File name or URL
	ContentType string `json:"content_type,omitempty"` // MIME type when known
	URL         string `json:"url,omitempty"`          // Origin URL for fetched sources
}
