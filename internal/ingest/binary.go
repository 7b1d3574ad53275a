package ingest

import (
	"bytes"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/model"
)

// BinaryRejecter recognises PDF and Word files and refuses them with an
// ingestion error; convert them to text or HTML first.
type BinaryRejecter struct{}

// NewBinaryRejecter creates the rejecter
func NewBinaryRejecter() *BinaryRejecter {
	return &BinaryRejecter{}
}

// Name returns the extractor name
func (b *BinaryRejecter) Name() string { return "binary" }

// CanHandle matches by extension, MIME type or magic bytes
func (b *BinaryRejecter) CanHandle(src model.Source, head []byte) bool {
	switch extension(src) {
	case ".pdf", ".docx", ".doc":
		return true
	}
	switch mediaType(src, head) {
	case "application/pdf", "application/msword", "application/zip",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return true
	}
	return bytes.HasPrefix(head, []byte("%PDF")) || bytes.HasPrefix(head, []byte("PK\x03\x04"))
}

// Extract always fails
func (b *BinaryRejecter) Extract(raw []byte, src model.Source) (*model.ExtractedText, error) {
	return nil, apperr.Newf(apperr.CodeIngestionFailed, "unsupported format",
		"%s is a binary document; convert it to text or HTML first", src.Name)
}
