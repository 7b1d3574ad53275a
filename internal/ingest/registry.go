// Package ingest turns raw bytes from files or URLs into document text and
// metadata for the engine.
package ingest

import (
	"net/http"
	"path"
	"strings"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/model"
)

// Extractor handles one source format
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// CanHandle checks if this extractor understands the source
	CanHandle(src model.Source, head []byte) bool

	// Extract returns the document text and metadata
	Extract(raw []byte, src model.Source) (*model.ExtractedText, error)
}

// Registry picks an extractor per source
type Registry struct {
	extractors []Extractor
	fallback   Extractor
}

// NewRegistry creates a registry with the built-in extractors
func NewRegistry() *Registry {
	registry := &Registry{}

	// Binary formats are recognised first so they are never read as text
	registry.Register(NewBinaryRejecter())
	registry.Register(NewHTMLExtractor())

	registry.fallback = NewTextExtractor()

	return registry
}

// Register adds an extractor ahead of the text fallback
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Find returns the first extractor that can handle the source
func (r *Registry) Find(src model.Source, raw []byte) Extractor {
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	for _, e := range r.extractors {
		if e.CanHandle(src, head) {
			return e
		}
	}
	return r.fallback
}

// Extract runs the matching extractor and rejects empty documents
func (r *Registry) Extract(raw []byte, src model.Source) (*model.ExtractedText, error) {
	if len(raw) == 0 {
		return nil, apperr.Newf(apperr.CodeIngestionFailed, "ingestion failed", "%s is empty", src.Name)
	}

	e := r.Find(src, raw)
	out, err := e.Extract(raw, src)
	if err != nil {
		if apperr.CodeOf(err) != "" {
			return nil, err
		}
		return nil, apperr.Wrap(err, apperr.CodeIngestionFailed, e.Name()+" extraction failed")
	}

	if strings.TrimSpace(out.Text) == "" {
		return nil, apperr.Newf(apperr.CodeIngestionFailed, "ingestion failed", "no readable text in %s", src.Name)
	}
	if out.URL == "" {
		out.URL = src.URL
	}
	if out.Title == "" {
		out.Title = titleFromName(src.Name)
	}
	return out, nil
}

// mediaType returns the lowercased MIME type without parameters
func mediaType(src model.Source, head []byte) string {
	ct := src.ContentType
	if ct == "" && len(head) > 0 {
		ct = http.DetectContentType(head)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// extension returns the lowercased file extension of the source name or URL path
func extension(src model.Source) string {
	name := src.Name
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(path.Ext(name))
}

func titleFromName(name string) string {
	base := path.Base(strings.TrimRight(name, "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	if base == "" || base == "." || base == "/" {
		return "Untitled Document"
	}
	return base
}
