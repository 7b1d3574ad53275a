package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/model"
)

// Loader resolves a CLI target (file path or URL) to extracted text
type Loader struct {
	registry *Registry
	fetcher  *Fetcher
	maxBytes int64
}

// NewLoader creates a loader. A nil fetcher rejects URL targets.
func NewLoader(registry *Registry, fetcher *Fetcher, maxBytes int64) *Loader {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Loader{registry: registry, fetcher: fetcher, maxBytes: maxBytes}
}

// IsURL reports whether target should be fetched rather than read from disk
func IsURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads or fetches target and extracts it
func (l *Loader) Load(ctx context.Context, target string) (*model.ExtractedText, error) {
	if IsURL(target) {
		return l.loadURL(ctx, target)
	}
	return l.loadFile(target)
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (*model.ExtractedText, error) {
	if l.fetcher == nil {
		return nil, apperr.Newf(apperr.CodeIngestionFailed, "ingestion failed", "URL ingestion is not configured: %s", rawURL)
	}

	res, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	out, err := l.registry.Extract(res.Body, model.Source{
		Name:        res.FinalURL,
		ContentType: res.ContentType,
		URL:         res.FinalURL,
	})
	if err != nil {
		return nil, err
	}
	out.FileType = "url"
	return out, nil
}

func (l *Loader) loadFile(path string) (*model.ExtractedText, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeIngestionFailed, "cannot read "+path)
	}
	if info.IsDir() {
		return nil, apperr.Newf(apperr.CodeIngestionFailed, "ingestion failed", "%s is a directory", path)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return nil, apperr.Newf(apperr.CodeIngestionFailed, "ingestion failed", "%s exceeds %d bytes", path, l.maxBytes)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeIngestionFailed, "cannot read "+path)
	}
	return l.registry.Extract(raw, model.Source{Name: filepath.Base(path)})
}
