package embed

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/veracity/internal/model"
)

// New creates the embedder selected by configuration
func New(ctx context.Context, cfg model.EmbeddingConfig, httpClient *http.Client) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "hash":
		return NewHashEmbedder(cfg.Dimensions), nil

	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model, httpClient)

	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, httpClient), nil

	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, openai, ollama, gemini)", cfg.Provider)
	}
}
