package embed

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiBatchSize = 100

// GeminiEmbedder calls the Gemini embedding API
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder dials the Gemini API. Close releases the client.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

func (e *GeminiEmbedder) Name() string { return "gemini" }

func (e *GeminiEmbedder) Version() string { return "gemini-" + e.model }

// Embed uses batch requests of up to 100 texts
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	em := e.client.EmbeddingModel(e.model)
	out := make([][]float64, 0, len(texts))

	for _, chunk := range chunks(texts, geminiBatchSize) {
		batch := em.NewBatch()
		for _, text := range chunk {
			batch.AddContent(genai.Text(text))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("Gemini embeddings: %w", err)
		}
		if len(res.Embeddings) != len(chunk) {
			return nil, fmt.Errorf("Gemini embeddings: expected %d vectors, got %d", len(chunk), len(res.Embeddings))
		}
		for _, emb := range res.Embeddings {
			out = append(out, toFloat64(emb.Values))
		}
	}
	return out, nil
}

// Close releases the underlying client
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
