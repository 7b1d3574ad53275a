package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/veracity/internal/worker"
)

const openAIBatchSize = 256

// OpenAIEmbedder calls the OpenAI embeddings endpoint (or a compatible one)
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder; baseURL overrides the API host
func NewOpenAIEmbedder(apiKey, baseURL, model string, httpClient *http.Client) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (e *OpenAIEmbedder) Name() string { return "openai" }

func (e *OpenAIEmbedder) Version() string { return "openai-" + e.model }

// Embed sends texts in batches and reorders results by their index
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	offset := 0

	for _, batch := range chunks(texts, openAIBatchSize) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusBadRequest) {
				return nil, worker.Permanent(fmt.Errorf("OpenAI embeddings: %w", err))
			}
			return nil, fmt.Errorf("OpenAI embeddings: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("OpenAI embeddings: expected %d vectors, got %d", len(batch), len(resp.Data))
		}
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("OpenAI embeddings: index %d out of range", d.Index)
			}
			out[offset+d.Index] = toFloat64(d.Embedding)
		}
		offset += len(batch)
	}

	return out, nil
}
