package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/ppiankov/veracity/internal/util"
)

// HashEmbedder is a local bag-of-terms embedder. Stemmed content terms are
// hashed into a fixed number of buckets and the vector is L2-normalized.
// It needs no network and is the fallback for every remote embedder.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with dims buckets
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 1024
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Name() string { return "hash" }

func (e *HashEmbedder) Version() string { return fmt.Sprintf("hash-v1-d%d", e.dims) }

// Embed never fails except on a cancelled context
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float64 {
	v := make([]float64, e.dims)
	for _, term := range util.Terms(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte("w:" + term))
		v[h.Sum64()%uint64(e.dims)]++
	}

	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}
