// Package embed maps text to vectors and compares them.
package embed

import (
	"context"

	"gonum.org/v1/gonum/floats"
)

// Embedder maps texts to fixed-length vectors. Output is deterministic for
// a fixed Version.
type Embedder interface {
	// Name identifies the collaborator ("hash", "openai", ...)
	Name() string

	// Version identifies model and dimensionality; part of every cache key
	Version() string

	// Embed returns one vector per input text, in order
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Cosine returns the cosine of the angle between a and b, in [-1, 1].
// Mismatched or zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Similarity is Cosine clamped to [0, 1]; negative cosine counts as unrelated
func Similarity(a, b []float64) float64 {
	c := Cosine(a, b)
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// chunks splits texts into batches of at most size
func chunks(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}
