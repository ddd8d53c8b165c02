package embeddings

import (
	"context"
	"math"
)

// Provider generates vector embeddings for text
type Provider interface {
	// GenerateBatchEmbeddings embeds every text in one call, preserving order
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the model name
	Name() string
}

// Cosine returns the cosine similarity of two vectors, 0 when either is empty or the lengths differ
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
