package providers

import (
	"context"
	"errors"
)

// EmbeddingProvider turns text into a fixed-length vector
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmbeddingFailed wraps every provider-side embedding failure
var ErrEmbeddingFailed = errors.New("embedding provider error")
