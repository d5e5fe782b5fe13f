// Package embedding batches text through the embedding oracle.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"doctutor/internal/ai"
)

// MaxBatchSize is the oracle's request-size limit.
const MaxBatchSize = 100

// Client is the slice of the AI client the gateway needs.
type Client interface {
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

type Gateway struct {
	client Client
	cfg    ai.EmbeddingConfig
}

func NewGateway(client Client, cfg ai.EmbeddingConfig) *Gateway {
	return &Gateway{client: client, cfg: cfg}
}

// EmbedAll returns one vector per non-blank input, in input order. Blank
// inputs are filtered before calling the oracle, so callers feeding mixed
// input must not rely on positional alignment; document chunks are
// pre-filtered to be non-blank. Any oracle failure aborts the whole call.
func (g *Gateway) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	valid := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(valid))
	for start := 0; start < len(valid); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch, err := g.client.EmbedBatch(ctx, g.cfg, valid[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d failed: %w", start/MaxBatchSize+1, err)
		}
		all = append(all, batch...)
	}
	return all, nil
}

// EmbedOne embeds a single query string.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding for blank input")
	}
	return vectors[0], nil
}
