// Package retrieval embeds a query and runs a filtered similarity search
// against one document's vectors.
package retrieval

import (
	"context"
	"fmt"

	"doctutor/internal/vectorindex"
)

const DefaultTopK = 5

// Embedder produces a query vector.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a document-scoped similarity search.
type Searcher interface {
	Search(ctx context.Context, vector []float32, documentID string, topK int) ([]vectorindex.SearchResult, error)
}

type Retriever struct {
	embedder Embedder
	index    Searcher
}

func NewRetriever(embedder Embedder, index Searcher) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns the topK chunks of the document ranked against the
// query. A zero-match search returns an empty slice with nil error; oracle
// or index failures return the error so callers can tell "no matches" from
// "retrieval broke".
func (r *Retriever) Retrieve(ctx context.Context, query, documentID string, topK int) ([]vectorindex.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	results, err := r.index.Search(ctx, vector, documentID, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}
