package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctutor/internal/vectorindex"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

type stubIndex struct {
	results  []vectorindex.SearchResult
	err      error
	lastTopK int
	lastDoc  string
}

func (s *stubIndex) Search(ctx context.Context, vector []float32, documentID string, topK int) ([]vectorindex.SearchResult, error) {
	s.lastTopK = topK
	s.lastDoc = documentID
	return s.results, s.err
}

func TestRetrieve_Success(t *testing.T) {
	index := &stubIndex{results: []vectorindex.SearchResult{{Content: "hit", Score: 0.8}}}
	r := NewRetriever(&stubEmbedder{vector: []float32{0.1}}, index)

	results, err := r.Retrieve(context.Background(), "question", "42", 7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hit", results[0].Content)
	assert.Equal(t, "42", index.lastDoc)
	assert.Equal(t, 7, index.lastTopK)
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	index := &stubIndex{}
	r := NewRetriever(&stubEmbedder{vector: []float32{0.1}}, index)

	_, err := r.Retrieve(context.Background(), "question", "42", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, index.lastTopK)
}

func TestRetrieve_EmbedFailureIsAnError(t *testing.T) {
	r := NewRetriever(&stubEmbedder{err: errors.New("oracle down")}, &stubIndex{})

	results, err := r.Retrieve(context.Background(), "question", "42", 5)
	assert.Error(t, err, "an embed failure must not look like zero matches")
	assert.Nil(t, results)
}

func TestRetrieve_ZeroMatchesIsEmptyNotError(t *testing.T) {
	r := NewRetriever(&stubEmbedder{vector: []float32{0.1}}, &stubIndex{})

	results, err := r.Retrieve(context.Background(), "question", "42", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
