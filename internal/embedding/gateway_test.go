package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctutor/internal/ai"
)

type mockClient struct {
	batches [][]string
	embedFn func(texts []string) ([][]float32, error)
}

func (m *mockClient) EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	if m.embedFn != nil {
		return m.embedFn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func TestEmbedAll_BatchesAtLimit(t *testing.T) {
	client := &mockClient{}
	gw := NewGateway(client, ai.EmbeddingConfig{Model: "test-model"})

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}

	vectors, err := gw.EmbedAll(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, vectors, 250, "one vector per input")
	require.Len(t, client.batches, 3)
	assert.Len(t, client.batches[0], 100)
	assert.Len(t, client.batches[1], 100)
	assert.Len(t, client.batches[2], 50)
}

func TestEmbedAll_PreservesOrder(t *testing.T) {
	client := &mockClient{
		embedFn: func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = []float32{float32(len(text))}
			}
			return out, nil
		},
	}
	gw := NewGateway(client, ai.EmbeddingConfig{})

	vectors, err := gw.EmbedAll(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])
}

func TestEmbedAll_FiltersBlankInputs(t *testing.T) {
	client := &mockClient{}
	gw := NewGateway(client, ai.EmbeddingConfig{})

	vectors, err := gw.EmbedAll(context.Background(), []string{"keep", "  ", "", "\n", "also"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	require.Len(t, client.batches, 1)
	assert.Equal(t, []string{"keep", "also"}, client.batches[0])
}

func TestEmbedAll_AbortsOnOracleError(t *testing.T) {
	calls := 0
	client := &mockClient{
		embedFn: func(texts []string) ([][]float32, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("rate limited")
			}
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{1}
			}
			return out, nil
		},
	}
	gw := NewGateway(client, ai.EmbeddingConfig{})

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = "t"
	}

	vectors, err := gw.EmbedAll(context.Background(), texts)
	assert.Error(t, err, "a failed batch fails the whole call")
	assert.Nil(t, vectors)
}

func TestEmbedAll_EmptyInput(t *testing.T) {
	client := &mockClient{}
	gw := NewGateway(client, ai.EmbeddingConfig{})

	vectors, err := gw.EmbedAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Empty(t, client.batches, "no oracle call for empty input")
}
