package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctutor/internal/chunker"
)

func TestUpsert_LengthMismatch(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"})

	_, err := client.Upsert(context.Background(), "42",
		[]chunker.Chunk{{Content: "a"}, {Content: "b"}},
		[][]float32{{0.1}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestUpsert_MissingEmbeddingsIsMismatch(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"})

	ids, err := client.Upsert(context.Background(), "42",
		[]chunker.Chunk{{Content: "a"}},
		nil,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.Nil(t, ids)
}

func TestUpsert_EmptyInputIsNoop(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"})

	ids, err := client.Upsert(context.Background(), "42", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestUpsert_SendsPointsAndReturnsIDs(t *testing.T) {
	var captured struct {
		Points []struct {
			ID      string    `json:"id"`
			Vector  []float32 `json:"vector"`
			Payload struct {
				DocumentID string `json:"document_id"`
				Content    string `json:"content"`
				ChunkIndex int    `json:"chunk_index"`
			} `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"result":{"status":"completed"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Collection: "documents"})
	chunks := []chunker.Chunk{
		{Content: "first", Index: 0},
		{Content: "second", Index: 1},
	}
	embeddings := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	ids, err := client.Upsert(context.Background(), "7", chunks, embeddings)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	require.Len(t, captured.Points, 2)
	for i, p := range captured.Points {
		assert.Equal(t, ids[i], p.ID)
		assert.Equal(t, "7", p.Payload.DocumentID, "payload document_id must match the owning document")
		assert.Equal(t, chunks[i].Content, p.Payload.Content)
		assert.Equal(t, chunks[i].Index, p.Payload.ChunkIndex)
	}
}

func TestSearch_FiltersByDocumentID(t *testing.T) {
	var captured struct {
		Query  []float32 `json:"query"`
		Filter struct {
			Must []struct {
				Key   string `json:"key"`
				Match struct {
					Value string `json:"value"`
				} `json:"match"`
			} `json:"must"`
		} `json:"filter"`
		Limit int `json:"limit"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/documents/points/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"result":{"points":[
			{"score":0.92,"payload":{"content":"top match","chunk_index":3}},
			{"score":0.81,"payload":{"content":"second match","chunk_index":0}}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Collection: "documents"})

	results, err := client.Search(context.Background(), []float32{0.5, 0.6}, "19", 5)
	require.NoError(t, err)

	require.Len(t, captured.Filter.Must, 1)
	assert.Equal(t, "document_id", captured.Filter.Must[0].Key)
	assert.Equal(t, "19", captured.Filter.Must[0].Match.Value)
	assert.Equal(t, 5, captured.Limit)

	require.Len(t, results, 2)
	assert.Equal(t, "top match", results[0].Content)
	assert.Equal(t, 3, results[0].ChunkIndex)
	assert.Equal(t, float32(0.92), results[0].Score)
	assert.Equal(t, "second match", results[1].Content)
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":{"error":"boom"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL})

	_, err := client.Search(context.Background(), []float32{0.1}, "1", 5)
	assert.Error(t, err)
}

func TestEnsureCollection_ExistingIsNoop(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"result":{"status":"green"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Collection: "documents"})
	require.NoError(t, client.EnsureCollection(context.Background()))
	assert.Equal(t, 1, calls, "existing collection must not be recreated")
}

func TestEnsureCollection_CreatesWhenMissing(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"result":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Collection: "documents"})
	require.NoError(t, client.EnsureCollection(context.Background()))

	assert.Equal(t, []string{
		"GET /collections/documents",
		"PUT /collections/documents",
		"PUT /collections/documents/index",
	}, paths)
}
