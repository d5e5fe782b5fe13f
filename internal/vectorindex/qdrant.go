// Package vectorindex adapts the Qdrant REST API as the nearest-neighbor
// store for document chunks.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"doctutor/internal/chunker"
)

// VectorSize matches the embedding model's output dimensionality.
const VectorSize = 1536

var ErrLengthMismatch = errors.New("chunks and embeddings must have the same length")

type Config struct {
	URL        string
	APIKey     string
	Collection string
}

// SearchResult is one scored chunk payload returned by a filtered search.
type SearchResult struct {
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureCollection provisions the collection with cosine distance and a
// keyword payload index on document_id. Creating an existing collection is
// a no-op.
func (c *Client) EnsureCollection(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+c.cfg.Collection, nil)
	if err != nil {
		return fmt.Errorf("check collection failed: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}

	createBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     VectorSize,
			"distance": "Cosine",
		},
	}
	status, raw, err := c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection, createBody)
	if err != nil {
		return fmt.Errorf("create collection failed: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("create collection status %d: %s", status, raw)
	}

	indexBody := map[string]interface{}{
		"field_name":   "document_id",
		"field_schema": "keyword",
	}
	// The index may already exist; that is fine.
	if status, raw, err = c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection+"/index", indexBody); err != nil {
		return fmt.Errorf("create payload index failed: %w", err)
	}
	if status >= 300 && status != http.StatusConflict {
		return fmt.Errorf("create payload index status %d: %s", status, raw)
	}
	return nil
}

// Upsert stores one point per chunk and returns the generated point ids in
// chunk order.
func (c *Client) Upsert(ctx context.Context, documentID string, chunks []chunker.Chunk, embeddings [][]float32) ([]string, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", ErrLengthMismatch, len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	pointIDs := make([]string, len(chunks))
	points := make([]map[string]interface{}, len(chunks))
	for i := range chunks {
		pointIDs[i] = uuid.NewString()
		points[i] = map[string]interface{}{
			"id":     pointIDs[i],
			"vector": embeddings[i],
			"payload": map[string]interface{}{
				"document_id": documentID,
				"content":     chunks[i].Content,
				"chunk_index": chunks[i].Index,
				"metadata":    chunks[i].Metadata,
			},
		}
	}

	body := map[string]interface{}{"points": points}
	status, raw, err := c.do(ctx, http.MethodPut, "/collections/"+c.cfg.Collection+"/points?wait=true", body)
	if err != nil {
		return nil, fmt.Errorf("upsert points failed: %w", err)
	}
	if status >= 300 {
		return nil, fmt.Errorf("upsert points status %d: %s", status, raw)
	}
	return pointIDs, nil
}

// Search returns up to topK chunks nearest the query vector whose payload
// document_id matches exactly, ordered by descending score.
func (c *Client) Search(ctx context.Context, vector []float32, documentID string, topK int) ([]SearchResult, error) {
	body := map[string]interface{}{
		"query": vector,
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "document_id",
					"match": map[string]interface{}{"value": documentID},
				},
			},
		},
		"limit":        topK,
		"with_payload": true,
	}

	status, raw, err := c.do(ctx, http.MethodPost, "/collections/"+c.cfg.Collection+"/points/query", body)
	if err != nil {
		return nil, fmt.Errorf("search points failed: %w", err)
	}
	if status >= 300 {
		return nil, fmt.Errorf("search points status %d: %s", status, raw)
	}

	var parsed struct {
		Result struct {
			Points []struct {
				Score   float32 `json:"score"`
				Payload struct {
					Content    string `json:"content"`
					ChunkIndex int    `json:"chunk_index"`
				} `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response failed: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.Result.Points))
	for _, p := range parsed.Result.Points {
		results = append(results, SearchResult{
			Content:    p.Payload.Content,
			ChunkIndex: p.Payload.ChunkIndex,
			Score:      p.Score,
		})
	}
	return results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := strings.TrimRight(c.cfg.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build qdrant request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read qdrant response failed: %w", err)
	}
	return resp.StatusCode, raw, nil
}
