// Package ingest drives uploaded documents through extraction, chunking,
// embedding and indexing, owning the document status state machine.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"

	"doctutor/internal/chunker"
	"doctutor/internal/extract"
	"doctutor/internal/model"
)

// DocumentStore is the slice of the document repository the pipeline needs.
type DocumentStore interface {
	GetByID(id uint) (*model.Document, error)
	UpdateStatus(id uint, status string) error
	MarkReady(id uint, chunkCount, pageCount int) error
	MarkFailed(id uint, reason string) error
}

// ChunkStore persists chunk records in batches and clears a document's
// chunks before a rerun.
type ChunkStore interface {
	CreateBatch(chunks []model.Chunk) error
	DeleteByDocumentID(documentID uint) error
}

// BlobFetcher loads the uploaded file bytes by storage key.
type BlobFetcher interface {
	Get(key string) (io.ReadCloser, error)
}

// Embedder turns chunk contents into vectors.
type Embedder interface {
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore upserts chunk vectors and returns the assigned point ids.
type VectorStore interface {
	Upsert(ctx context.Context, documentID string, chunks []chunker.Chunk, embeddings [][]float32) ([]string, error)
}

type Pipeline struct {
	documents DocumentStore
	chunks    ChunkStore
	blobs     BlobFetcher
	embedder  Embedder
	index     VectorStore
}

func NewPipeline(documents DocumentStore, chunks ChunkStore, blobs BlobFetcher, embedder Embedder, index VectorStore) *Pipeline {
	return &Pipeline{
		documents: documents,
		chunks:    chunks,
		blobs:     blobs,
		embedder:  embedder,
		index:     index,
	}
}

// Process runs the full pipeline for one document: pending -> processing ->
// ready|failed. Every step failure lands the document in failed with a
// step-specific reason; a missing record is logged and left untouched. The
// pipeline never returns an error because nothing upstream waits for it.
func (p *Pipeline) Process(ctx context.Context, documentID uint) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ingest document %d panicked: %v", documentID, r)
			p.markFailed(documentID, fmt.Sprintf("Unexpected error: %v", r))
		}
	}()

	log.Printf("starting processing for document %d", documentID)
	if err := p.documents.UpdateStatus(documentID, model.DocumentStatusProcessing); err != nil {
		log.Printf("set document %d processing failed: %v", documentID, err)
	}

	doc, err := p.documents.GetByID(documentID)
	if err != nil {
		p.markFailed(documentID, fmt.Sprintf("Unexpected error: %v", err))
		return
	}
	if doc == nil {
		// Not a failed document: there is no record to fail.
		log.Printf("document %d not found, skipping", documentID)
		return
	}

	data, err := p.fetchBlob(doc.FilePath)
	if err != nil {
		p.markFailed(documentID, fmt.Sprintf("Failed to download file: %v", err))
		return
	}
	log.Printf("downloaded %s, size %d bytes", doc.FilePath, len(data))

	if doc.FileType != model.FileTypePDF && doc.FileType != model.FileTypePPTX {
		p.markFailed(documentID, fmt.Sprintf("Unsupported file type: %s", doc.FileType))
		return
	}
	extracted := extract.Extract(data, doc.FileType)
	if extracted.Text == "" {
		p.markFailed(documentID, "No text could be extracted from the document")
		return
	}
	log.Printf("extracted %d characters, %d pages/slides from document %d",
		len(extracted.Text), extracted.UnitCount, documentID)

	textChunks := chunker.Split(extracted.Text, chunker.DefaultSize, chunker.DefaultOverlap)
	if len(textChunks) == 0 {
		p.markFailed(documentID, "Failed to create text chunks")
		return
	}

	contents := make([]string, len(textChunks))
	for i, c := range textChunks {
		contents[i] = c.Content
	}
	embeddings, err := p.embedder.EmbedAll(ctx, contents)
	if err != nil || len(embeddings) == 0 {
		p.markFailed(documentID, "Failed to generate embeddings")
		return
	}

	pointIDs, err := p.index.Upsert(ctx, strconv.FormatUint(uint64(documentID), 10), textChunks, embeddings)
	if err != nil {
		p.markFailed(documentID, fmt.Sprintf("Vector storage failed: %v", err))
		return
	}

	records := make([]model.Chunk, len(textChunks))
	for i, c := range textChunks {
		records[i] = model.Chunk{
			DocumentID: documentID,
			Content:    c.Content,
			ChunkIndex: c.Index,
		}
		if i < len(pointIDs) {
			records[i].EmbeddingID = pointIDs[i]
		}
		records[i].SetMetadata(c.Metadata)
	}
	// A redelivered task can rerun a document that already has chunk rows
	// from an earlier attempt; they are replaced, never appended to.
	if err := p.chunks.DeleteByDocumentID(documentID); err != nil {
		p.markFailed(documentID, fmt.Sprintf("Failed to save chunks: %v", err))
		return
	}
	if err := p.chunks.CreateBatch(records); err != nil {
		p.markFailed(documentID, fmt.Sprintf("Failed to save chunks: %v", err))
		return
	}

	// Processing itself succeeded; a lost final write is accepted
	// inconsistency, not a failure.
	if err := p.documents.MarkReady(documentID, len(textChunks), extracted.UnitCount); err != nil {
		log.Printf("mark document %d ready failed: %v", documentID, err)
		return
	}
	log.Printf("document %d processed successfully (%d chunks)", documentID, len(textChunks))
}

func (p *Pipeline) fetchBlob(key string) ([]byte, error) {
	rc, err := p.blobs.Get(key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *Pipeline) markFailed(documentID uint, reason string) {
	if err := p.documents.MarkFailed(documentID, reason); err != nil {
		log.Printf("mark document %d failed errored: %v", documentID, err)
		return
	}
	log.Printf("marked document %d as failed: %s", documentID, reason)
}
