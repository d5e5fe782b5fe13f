package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"doctutor/internal/ingest"
	"doctutor/internal/model"
	"doctutor/internal/storage"
	"doctutor/internal/vectorindex"
)

// MaxUploadSize bounds accepted document files.
const MaxUploadSize = 50 << 20

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnsupportedFile  = errors.New("only .pdf and .pptx files are supported")
	ErrFileTooLarge     = errors.New("file exceeds the 50MB limit")
	ErrDocumentNotReady = errors.New("document is not ready")
)

// DocumentStore is the repository surface the document service depends on.
// The concrete gorm repository satisfies it; tests substitute their own.
type DocumentStore interface {
	Create(doc *model.Document) error
	GetByIDAndUserID(id, userID uint) (*model.Document, error)
	ListByUserID(userID uint) ([]model.Document, error)
	MarkFailed(id uint, reason string) error
}

// TaskPublisher enqueues the ingest task after the record exists.
type TaskPublisher interface {
	Publish(ctx context.Context, task ingest.Task) error
}

// ContextSearcher answers semantic search over one ready document.
type ContextSearcher interface {
	Retrieve(ctx context.Context, query, documentID string, topK int) ([]vectorindex.SearchResult, error)
}

type DocumentService struct {
	documents DocumentStore
	blobs     storage.BlobStore
	publisher TaskPublisher
	retriever ContextSearcher
}

func NewDocumentService(documents DocumentStore, blobs storage.BlobStore, publisher TaskPublisher, retriever ContextSearcher) *DocumentService {
	return &DocumentService{
		documents: documents,
		blobs:     blobs,
		publisher: publisher,
		retriever: retriever,
	}
}

// Upload accepts the file, stores its bytes, inserts a pending record and
// enqueues the ingest task. It returns as soon as the task is queued; the
// caller polls the record for the outcome.
func (s *DocumentService) Upload(ctx context.Context, userID uint, filename string, size int64, r io.Reader) (*model.Document, error) {
	fileType, err := fileTypeFromName(filename)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, ErrInvalidInput
	}
	if size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	key := fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), filepath.Ext(strings.ToLower(filename)))
	storedKey, err := s.blobs.Put(key, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("store uploaded file failed: %w", err)
	}

	doc := &model.Document{
		UserID:   userID,
		Filename: filename,
		FilePath: storedKey,
		FileType: fileType,
		FileSize: size,
		Status:   model.DocumentStatusPending,
	}
	if err := s.documents.Create(doc); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, ingest.Task{DocumentID: doc.ID}); err != nil {
		log.Printf("publish ingest task for document %d failed: %v", doc.ID, err)
		if markErr := s.documents.MarkFailed(doc.ID, "Failed to queue processing task"); markErr != nil {
			log.Printf("mark document %d failed errored: %v", doc.ID, markErr)
		}
		// The pipeline will never fetch this blob; remove it.
		if delErr := s.blobs.Delete(storedKey); delErr != nil {
			log.Printf("remove unqueued upload %s failed: %v", storedKey, delErr)
		}
		return nil, fmt.Errorf("queue ingest task failed: %w", err)
	}
	return doc, nil
}

// List returns the user's documents, newest first.
func (s *DocumentService) List(userID uint) ([]model.Document, error) {
	return s.documents.ListByUserID(userID)
}

// Get returns the document only to its owner; missing and foreign documents
// are the same ErrNotFound.
func (s *DocumentService) Get(userID, documentID uint) (*model.Document, error) {
	doc, err := s.documents.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Search runs semantic retrieval over a ready document's chunks.
func (s *DocumentService) Search(ctx context.Context, userID, documentID uint, query string, topK int) ([]vectorindex.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}

	doc, err := s.Get(userID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.DocumentStatusReady {
		return nil, ErrDocumentNotReady
	}

	results, err := s.retriever.Retrieve(ctx, query, strconv.FormatUint(uint64(documentID), 10), topK)
	if err != nil {
		return nil, fmt.Errorf("search document failed: %w", err)
	}
	return results, nil
}

func fileTypeFromName(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return model.FileTypePDF, nil
	case ".pptx":
		return model.FileTypePPTX, nil
	default:
		return "", ErrUnsupportedFile
	}
}
