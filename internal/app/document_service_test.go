package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctutor/internal/ingest"
	"doctutor/internal/model"
	"doctutor/internal/vectorindex"
)

type memDocumentStore struct {
	docs   map[uint]*model.Document
	nextID uint
	failed map[uint]string
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{
		docs:   make(map[uint]*model.Document),
		failed: make(map[uint]string),
	}
}

func (m *memDocumentStore) Create(doc *model.Document) error {
	m.nextID++
	doc.ID = m.nextID
	stored := *doc
	m.docs[doc.ID] = &stored
	return nil
}

func (m *memDocumentStore) GetByIDAndUserID(id, userID uint) (*model.Document, error) {
	d, ok := m.docs[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (m *memDocumentStore) ListByUserID(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memDocumentStore) MarkFailed(id uint, reason string) error {
	m.failed[id] = reason
	if d, ok := m.docs[id]; ok {
		d.Status = model.DocumentStatusFailed
		d.ErrorMessage = reason
	}
	return nil
}

type memBlobStore struct {
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) Put(key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.blobs[key] = data
	return key, nil
}

func (m *memBlobStore) Get(key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, errors.New("blob missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobStore) Delete(key string) error {
	delete(m.blobs, key)
	return nil
}

type stubPublisher struct {
	tasks []ingest.Task
	err   error
}

func (s *stubPublisher) Publish(ctx context.Context, task ingest.Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

type stubSearcher struct {
	results []vectorindex.SearchResult
	err     error
	queries []string
}

func (s *stubSearcher) Retrieve(ctx context.Context, query, documentID string, topK int) ([]vectorindex.SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func TestUpload_AcceptsAndQueues(t *testing.T) {
	store := newMemDocumentStore()
	blobs := newMemBlobStore()
	publisher := &stubPublisher{}
	svc := NewDocumentService(store, blobs, publisher, &stubSearcher{})

	content := []byte("%PDF-1.4 fake content")
	doc, err := svc.Upload(context.Background(), 1, "Lecture Notes.PDF", int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, model.DocumentStatusPending, doc.Status)
	assert.Equal(t, model.FileTypePDF, doc.FileType)
	assert.Equal(t, "Lecture Notes.PDF", doc.Filename)

	require.Len(t, publisher.tasks, 1)
	assert.Equal(t, doc.ID, publisher.tasks[0].DocumentID)

	stored, ok := blobs.blobs[doc.FilePath]
	require.True(t, ok, "file bytes must be stored under the recorded key")
	assert.Equal(t, content, stored)
}

func TestUpload_RejectsWrongExtension(t *testing.T) {
	svc := NewDocumentService(newMemDocumentStore(), newMemBlobStore(), &stubPublisher{}, &stubSearcher{})

	_, err := svc.Upload(context.Background(), 1, "notes.docx", 100, bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = svc.Upload(context.Background(), 1, "noextension", 100, bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	svc := NewDocumentService(newMemDocumentStore(), newMemBlobStore(), &stubPublisher{}, &stubSearcher{})

	_, err := svc.Upload(context.Background(), 1, "big.pdf", MaxUploadSize+1, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUpload_PublishFailureMarksFailed(t *testing.T) {
	store := newMemDocumentStore()
	blobs := newMemBlobStore()
	svc := NewDocumentService(store, blobs, &stubPublisher{err: errors.New("broker down")}, &stubSearcher{})

	_, err := svc.Upload(context.Background(), 1, "notes.pptx", 50, bytes.NewReader([]byte("pptx bytes")))
	require.Error(t, err)
	require.Len(t, store.failed, 1)
	for _, reason := range store.failed {
		assert.Equal(t, "Failed to queue processing task", reason)
	}
	assert.Empty(t, blobs.blobs, "an upload that never got queued must not leave its blob behind")
}

func TestGet_OwnershipHidesForeignDocuments(t *testing.T) {
	store := newMemDocumentStore()
	require.NoError(t, store.Create(&model.Document{UserID: 1, Filename: "a.pdf", Status: model.DocumentStatusReady}))
	svc := NewDocumentService(store, newMemBlobStore(), &stubPublisher{}, &stubSearcher{})

	doc, err := svc.Get(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc.Filename)

	_, err = svc.Get(2, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(1, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_RequiresReadyDocument(t *testing.T) {
	store := newMemDocumentStore()
	require.NoError(t, store.Create(&model.Document{UserID: 1, Status: model.DocumentStatusProcessing}))
	svc := NewDocumentService(store, newMemBlobStore(), &stubPublisher{}, &stubSearcher{})

	_, err := svc.Search(context.Background(), 1, 1, "what is x", 5)
	assert.ErrorIs(t, err, ErrDocumentNotReady)
}

func TestSearch_BlankQueryRejected(t *testing.T) {
	store := newMemDocumentStore()
	require.NoError(t, store.Create(&model.Document{UserID: 1, Status: model.DocumentStatusReady}))
	svc := NewDocumentService(store, newMemBlobStore(), &stubPublisher{}, &stubSearcher{})

	_, err := svc.Search(context.Background(), 1, 1, "   ", 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearch_ReturnsRankedResults(t *testing.T) {
	store := newMemDocumentStore()
	require.NoError(t, store.Create(&model.Document{UserID: 1, Status: model.DocumentStatusReady}))
	searcher := &stubSearcher{results: []vectorindex.SearchResult{
		{Content: "best", ChunkIndex: 2, Score: 0.9},
		{Content: "good", ChunkIndex: 0, Score: 0.7},
	}}
	svc := NewDocumentService(store, newMemBlobStore(), &stubPublisher{}, searcher)

	results, err := svc.Search(context.Background(), 1, 1, "what is x", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "best", results[0].Content)
	assert.Equal(t, []string{"what is x"}, searcher.queries)
}

func TestSearch_EmptyMatchesAreNotAnError(t *testing.T) {
	store := newMemDocumentStore()
	require.NoError(t, store.Create(&model.Document{UserID: 1, Status: model.DocumentStatusReady}))
	svc := NewDocumentService(store, newMemBlobStore(), &stubPublisher{}, &stubSearcher{})

	results, err := svc.Search(context.Background(), 1, 1, "unrelated topic", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
