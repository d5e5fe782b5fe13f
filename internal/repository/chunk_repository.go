package repository

import (
	"fmt"

	"gorm.io/gorm"

	"doctutor/internal/model"
)

// chunkInsertBatchSize keeps single INSERT statements under request-size
// limits.
const chunkInsertBatchSize = 100

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(&chunks, chunkInsertBatchSize).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

// DeleteByDocumentID clears a document's chunks ahead of reprocessing.
func (r *ChunkRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}
