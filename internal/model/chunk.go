package model

import (
	"encoding/json"
	"time"
)

// Chunk is one bounded slice of a document's extracted text. ChunkIndex is
// dense and zero-based within the document; EmbeddingID points at the vector
// index entry carrying the same content.
type Chunk struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DocumentID  uint      `gorm:"not null;index" json:"document_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	ChunkIndex  int       `gorm:"not null" json:"chunk_index"`
	EmbeddingID string    `gorm:"size:64" json:"embedding_id"`
	Metadata    string    `gorm:"type:text" json:"-"` // JSON object
	CreatedAt   time.Time `json:"created_at"`
}

// SetMetadata stores the metadata map as JSON.
func (c *Chunk) SetMetadata(m map[string]any) {
	if len(m) == 0 {
		c.Metadata = "{}"
		return
	}
	b, _ := json.Marshal(m)
	c.Metadata = string(b)
}
