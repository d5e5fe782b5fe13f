package model

import "time"

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

const (
	FileTypePDF  = "pdf"
	FileTypePPTX = "pptx"
)

// Document is an uploaded study document. Status moves pending -> processing
// -> ready|failed and never leaves a terminal state; only the ingestion
// pipeline mutates it after creation.
type Document struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Filename     string    `gorm:"size:256;not null" json:"filename"`
	FilePath     string    `gorm:"size:512;not null" json:"-"`
	FileType     string    `gorm:"size:16;not null" json:"file_type"`
	FileSize     int64     `gorm:"not null" json:"file_size"`
	Status       string    `gorm:"size:16;not null;index" json:"status"`
	ChunkCount   int       `json:"chunk_count"`
	PageCount    int       `json:"page_count"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
