package model

import "time"

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// QuizSession is a persisted quiz instance. Its full question set is created
// with it; counters only move forward, and status flips to completed exactly
// when answered_questions reaches total_questions.
type QuizSession struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	DocumentID        uint       `gorm:"not null;index" json:"document_id"`
	Status            string     `gorm:"size:16;not null" json:"status"`
	Difficulty        string     `gorm:"size:16;not null" json:"difficulty"`
	TotalQuestions    int        `gorm:"not null" json:"total_questions"`
	AnsweredQuestions int        `gorm:"not null" json:"answered_questions"`
	CorrectAnswers    int        `gorm:"not null" json:"correct_answers"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
