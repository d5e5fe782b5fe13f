package model

import (
	"encoding/json"
	"time"
)

const (
	QuestionTypeMCQ       = "mcq"
	QuestionTypeTrueFalse = "true_false"
	QuestionTypeFreeText  = "free_text"
)

// Question belongs to one quiz session. The answer fields (UserAnswer,
// IsCorrect, InputMethod, AnsweredAt) start unset and are written exactly
// once; a question with UserAnswer set is permanently answered.
type Question struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	SessionID      uint       `gorm:"not null;index" json:"session_id"`
	QuestionNumber int        `gorm:"not null" json:"question_number"`
	QuestionType   string     `gorm:"size:16;not null" json:"question_type"`
	QuestionText   string     `gorm:"type:text;not null" json:"question_text"`
	Options        string     `gorm:"type:text" json:"-"` // JSON array, mcq only
	CorrectAnswer  string     `gorm:"type:text;not null" json:"-"`
	Explanation    string     `gorm:"type:text" json:"-"`
	UserAnswer     *string    `gorm:"type:text" json:"user_answer,omitempty"`
	IsCorrect      *bool      `json:"is_correct,omitempty"`
	InputMethod    *string    `gorm:"size:16" json:"input_method,omitempty"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// OptionList returns the parsed options; nil for non-mcq questions.
func (q *Question) OptionList() []string {
	if q.Options == "" {
		return nil
	}
	var opts []string
	_ = json.Unmarshal([]byte(q.Options), &opts)
	return opts
}

// SetOptions stores the option list as JSON; empty input clears the column.
func (q *Question) SetOptions(opts []string) {
	if len(opts) == 0 {
		q.Options = ""
		return
	}
	b, _ := json.Marshal(opts)
	q.Options = string(b)
}

// Answered reports whether the answer fields have been written.
func (q *Question) Answered() bool {
	return q.UserAnswer != nil
}
