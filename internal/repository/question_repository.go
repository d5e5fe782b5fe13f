package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"doctutor/internal/model"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) GetByIDAndSessionID(questionID, sessionID uint) (*model.Question, error) {
	var question model.Question
	if err := r.db.Where("id = ? AND session_id = ?", questionID, sessionID).First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get question failed: %w", err)
	}
	return &question, nil
}

func (r *QuestionRepository) ListBySessionID(sessionID uint) ([]model.Question, error) {
	var questions []model.Question
	if err := r.db.Where("session_id = ?", sessionID).Order("question_number").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list questions failed: %w", err)
	}
	return questions, nil
}

// FirstUnanswered returns the lowest-numbered question without an answer,
// or nil when none remain.
func (r *QuestionRepository) FirstUnanswered(sessionID uint) (*model.Question, error) {
	var question model.Question
	err := r.db.Where("session_id = ? AND user_answer IS NULL", sessionID).
		Order("question_number").
		First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find unanswered question failed: %w", err)
	}
	return &question, nil
}

// AnswerOnce writes the answer fields only if the question is still
// unanswered. The WHERE guard is the compare-and-set that closes the
// double-submission race; it reports false when another submission won.
func (r *QuestionRepository) AnswerOnce(questionID uint, answer string, isCorrect bool, inputMethod string, answeredAt time.Time) (bool, error) {
	updates := map[string]interface{}{
		"user_answer":  answer,
		"is_correct":   isCorrect,
		"input_method": inputMethod,
		"answered_at":  answeredAt,
	}
	result := r.db.Model(&model.Question{}).
		Where("id = ? AND user_answer IS NULL", questionID).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("answer question failed: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
