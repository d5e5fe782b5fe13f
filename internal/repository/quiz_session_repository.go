package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"doctutor/internal/model"
)

type QuizSessionRepository struct {
	db *gorm.DB
}

func NewQuizSessionRepository(db *gorm.DB) *QuizSessionRepository {
	return &QuizSessionRepository{db: db}
}

// CreateWithQuestions persists the session row and its full question set in
// one transaction; either everything exists afterwards or nothing does.
func (r *QuizSessionRepository) CreateWithQuestions(session *model.QuizSession, questions []model.Question) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].SessionID = session.ID
		}
		return tx.CreateInBatches(&questions, chunkInsertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("create quiz session failed: %w", err)
	}
	return nil
}

func (r *QuizSessionRepository) GetByIDAndUserID(sessionID, userID uint) (*model.QuizSession, error) {
	var session model.QuizSession
	if err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get quiz session failed: %w", err)
	}
	return &session, nil
}

// IncrementCounters bumps answered_questions (and correct_answers when the
// answer was right) with SQL expressions so concurrent submissions cannot
// lose updates, then returns the fresh row.
func (r *QuizSessionRepository) IncrementCounters(sessionID uint, correct bool) (*model.QuizSession, error) {
	updates := map[string]interface{}{
		"answered_questions": gorm.Expr("answered_questions + 1"),
	}
	if correct {
		updates["correct_answers"] = gorm.Expr("correct_answers + 1")
	}
	if err := r.db.Model(&model.QuizSession{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("increment session counters failed: %w", err)
	}

	var session model.QuizSession
	if err := r.db.First(&session, sessionID).Error; err != nil {
		return nil, fmt.Errorf("reload quiz session failed: %w", err)
	}
	return &session, nil
}

// Complete flips an active session to completed and stamps the completion
// time. The status guard makes the transition idempotent.
func (r *QuizSessionRepository) Complete(sessionID uint, completedAt time.Time) error {
	updates := map[string]interface{}{
		"status":       model.SessionStatusCompleted,
		"completed_at": completedAt,
	}
	err := r.db.Model(&model.QuizSession{}).
		Where("id = ? AND status = ?", sessionID, model.SessionStatusActive).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("complete quiz session failed: %w", err)
	}
	return nil
}
