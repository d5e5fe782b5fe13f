package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"doctutor/internal/model"
	"doctutor/internal/quiz"
)

const (
	DefaultNumQuestions = 5
	MaxNumQuestions     = 20
)

var (
	ErrGenerationFailed = errors.New("question generation failed")
	ErrSessionNotActive = errors.New("quiz session is not active")
	ErrQuestionNotFound = errors.New("question not found in session")
	ErrAlreadyAnswered  = errors.New("question already answered")
	ErrNoMoreQuestions  = errors.New("no unanswered questions remain")
)

// SessionStore is the quiz session repository surface the service needs.
type SessionStore interface {
	CreateWithQuestions(session *model.QuizSession, questions []model.Question) error
	GetByIDAndUserID(sessionID, userID uint) (*model.QuizSession, error)
	IncrementCounters(sessionID uint, correct bool) (*model.QuizSession, error)
	Complete(sessionID uint, completedAt time.Time) error
}

// QuestionStore covers question reads plus the single conditional write.
type QuestionStore interface {
	GetByIDAndSessionID(questionID, sessionID uint) (*model.Question, error)
	ListBySessionID(sessionID uint) ([]model.Question, error)
	FirstUnanswered(sessionID uint) (*model.Question, error)
	AnswerOnce(questionID uint, answer string, isCorrect bool, inputMethod string, answeredAt time.Time) (bool, error)
}

// QuizGenerator produces validated question payloads for a document.
type QuizGenerator interface {
	Generate(ctx context.Context, documentID string, numQuestions int, difficulty string, questionTypes []string) ([]quiz.QuestionPayload, error)
}

// AnswerGrader grades one submitted answer. It never fails; degraded
// verdicts carry explanatory feedback instead.
type AnswerGrader interface {
	Evaluate(ctx context.Context, questionType, userAnswer, correctAnswer, questionText string) quiz.EvalResult
}

// StatusCache holds the assembled session status view between reads.
type StatusCache interface {
	Get(ctx context.Context, sessionID uint, dest any) (bool, error)
	Set(ctx context.Context, sessionID uint, value any) error
	Delete(ctx context.Context, sessionID uint) error
}

// QuestionView is a question as shown to the quiz taker: no correct answer,
// no explanation.
type QuestionView struct {
	ID             uint     `json:"id"`
	QuestionNumber int      `json:"question_number"`
	QuestionType   string   `json:"question_type"`
	QuestionText   string   `json:"question_text"`
	Options        []string `json:"options,omitempty"`
}

// SessionStatus is the full progress view of one session. ScorePercentage
// is present only once the session is completed.
type SessionStatus struct {
	Session         *model.QuizSession `json:"session"`
	Questions       []model.Question   `json:"questions"`
	ScorePercentage *float64           `json:"score_percentage,omitempty"`
}

// AnswerOutcome is the result of one submission.
type AnswerOutcome struct {
	IsCorrect         bool          `json:"is_correct"`
	Feedback          string        `json:"feedback"`
	Explanation       string        `json:"explanation,omitempty"`
	CorrectAnswer     string        `json:"correct_answer"`
	AnsweredQuestions int           `json:"answered_questions"`
	TotalQuestions    int           `json:"total_questions"`
	SessionCompleted  bool          `json:"session_completed"`
	NextQuestion      *QuestionView `json:"next_question,omitempty"`
}

type SessionService struct {
	sessions  SessionStore
	questions QuestionStore
	documents DocumentStore
	generator QuizGenerator
	grader    AnswerGrader
	cache     StatusCache
}

func NewSessionService(sessions SessionStore, questions QuestionStore, documents DocumentStore, generator QuizGenerator, grader AnswerGrader, cache StatusCache) *SessionService {
	return &SessionService{
		sessions:  sessions,
		questions: questions,
		documents: documents,
		generator: generator,
		grader:    grader,
		cache:     cache,
	}
}

// GenerateQuiz produces questions for a ready document without creating a
// session. Nothing is persisted.
func (s *SessionService) GenerateQuiz(ctx context.Context, userID, documentID uint, numQuestions int, difficulty string, questionTypes []string) ([]quiz.QuestionPayload, error) {
	numQuestions, difficulty, err := normalizeQuizParams(numQuestions, difficulty, questionTypes)
	if err != nil {
		return nil, err
	}
	if err := s.requireReadyDocument(userID, documentID); err != nil {
		return nil, err
	}

	payloads, err := s.generator.Generate(ctx, strconv.FormatUint(uint64(documentID), 10), numQuestions, difficulty, questionTypes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return payloads, nil
}

// CreateSession generates questions and persists the session with its full
// question set in one transaction. Generation failure leaves no session row.
func (s *SessionService) CreateSession(ctx context.Context, userID, documentID uint, numQuestions int, difficulty string, questionTypes []string) (*model.QuizSession, []QuestionView, error) {
	numQuestions, difficulty, err := normalizeQuizParams(numQuestions, difficulty, questionTypes)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireReadyDocument(userID, documentID); err != nil {
		return nil, nil, err
	}

	payloads, err := s.generator.Generate(ctx, strconv.FormatUint(uint64(documentID), 10), numQuestions, difficulty, questionTypes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(payloads) == 0 {
		return nil, nil, ErrGenerationFailed
	}

	session := &model.QuizSession{
		UserID:         userID,
		DocumentID:     documentID,
		Status:         model.SessionStatusActive,
		Difficulty:     difficulty,
		TotalQuestions: len(payloads),
		StartedAt:      time.Now(),
	}
	questions := make([]model.Question, len(payloads))
	for i, p := range payloads {
		questions[i] = model.Question{
			QuestionNumber: i + 1,
			QuestionType:   p.QuestionType,
			QuestionText:   p.QuestionText,
			CorrectAnswer:  p.CorrectAnswer,
			Explanation:    p.Explanation,
		}
		questions[i].SetOptions(p.Options)
	}
	if err := s.sessions.CreateWithQuestions(session, questions); err != nil {
		return nil, nil, err
	}

	views := make([]QuestionView, len(questions))
	for i := range questions {
		views[i] = questionView(&questions[i])
	}
	return session, views, nil
}

// GetStatus returns the session with all questions and, when completed, the
// score percentage. The view is cached briefly and rebuilt after any cache
// miss.
func (s *SessionService) GetStatus(ctx context.Context, userID, sessionID uint) (*SessionStatus, error) {
	var cached SessionStatus
	if hit, err := s.cache.Get(ctx, sessionID, &cached); err != nil {
		log.Printf("session status cache read failed: %v", err)
	} else if hit && cached.Session != nil && cached.Session.UserID == userID {
		return &cached, nil
	}

	session, err := s.sessions.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}

	questions, err := s.questions.ListBySessionID(sessionID)
	if err != nil {
		return nil, err
	}

	status := &SessionStatus{Session: session, Questions: questions}
	if session.Status == model.SessionStatusCompleted && session.TotalQuestions > 0 {
		score := math.Round(float64(session.CorrectAnswers)/float64(session.TotalQuestions)*1000) / 10
		status.ScorePercentage = &score
	}

	if err := s.cache.Set(ctx, sessionID, status); err != nil {
		log.Printf("session status cache write failed: %v", err)
	}
	return status, nil
}

// CurrentQuestion returns the lowest-numbered unanswered question of an
// active session.
func (s *SessionService) CurrentQuestion(userID, sessionID uint) (*QuestionView, error) {
	session, err := s.sessions.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionNotActive
	}

	question, err := s.questions.FirstUnanswered(sessionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, ErrNoMoreQuestions
	}
	view := questionView(question)
	return &view, nil
}

// SubmitAnswer grades and records one answer. The conditional update in the
// question store makes the recording exactly-once: a concurrent duplicate
// loses the race and gets ErrAlreadyAnswered with counters untouched.
func (s *SessionService) SubmitAnswer(ctx context.Context, userID, sessionID, questionID uint, answer, inputMethod string) (*AnswerOutcome, error) {
	inputMethod, err := normalizeInputMethod(inputMethod)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionNotActive
	}

	question, err := s.questions.GetByIDAndSessionID(questionID, sessionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, ErrQuestionNotFound
	}
	if question.Answered() {
		return nil, ErrAlreadyAnswered
	}

	verdict := s.grader.Evaluate(ctx, question.QuestionType, answer, question.CorrectAnswer, question.QuestionText)

	recorded, err := s.questions.AnswerOnce(questionID, answer, verdict.IsCorrect, inputMethod, time.Now())
	if err != nil {
		return nil, err
	}
	if !recorded {
		return nil, ErrAlreadyAnswered
	}

	updated, err := s.sessions.IncrementCounters(sessionID, verdict.IsCorrect)
	if err != nil {
		return nil, err
	}

	completed := updated.AnsweredQuestions >= updated.TotalQuestions
	if completed {
		if err := s.sessions.Complete(sessionID, time.Now()); err != nil {
			return nil, err
		}
	}

	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("session status cache invalidation failed: %v", err)
	}

	outcome := &AnswerOutcome{
		IsCorrect:         verdict.IsCorrect,
		Feedback:          verdict.Feedback,
		Explanation:       verdict.Explanation,
		CorrectAnswer:     question.CorrectAnswer,
		AnsweredQuestions: updated.AnsweredQuestions,
		TotalQuestions:    updated.TotalQuestions,
		SessionCompleted:  completed,
	}
	if !completed {
		next, err := s.questions.FirstUnanswered(sessionID)
		if err != nil {
			return nil, err
		}
		if next != nil {
			view := questionView(next)
			outcome.NextQuestion = &view
		}
	}
	return outcome, nil
}

func (s *SessionService) requireReadyDocument(userID, documentID uint) error {
	doc, err := s.documents.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrNotFound
	}
	if doc.Status != model.DocumentStatusReady {
		return ErrDocumentNotReady
	}
	return nil
}

func normalizeQuizParams(numQuestions int, difficulty string, questionTypes []string) (int, string, error) {
	if numQuestions == 0 {
		numQuestions = DefaultNumQuestions
	}
	if numQuestions < 1 || numQuestions > MaxNumQuestions {
		return 0, "", ErrInvalidInput
	}

	if difficulty == "" {
		difficulty = "medium"
	}
	switch difficulty {
	case "easy", "medium", "hard":
	default:
		return 0, "", ErrInvalidInput
	}

	for _, t := range questionTypes {
		switch t {
		case model.QuestionTypeMCQ, model.QuestionTypeTrueFalse, model.QuestionTypeFreeText:
		default:
			return 0, "", ErrInvalidInput
		}
	}
	return numQuestions, difficulty, nil
}

func normalizeInputMethod(inputMethod string) (string, error) {
	switch inputMethod {
	case "":
		return "typed", nil
	case "typed", "voice":
		return inputMethod, nil
	default:
		return "", ErrInvalidInput
	}
}

func questionView(q *model.Question) QuestionView {
	return QuestionView{
		ID:             q.ID,
		QuestionNumber: q.QuestionNumber,
		QuestionType:   q.QuestionType,
		QuestionText:   q.QuestionText,
		Options:        q.OptionList(),
	}
}
