package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"doctutor/internal/app"
	"doctutor/internal/transport/http/response"
)

type QuizHandler struct {
	sessionService *app.SessionService
}

type GenerateQuizRequest struct {
	DocumentID    uint     `json:"document_id" binding:"required"`
	NumQuestions  int      `json:"num_questions" binding:"omitempty,min=1,max=20"`
	Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	QuestionTypes []string `json:"question_types"`
}

type SubmitAnswerRequest struct {
	Answer      string `json:"answer" binding:"required"`
	InputMethod string `json:"input_method" binding:"omitempty,oneof=typed voice"`
}

func NewQuizHandler(sessionService *app.SessionService) *QuizHandler {
	return &QuizHandler{sessionService: sessionService}
}

// Generate produces questions without opening a session.
func (h *QuizHandler) Generate(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	payloads, err := h.sessionService.GenerateQuiz(c.Request.Context(), userID, req.DocumentID, req.NumQuestions, req.Difficulty, req.QuestionTypes)
	if err != nil {
		h.quizError(c, err, "generate quiz failed")
		return
	}

	response.OK(c, gin.H{
		"document_id": req.DocumentID,
		"questions":   payloads,
	})
}

func (h *QuizHandler) CreateSession(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, questions, err := h.sessionService.CreateSession(c.Request.Context(), userID, req.DocumentID, req.NumQuestions, req.Difficulty, req.QuestionTypes)
	if err != nil {
		h.quizError(c, err, "create quiz session failed")
		return
	}

	response.OK(c, gin.H{
		"session":   session,
		"questions": questions,
	})
}

func (h *QuizHandler) GetSession(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	status, err := h.sessionService.GetStatus(c.Request.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "session not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get session failed")
		}
		return
	}

	response.OK(c, status)
}

func (h *QuizHandler) CurrentQuestion(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}

	question, err := h.sessionService.CurrentQuestion(userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "session not found")
		case errors.Is(err, app.ErrSessionNotActive):
			response.Error(c, http.StatusGone, response.CodeSessionInactive, err.Error())
		case errors.Is(err, app.ErrNoMoreQuestions):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get current question failed")
		}
		return
	}

	response.OK(c, question)
}

func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return
	}
	questionID, err := strconv.ParseUint(c.Query("question_id"), 10, 64)
	if err != nil || questionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question_id query parameter is required")
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	outcome, err := h.sessionService.SubmitAnswer(c.Request.Context(), userID, sessionID, uint(questionID), req.Answer, req.InputMethod)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "session not found")
		case errors.Is(err, app.ErrQuestionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.Is(err, app.ErrSessionNotActive):
			// Submitting to an inactive session is a caller error, not a
			// resource-gone condition.
			response.Error(c, http.StatusBadRequest, response.CodeSessionInactive, err.Error())
		case errors.Is(err, app.ErrAlreadyAnswered):
			response.Error(c, http.StatusBadRequest, response.CodeAlreadyAnswered, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "submit answer failed")
		}
		return
	}

	response.OK(c, outcome)
}

func (h *QuizHandler) quizError(c *gin.Context, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "document not found")
	case errors.Is(err, app.ErrDocumentNotReady):
		response.Error(c, http.StatusBadRequest, response.CodeDocumentNotReady, err.Error())
	case errors.Is(err, app.ErrGenerationFailed):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallbackMessage)
	}
}
