package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"doctutor/internal/app"
	"doctutor/internal/model"
	"doctutor/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
}

type SearchRequest struct {
	Query string `json:"query" binding:"required,max=2048"`
	TopK  int    `json:"top_k" binding:"omitempty,min=1,max=50"`
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	if fileHeader.Size > app.MaxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, app.ErrFileTooLarge.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read uploaded file failed")
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), userID, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedFile), errors.Is(err, app.ErrFileTooLarge), errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}

	response.OK(c, documentSummary(doc))
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.documentService.List(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}

	summaries := make([]gin.H, len(docs))
	for i := range docs {
		summaries[i] = documentSummary(&docs[i])
	}
	response.OK(c, summaries)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	documentID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, err := h.documentService.Get(userID, documentID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "document not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		}
		return
	}

	response.OK(c, documentSummary(doc))
}

func (h *DocumentHandler) Search(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	documentID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.documentService.Search(c.Request.Context(), userID, documentID, req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, "document not found")
		case errors.Is(err, app.ErrDocumentNotReady):
			response.Error(c, http.StatusBadRequest, response.CodeDocumentNotReady, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}

	response.OK(c, gin.H{
		"document_id": documentID,
		"results":     results,
	})
}

func documentSummary(doc *model.Document) gin.H {
	summary := gin.H{
		"id":          doc.ID,
		"filename":    doc.Filename,
		"file_type":   doc.FileType,
		"file_size":   doc.FileSize,
		"status":      doc.Status,
		"chunk_count": doc.ChunkCount,
		"page_count":  doc.PageCount,
		"created_at":  doc.CreatedAt,
	}
	if doc.Status == model.DocumentStatusFailed && doc.ErrorMessage != "" {
		summary["error_message"] = doc.ErrorMessage
	}
	return summary
}
