package analysis

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
)

// Handler serves the direct analyze route.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ai/analyze", h.analyze)
}

type analyzeRequest struct {
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Document ID required", []respond.FieldIssue{{Field: "documentId", Issue: "is required"}})
		return
	}
	err := h.Svc.Start(c.Request.Context(), Request{
		ResourceType:   ResourceDocument,
		ResourceID:     req.DocumentID,
		OrganizationID: middleware.OrganizationIDFromContext(c),
		UserID:         middleware.UserIDFromContext(c),
		Type:           TypeRaw,
		Content:        req.Content,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.Set(middleware.LogDocumentID, req.DocumentID)
	c.Set(middleware.LogStatusTransition, string(StatusProcessing))
	respond.JSON(c, http.StatusAccepted, gin.H{"status": StatusProcessing, "documentId": req.DocumentID})
}

// WriteError maps Start errors to HTTP responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resource not found", nil)
	case errors.Is(err, ErrFeatureDisabled):
		respond.Error(c, http.StatusForbidden, "feature_disabled", "AI analysis is disabled for this organization", nil)
	case errors.Is(err, ErrInvalidType):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid analysisType", []respond.FieldIssue{{Field: "analysisType", Issue: "must be one of general, summary, extract"}})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
	}
}
