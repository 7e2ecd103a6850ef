package projects

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/analysis"
	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches project routes. rg must run the auth and organization middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/projects", h.create)
	rg.GET("/projects", h.list)
	rg.GET("/projects/:id", h.get)
	rg.DELETE("/projects/:id", h.delete)
	rg.PATCH("/projects/:id/status", h.updateStatus)
	rg.POST("/projects/:id/analyze", h.analyze)
}

type createRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"max=5000"`
	Content     string `json:"content" binding:"max=100000"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing completed failed"`
}

type analyzeRequest struct {
	AnalysisType string `json:"analysisType"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), CreateInput{
		OrganizationID: middleware.OrganizationIDFromContext(c),
		UserID:         middleware.UserIDFromContext(c),
		Title:          req.Title,
		Description:    req.Description,
		Content:        req.Content,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.LogProjectID, p.ID)
	respond.Created(c, p)
}

func (h *Handler) list(c *gin.Context) {
	limit, ok := queryInt(c, "limit", DefaultListLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	list, err := h.Svc.List(c.Request.Context(), middleware.OrganizationIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": list, "limit": limit, "offset": offset})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogProjectID, id)
	p, err := h.Svc.Get(c.Request.Context(), middleware.OrganizationIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, p)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogProjectID, id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.OrganizationIDFromContext(c), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogProjectID, id)
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	p, err := h.Svc.UpdateStatus(c.Request.Context(), middleware.OrganizationIDFromContext(c), id, analysis.Status(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.LogStatusTransition, req.Status)
	respond.OK(c, p)
}

func (h *Handler) analyze(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogProjectID, id)
	var req analyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BindError(c, err)
			return
		}
	}
	analysisType, err := analysis.ParseType(req.AnalysisType)
	if err != nil {
		analysis.WriteError(c, err)
		return
	}
	if err := h.Svc.StartAnalysis(c.Request.Context(), middleware.OrganizationIDFromContext(c), middleware.UserIDFromContext(c), id, analysisType); err != nil {
		analysis.WriteError(c, err)
		return
	}
	c.Set(middleware.LogStatusTransition, string(analysis.StatusProcessing))
	respond.JSON(c, http.StatusAccepted, gin.H{"status": analysis.StatusProcessing, "projectId": id})
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", key+" must be a non-negative integer", nil)
		return 0, false
	}
	return v, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process project", nil)
	}
}
