package documents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"saas-backend/internal/analysis"
	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
)

// multipart framing on top of the file itself
const maxRequestSize = MaxUploadSize + 1<<20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes. rg must run the auth and organization middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.create)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.delete)
	rg.PATCH("/documents/:id/status", h.updateStatus)
	rg.POST("/documents/:id/analyze", h.analyze)
}

type createRequest struct {
	Title       string `json:"title" form:"title" binding:"required,max=255"`
	Description string `json:"description" form:"description" binding:"max=5000"`
	Pathname    string `json:"pathname" form:"pathname"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing completed failed"`
}

type analyzeRequest struct {
	AnalysisType string `json:"analysisType"`
}

func (h *Handler) create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)

	var req createRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds 10MB", nil)
			return
		}
		respond.BindError(c, err)
		return
	}

	in := CreateInput{
		OrganizationID: middleware.OrganizationIDFromContext(c),
		UserID:         middleware.UserIDFromContext(c),
		Title:          req.Title,
		Description:    req.Description,
		Pathname:       req.Pathname,
	}
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		if fileHeader, err := c.FormFile("file"); err == nil {
			if fileHeader.Size > MaxUploadSize {
				respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds 10MB", nil)
				return
			}
			file, err := fileHeader.Open()
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
				return
			}
			defer file.Close()
			in.File = &FileInput{Name: fileHeader.Filename, Reader: file}
		} else if !errors.Is(err, http.ErrMissingFile) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
	}

	doc, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.LogDocumentID, doc.ID)
	respond.Created(c, doc)
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
	docs, err := h.Svc.List(c.Request.Context(), middleware.OrganizationIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": docs, "limit": limit, "offset": offset})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogDocumentID, id)
	doc, err := h.Svc.Get(c.Request.Context(), middleware.OrganizationIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, doc)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogDocumentID, id)
	err := h.Svc.Delete(c.Request.Context(), middleware.OrganizationIDFromContext(c), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogDocumentID, id)
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	doc, err := h.Svc.UpdateStatus(c.Request.Context(), middleware.OrganizationIDFromContext(c), id, analysis.Status(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.LogStatusTransition, req.Status)
	respond.OK(c, doc)
}

func (h *Handler) analyze(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogDocumentID, id)
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
	err = h.Svc.StartAnalysis(c.Request.Context(), middleware.OrganizationIDFromContext(c), middleware.UserIDFromContext(c), id, analysisType)
	if err != nil {
		analysis.WriteError(c, err)
		return
	}
	c.Set(middleware.LogStatusTransition, string(analysis.StatusProcessing))
	respond.JSON(c, http.StatusAccepted, gin.H{"status": analysis.StatusProcessing, "documentId": id})
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
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds 10MB", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process document", nil)
	}
}
