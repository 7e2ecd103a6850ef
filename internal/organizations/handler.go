package organizations

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
	"saas-backend/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches organization routes. rg must already run the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/organizations", h.create)

	current := rg.Group("/organizations/current", middleware.RequireOrg())
	current.GET("", h.current)
	current.PATCH("", middleware.RequireRole(string(users.RoleOwner), string(users.RoleAdmin)), h.update)
}

type createRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type featuresRequest struct {
	AIAnalysis *bool `json:"aiAnalysis"`
	BulkUpload *bool `json:"bulkUpload"`
}

type updateRequest struct {
	Name       string           `json:"name" binding:"required,max=100"`
	AIModel    string           `json:"aiModel"`
	WebhookURL string           `json:"webhookUrl" binding:"omitempty,url"`
	Features   *featuresRequest `json:"features"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	org, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.Created(c, org)
}

func (h *Handler) current(c *gin.Context) {
	org, err := h.Svc.Get(c.Request.Context(), middleware.OrganizationIDFromContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, org)
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	in := UpdateInput{Name: req.Name, AIModel: req.AIModel, WebhookURL: req.WebhookURL}
	if req.Features != nil {
		in.Features = Features{AIAnalysis: req.Features.AIAnalysis, BulkUpload: req.Features.BulkUpload}
	}
	org, err := h.Svc.UpdateSettings(c.Request.Context(), middleware.OrganizationIDFromContext(c), middleware.UserIDFromContext(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, org)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "name must be 1-100 characters", nil)
	case errors.Is(err, ErrInvalidModel):
		respond.Error(c, http.StatusBadRequest, "validation_error", "unsupported aiModel", []respond.FieldIssue{{Field: "aiModel", Issue: "must be a supported model"}})
	case errors.Is(err, ErrInvalidWebhook):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid webhookUrl", []respond.FieldIssue{{Field: "webhookUrl", Issue: "must be an http(s) url"}})
	case errors.Is(err, ErrAlreadyMember):
		respond.Error(c, http.StatusConflict, "conflict", "user already belongs to an organization", nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, users.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process organization", nil)
	}
}
