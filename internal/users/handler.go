package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/server/respond"
)

// OrganizationInfo is the organization summary embedded in /me.
type OrganizationInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// OrganizationDirectory looks up the caller's organization for /me.
type OrganizationDirectory interface {
	OrganizationInfo(ctx context.Context, organizationID string) (OrganizationInfo, error)
}

type Handler struct {
	Svc  *Service
	Orgs OrganizationDirectory
}

func NewHandler(svc *Service, orgs OrganizationDirectory) *Handler {
	return &Handler{Svc: svc, Orgs: orgs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.PATCH("/me", h.updateMe)
}

type meResponse struct {
	User
	Organization *OrganizationInfo `json:"organization,omitempty"`
}

type updateMeRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := meResponse{User: user}
	if user.OrganizationID != "" && h.Orgs != nil {
		org, err := h.Orgs.OrganizationInfo(c.Request.Context(), user.OrganizationID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load organization", nil)
			return
		}
		resp.Organization = &org
	}
	respond.OK(c, resp)
}

func (h *Handler) updateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	user, err := h.Svc.UpdateName(c.Request.Context(), middleware.UserIDFromContext(c), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "name must be 1-100 characters", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
	}
}
