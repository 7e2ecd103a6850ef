package projects

import (
	"time"

	"saas-backend/internal/analysis"
	"saas-backend/internal/users"
)

type Project struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	CreatedByID    string           `json:"createdById,omitempty"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Content        string           `json:"content,omitempty"`
	Status         analysis.Status  `json:"status"`
	AIOutput       *analysis.Output `json:"aiOutput,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	CreatedBy      *users.Summary   `json:"createdBy,omitempty"`
}
