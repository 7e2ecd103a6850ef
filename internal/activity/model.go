package activity

import (
	"time"

	"saas-backend/internal/users"
)

// Actions recorded after mutations.
const (
	ActionDocumentCreated     = "document.created"
	ActionDocumentDeleted     = "document.deleted"
	ActionDocumentAnalyzed    = "document.analyzed"
	ActionProjectCreated      = "project.created"
	ActionProjectDeleted      = "project.deleted"
	ActionProjectAnalyzed     = "project.analyzed"
	ActionOrganizationCreated = "organization.created"
	ActionSettingsUpdated     = "organization.settings_updated"
)

// Resource types.
const (
	ResourceDocument     = "document"
	ResourceProject      = "project"
	ResourceOrganization = "organization"
)

// Entry is one append-only audit row.
type Entry struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	UserID         string         `json:"userId,omitempty"`
	Action         string         `json:"action"`
	ResourceType   string         `json:"resourceType"`
	ResourceID     string         `json:"resourceId,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	User           *users.Summary `json:"user,omitempty"`
}
