package documents

import (
	"time"

	"saas-backend/internal/analysis"
	"saas-backend/internal/users"
)

// Document is an organization-owned record, optionally backed by an uploaded file.
type Document struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	CreatedByID    string           `json:"createdById,omitempty"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Content        string           `json:"content,omitempty"`
	Status         analysis.Status  `json:"status"`
	AIOutput       *analysis.Output `json:"aiOutput,omitempty"`
	Metadata       *Metadata        `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	CreatedBy      *users.Summary   `json:"createdBy,omitempty"`
}

// Metadata describes the file a document was created from.
type Metadata struct {
	OriginalFilename string    `json:"originalFilename"`
	FileSize         int64     `json:"fileSize"`
	PageCount        int       `json:"pageCount,omitempty"`
	UploadedAt       time.Time `json:"uploadedAt"`
	StorageKey       string    `json:"storageKey"`
	ContentType      string    `json:"contentType"`
	// Attached marks a file the document references but does not own.
	Attached         bool      `json:"attached,omitempty"`
}
