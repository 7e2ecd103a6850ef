package analysis

import (
	"context"

	"saas-backend/internal/activity"
	"saas-backend/internal/organizations"
)

// Target is a resource store the analysis service can read and update.
// Implementations return ErrNotFound for resources outside organizationID.
type Target interface {
	AnalysisSubject(ctx context.Context, organizationID, id string) (Subject, error)
	SetStatus(ctx context.Context, organizationID, id string, status Status) error
	// SaveAnalysis stores out and sets the status to completed.
	SaveAnalysis(ctx context.Context, organizationID, id string, out Output) error
}

// SettingsLookup returns an organization's settings.
type SettingsLookup interface {
	Settings(ctx context.Context, organizationID string) (organizations.Settings, error)
}

// ActivityRecorder appends audit rows.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry)
}

// Notifier delivers completion events to an organization's webhook.
type Notifier interface {
	Notify(ctx context.Context, url string, event Event) error
}

// Event is the webhook body sent after an analysis finishes.
type Event struct {
	Event          string  `json:"event"`
	OrganizationID string  `json:"organizationId"`
	ResourceType   string  `json:"resourceType"`
	ResourceID     string  `json:"resourceId"`
	Status         Status  `json:"status"`
	AnalysisType   Type    `json:"analysisType"`
	Output         *Output `json:"aiOutput,omitempty"`
	OccurredAt     string  `json:"occurredAt"`
}
