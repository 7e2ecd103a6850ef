package organizations

import "time"

// Models an organization may pick for analysis.
const (
	ModelSonnet = "claude-sonnet-4-5-20250929"
	ModelOpus   = "claude-opus-4-5-20251101"
	ModelHaiku  = "claude-haiku-4-5-20251001"
)

var allowedModels = map[string]struct{}{
	ModelSonnet: {},
	ModelOpus:   {},
	ModelHaiku:  {},
}

// AllowedModel reports whether model may be stored in Settings.AIModel.
func AllowedModel(model string) bool {
	_, ok := allowedModels[model]
	return ok
}

type Features struct {
	AIAnalysis *bool `json:"aiAnalysis,omitempty"`
	BulkUpload *bool `json:"bulkUpload,omitempty"`
}

type Settings struct {
	AIModel    string   `json:"aiModel,omitempty"`
	WebhookURL string   `json:"webhookUrl,omitempty"`
	Features   Features `json:"features"`
}

// AIAnalysisEnabled is true unless the feature was explicitly switched off.
func (s Settings) AIAnalysisEnabled() bool {
	return s.Features.AIAnalysis == nil || *s.Features.AIAnalysis
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
