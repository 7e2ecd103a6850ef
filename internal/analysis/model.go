package analysis

import (
	"errors"
	"strings"
	"time"

	"saas-backend/internal/llm"
	"saas-backend/internal/queue"
)

// Status is the lifecycle state shared by documents and projects.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Type selects the prompt template.
type Type string

const (
	TypeGeneral Type = llm.PromptGeneral
	TypeSummary Type = llm.PromptSummary
	TypeExtract Type = llm.PromptExtract
	// TypeRaw is used by the direct /ai/analyze route only.
	TypeRaw Type = llm.PromptRaw
)

// ParseType validates a client supplied analysis type. Empty means general.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TypeGeneral, nil
	case TypeGeneral, TypeSummary, TypeExtract:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// Resource types that can be analyzed.
const (
	ResourceDocument = "document"
	ResourceProject  = "project"
)

const noContentPlaceholder = "No content provided for analysis"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrFeatureDisabled = errors.New("ai analysis disabled for organization")
	ErrInvalidType     = errors.New("invalid analysis type")
	ErrUnknownResource = errors.New("unknown resource type")
)

// Output is stored as ai_output on the analyzed resource.
type Output struct {
	Summary         string         `json:"summary"`
	ExtractedFields map[string]any `json:"extractedFields,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
	ProcessedAt     string         `json:"processedAt"`
	Model           string         `json:"model"`
	TokensUsed      int            `json:"tokensUsed"`
}

// Subject is the analyzable view of a document or project.
type Subject struct {
	ID          string
	Title       string
	Description string
	Content     string
	Status      Status
}

// Text returns the first non-empty of content, description and title.
func (s Subject) Text() string {
	for _, v := range []string{s.Content, s.Description, s.Title} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Request starts an analysis.
type Request struct {
	ResourceType   string
	ResourceID     string
	OrganizationID string
	UserID         string
	Type           Type
	Content        string
}

// Job is a dispatched analysis, processed in-process or by the worker.
type Job struct {
	Request
	RequestID  string
	EnqueuedAt time.Time
}

// Message converts the job to its queue payload.
func (j Job) Message() queue.Message {
	return queue.Message{
		Version:        queue.MessageVersion,
		ResourceType:   j.ResourceType,
		ResourceID:     j.ResourceID,
		OrganizationID: j.OrganizationID,
		UserID:         j.UserID,
		AnalysisType:   string(j.Type),
		Content:        j.Content,
		RequestID:      j.RequestID,
		EnqueuedAt:     j.EnqueuedAt.UTC().Format(time.RFC3339),
	}
}

// JobFromMessage converts a queue payload back into a job.
func JobFromMessage(msg queue.Message) Job {
	enqueuedAt, _ := time.Parse(time.RFC3339, msg.EnqueuedAt)
	t := Type(msg.AnalysisType)
	if t == "" {
		t = TypeGeneral
	}
	return Job{
		Request: Request{
			ResourceType:   msg.ResourceType,
			ResourceID:     msg.ResourceID,
			OrganizationID: msg.OrganizationID,
			UserID:         msg.UserID,
			Type:           t,
			Content:        msg.Content,
		},
		RequestID:  msg.RequestID,
		EnqueuedAt: enqueuedAt,
	}
}
