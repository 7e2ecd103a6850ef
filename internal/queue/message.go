package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message is one queued analysis job.
type Message struct {
	Version        int    `json:"version"`
	ResourceType   string `json:"resourceType"`
	ResourceID     string `json:"resourceId"`
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId,omitempty"`
	AnalysisType   string `json:"analysisType"`
	Content        string `json:"content,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
	EnqueuedAt     string `json:"enqueuedAt"`
}

// ErrMissingTarget is returned for a message without resource or organization.
var ErrMissingTarget = errors.New("message missing resource or organization")

// Validate checks the fields a consumer needs to route the job.
func (m Message) Validate() error {
	if strings.TrimSpace(m.ResourceType) == "" ||
		strings.TrimSpace(m.ResourceID) == "" ||
		strings.TrimSpace(m.OrganizationID) == "" {
		return ErrMissingTarget
	}
	return nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
