package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"saas-backend/internal/analysis"
	"saas-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalidMessage indicates a message that decodes but cannot be routed.
type ErrInvalidMessage struct {
	Meta      MessageMeta
	RequestID string
	Err       error
}

func (e ErrInvalidMessage) Error() string { return "invalid message: " + e.Err.Error() }

func (e ErrInvalidMessage) Unwrap() error { return e.Err }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ResourceType string
	ResourceID   string
	RequestID    string
	Err          error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process analysis"
	}
	return "process analysis: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the payload can never be processed,
// so redelivering it is pointless.
func Unrecoverable(err error) bool {
	var empty ErrEmptyBody
	var decode ErrDecode
	var invalid ErrInvalidMessage
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &invalid)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Err: err}
	}
	switch analysis.Type(msg.AnalysisType) {
	case "", analysis.TypeGeneral, analysis.TypeSummary, analysis.TypeExtract, analysis.TypeRaw:
	default:
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Err: analysis.ErrInvalidType}
	}
	return msg, meta, nil
}

// Processor runs a decoded analysis job.
type Processor interface {
	Process(ctx context.Context, job analysis.Job) error
}

// HandleMessage processes an already parsed message.
func HandleMessage(ctx context.Context, processor Processor, msg queue.Message) error {
	if processor == nil {
		return errors.New("analysis service not configured")
	}
	job := analysis.JobFromMessage(msg)
	if err := processor.Process(ctx, job); err != nil {
		if errors.Is(err, analysis.ErrUnknownResource) {
			return ErrInvalidMessage{Meta: MessageMeta{}, RequestID: msg.RequestID, Err: err}
		}
		return ErrProcess{ResourceType: msg.ResourceType, ResourceID: msg.ResourceID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
