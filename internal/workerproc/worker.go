package workerproc

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"saas-backend/internal/shared/metrics"
	"saas-backend/internal/shared/telemetry"
)

const (
	defaultConcurrency     = 4
	defaultWaitSeconds     = 20
	defaultShutdownTimeout = 30 * time.Second
	receiveBatchSize       = 10
	receiveErrorBackoff    = 2 * time.Second

	approximateReceiveCount sqstypes.QueueAttributeName = "ApproximateReceiveCount"
)

// SQSAPI is the subset of the SQS client the worker uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Worker long-polls the analysis queue and processes jobs with bounded concurrency.
// A message is deleted after success or when its payload is unrecoverable; on a
// processing error it is left for redelivery once the visibility timeout lapses.
type Worker struct {
	Client            SQSAPI
	QueueURL          string
	Processor         Processor
	Concurrency       int
	VisibilityTimeout time.Duration
	WaitSeconds       int32
	ShutdownTimeout   time.Duration
}

// Run polls until ctx is cancelled, then waits up to ShutdownTimeout for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	if w.Client == nil || strings.TrimSpace(w.QueueURL) == "" {
		return errors.New("worker queue not configured")
	}
	if w.Processor == nil {
		return errors.New("worker processor not configured")
	}
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	// Jobs keep running after shutdown starts; only the poll loop stops.
	jobCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(concurrency)

	telemetry.Info("worker.started", map[string]any{
		"queue_url":          w.QueueURL,
		"concurrency":        concurrency,
		"visibility_seconds": int(w.VisibilityTimeout.Seconds()),
	})

	for ctx.Err() == nil {
		resp, err := w.Client.ReceiveMessage(ctx, w.receiveInput())
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err})
			select {
			case <-ctx.Done():
			case <-time.After(receiveErrorBackoff):
			}
			continue
		}
		for _, msg := range resp.Messages {
			metrics.IncJobReceived()
			g.Go(func() error {
				w.HandleMessage(jobCtx, msg)
				return nil
			})
		}
	}

	timeout := w.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	telemetry.Info("worker.draining", map[string]any{"timeout": timeout.String()})
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
		telemetry.Info("worker.stopped", nil)
		return nil
	case <-time.After(timeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": timeout.String()})
		return context.DeadlineExceeded
	}
}

func (w *Worker) receiveInput() *sqs.ReceiveMessageInput {
	wait := w.WaitSeconds
	if wait <= 0 {
		wait = defaultWaitSeconds
	}
	in := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(w.QueueURL),
		MaxNumberOfMessages: receiveBatchSize,
		WaitTimeSeconds:     wait,
		AttributeNames:      []sqstypes.QueueAttributeName{approximateReceiveCount},
	}
	if w.VisibilityTimeout > 0 {
		in.VisibilityTimeout = int32(w.VisibilityTimeout.Seconds())
	}
	return in
}

// HandleMessage processes one SQS message and deletes it when appropriate.
func (w *Worker) HandleMessage(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", "", decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err
		telemetry.Error("worker.analysis.unrecoverable", fields)
		w.deleteMessage(ctx, msg, fields)
		metrics.IncJobFailed()
		return
	}

	fields := baseFields(msg, decoded.ResourceType, decoded.ResourceID, decoded.RequestID)
	telemetry.Info("worker.analysis.received", fields)

	if err := HandleMessage(ctx, w.Processor, decoded); err != nil {
		fields["error"] = err
		metrics.IncJobFailed()
		if Unrecoverable(err) {
			telemetry.Error("worker.analysis.unrecoverable", fields)
			w.deleteMessage(ctx, msg, fields)
			return
		}
		telemetry.Error("worker.analysis.failed", fields)
		return
	}

	if w.deleteMessage(ctx, msg, fields) {
		telemetry.Info("worker.analysis.completed", fields)
		metrics.IncJobCompleted()
	}
}

func (w *Worker) deleteMessage(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.analysis.delete_failed", withField(fields, "error", "missing receipt handle"))
		return false
	}
	_, err := w.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.QueueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		telemetry.Error("worker.analysis.delete_failed", withField(fields, "error", err))
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, resourceType, resourceID, requestID string) map[string]any {
	fields := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if resourceType != "" {
		fields["resource_type"] = resourceType
		fields["resource_id"] = resourceID
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func withField(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[string(approximateReceiveCount)]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
