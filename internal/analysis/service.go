package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"saas-backend/internal/activity"
	"saas-backend/internal/llm"
	"saas-backend/internal/organizations"
	"saas-backend/internal/queue"
	"saas-backend/internal/shared/metrics"
	"saas-backend/internal/shared/telemetry"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	defaultMaxTokens = 4096
)

// Service starts analyses and runs them against the configured LLM.
type Service struct {
	Orgs      SettingsLookup
	LLM       llm.Client
	Provider  string
	Model     string
	MaxTokens int
	// Queue, when set, receives jobs instead of running them in-process.
	Queue      queue.Client
	Activity   ActivityRecorder
	Notifier   Notifier
	Now        func() time.Time
	RetryDelay time.Duration

	targets  map[string]Target
	inflight sync.WaitGroup
}

func NewService(orgs SettingsLookup, client llm.Client, provider, model string, maxTokens int) *Service {
	return &Service{
		Orgs:       orgs,
		LLM:        client,
		Provider:   provider,
		Model:      model,
		MaxTokens:  maxTokens,
		Now:        time.Now,
		RetryDelay: llmRetryBaseDelay,
		targets:    make(map[string]Target),
	}
}

// Register makes resourceType analyzable through target.
func (s *Service) Register(resourceType string, target Target) {
	if s.targets == nil {
		s.targets = make(map[string]Target)
	}
	s.targets[resourceType] = target
}

// Start validates the request, marks the resource processing and dispatches the job.
// The LLM call happens after Start returns.
func (s *Service) Start(ctx context.Context, req Request) error {
	target, ok := s.targets[req.ResourceType]
	if !ok {
		return ErrUnknownResource
	}
	if req.Type == "" {
		req.Type = TypeGeneral
	}

	settings, err := s.settings(ctx, req.OrganizationID)
	if err != nil {
		return err
	}
	if !settings.AIAnalysisEnabled() {
		return ErrFeatureDisabled
	}

	subject, err := target.AnalysisSubject(ctx, req.OrganizationID, req.ResourceID)
	if err != nil {
		return err
	}
	if err := target.SetStatus(ctx, req.OrganizationID, req.ResourceID, StatusProcessing); err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	metrics.IncAnalysisStarted(req.ResourceType)
	s.logStatus(ctx, req, subject.Status, StatusProcessing, nil)

	job := Job{Request: req, RequestID: telemetry.RequestIDFrom(ctx), EnqueuedAt: s.now().UTC()}
	if s.Queue != nil {
		if err := s.Queue.Send(ctx, job.Message()); err != nil {
			s.fail(context.WithoutCancel(ctx), target, job, err, time.Time{})
			return fmt.Errorf("enqueue analysis: %w", err)
		}
		return nil
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		_ = s.Process(context.WithoutCancel(ctx), job)
	}()
	return nil
}

// Process runs one analysis to completion. Any failure, including a panic, leaves the
// resource failed with its previous ai_output untouched.
func (s *Service) Process(ctx context.Context, job Job) (err error) {
	if job.RequestID != "" && telemetry.RequestIDFrom(ctx) == "" {
		ctx = telemetry.WithRequestID(ctx, job.RequestID)
	}
	target, ok := s.targets[job.ResourceType]
	if !ok {
		return ErrUnknownResource
	}
	if job.Type == "" {
		job.Type = TypeGeneral
	}
	startedAt := s.now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.fail(ctx, target, job, err, startedAt)
		}
	}()

	subject, err := target.AnalysisSubject(ctx, job.OrganizationID, job.ResourceID)
	if errors.Is(err, ErrNotFound) {
		telemetry.Warn("analysis.skipped", map[string]any{
			"request_id":      telemetry.RequestIDFrom(ctx),
			"organization_id": job.OrganizationID,
			"resource_type":   job.ResourceType,
			"resource_id":     job.ResourceID,
			"reason":          "resource deleted",
		})
		return nil
	}
	if err != nil {
		s.fail(ctx, target, job, fmt.Errorf("load subject: %w", err), startedAt)
		return err
	}

	settings, err := s.settings(ctx, job.OrganizationID)
	if err != nil {
		s.fail(ctx, target, job, fmt.Errorf("load settings: %w", err), startedAt)
		return err
	}

	completion, err := s.complete(ctx, job, subject, settings)
	if err != nil {
		s.fail(ctx, target, job, fmt.Errorf("llm analyze: %w", err), startedAt)
		return err
	}

	completedAt := s.now()
	out := Output{
		Summary:     completion.Text,
		Model:       completion.Model,
		TokensUsed:  completion.TokensUsed(),
		ProcessedAt: completedAt.UTC().Format(time.RFC3339),
	}
	if err := target.SaveAnalysis(ctx, job.OrganizationID, job.ResourceID, out); err != nil {
		s.fail(ctx, target, job, fmt.Errorf("save analysis: %w", err), startedAt)
		return err
	}

	duration := durationMs(startedAt, completedAt)
	metrics.IncAnalysisCompleted(job.ResourceType)
	metrics.ObserveAnalysisDurationMs(duration)
	s.logStatus(ctx, job.Request, StatusProcessing, StatusCompleted, map[string]any{
		"duration_ms": duration,
		"model":       out.Model,
		"tokens_used": out.TokensUsed,
	})

	if s.Activity != nil {
		s.Activity.Record(ctx, activity.Entry{
			OrganizationID: job.OrganizationID,
			UserID:         job.UserID,
			Action:         job.ResourceType + ".analyzed",
			ResourceType:   job.ResourceType,
			ResourceID:     job.ResourceID,
			Metadata:       map[string]any{"analysisType": string(job.Type), "model": out.Model},
		})
	}
	s.notify(ctx, settings, job, StatusCompleted, &out)
	return nil
}

// Drain waits for in-process analyses started by Start, or until ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) complete(ctx context.Context, job Job, subject Subject, settings organizations.Settings) (llm.Completion, error) {
	if s.LLM == nil {
		return llm.Completion{}, llm.ErrNotConfigured
	}
	req := llm.Request{
		Model:     s.modelFor(settings),
		MaxTokens: s.MaxTokens,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if job.Type == TypeRaw {
		content := job.Content
		if strings.TrimSpace(content) == "" {
			content = noContentPlaceholder
		}
		req.Prompt = llm.BuildPrompt(llm.PromptRaw, content)
	} else {
		content := job.Content
		if strings.TrimSpace(content) == "" {
			content = subject.Text()
		}
		req.System = llm.SystemPrompt()
		req.Prompt = llm.BuildPrompt(string(job.Type), content)
	}
	client := newRetryingLLM(s.LLM, job.ResourceID, s.RetryDelay)
	return client.Complete(ctx, req)
}

func (s *Service) modelFor(settings organizations.Settings) string {
	if s.Provider == ProviderAnthropic && settings.AIModel != "" {
		return settings.AIModel
	}
	return s.Model
}

func (s *Service) settings(ctx context.Context, organizationID string) (organizations.Settings, error) {
	if s.Orgs == nil {
		return organizations.Settings{}, nil
	}
	settings, err := s.Orgs.Settings(ctx, organizationID)
	if errors.Is(err, organizations.ErrNotFound) {
		return organizations.Settings{}, ErrNotFound
	}
	return settings, err
}

func (s *Service) fail(ctx context.Context, target Target, job Job, cause error, startedAt time.Time) {
	// The caller's context may already be cancelled; the failure must still be recorded.
	ctx = context.WithoutCancel(ctx)
	if err := target.SetStatus(ctx, job.OrganizationID, job.ResourceID, StatusFailed); err != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"request_id":  telemetry.RequestIDFrom(ctx),
			"resource_id": job.ResourceID,
			"error":       err,
			"cause":       sanitizeError(cause),
		})
	}
	metrics.IncAnalysisFailed(job.ResourceType)
	fields := map[string]any{"error": sanitizeError(cause)}
	if !startedAt.IsZero() {
		d := durationMs(startedAt, s.now())
		metrics.ObserveAnalysisDurationMs(d)
		fields["duration_ms"] = d
	}
	s.logStatus(ctx, job.Request, StatusProcessing, StatusFailed, fields)

	settings, err := s.settings(ctx, job.OrganizationID)
	if err == nil {
		s.notify(ctx, settings, job, StatusFailed, nil)
	}
}

func (s *Service) notify(ctx context.Context, settings organizations.Settings, job Job, status Status, out *Output) {
	if s.Notifier == nil || settings.WebhookURL == "" {
		return
	}
	event := Event{
		Event:          job.ResourceType + ".analysis_" + string(status),
		OrganizationID: job.OrganizationID,
		ResourceType:   job.ResourceType,
		ResourceID:     job.ResourceID,
		Status:         status,
		AnalysisType:   job.Type,
		Output:         out,
		OccurredAt:     s.now().UTC().Format(time.RFC3339),
	}
	if err := s.Notifier.Notify(ctx, settings.WebhookURL, event); err != nil {
		telemetry.Warn("analysis.webhook_failed", map[string]any{
			"request_id":      telemetry.RequestIDFrom(ctx),
			"organization_id": job.OrganizationID,
			"resource_id":     job.ResourceID,
			"error":           err,
		})
	}
}

func (s *Service) logStatus(ctx context.Context, req Request, from, to Status, extra map[string]any) {
	fields := map[string]any{
		"request_id":        telemetry.RequestIDFrom(ctx),
		"organization_id":   req.OrganizationID,
		"user_id":           req.UserID,
		"resource_type":     req.ResourceType,
		"resource_id":       req.ResourceID,
		"analysis_type":     string(req.Type),
		"status":            string(to),
		"status_transition": string(from) + "->" + string(to),
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("analysis.status", fields)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}
