package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	cron "github.com/robfig/cron"

	"saas-backend/internal/shared/telemetry"
)

// CronJob is a maintenance task run on a cron schedule.
type CronJob interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

// Runner schedules cron jobs. A job still running when its next tick fires is skipped.
type Runner struct {
	cron    *cron.Cron
	jobs    []CronJob
	timeout time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func NewRunner(timeout time.Duration, jobs ...CronJob) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{cron: cron.New(), jobs: jobs, timeout: timeout}
}

// Start registers every job and starts the scheduler.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	for _, job := range r.jobs {
		var busy atomic.Bool
		if err := r.cron.AddFunc(job.Schedule(), func() {
			if !busy.CompareAndSwap(false, true) {
				telemetry.Warn("jobs.skipped", map[string]any{"job": job.Name(), "reason": "still running"})
				return
			}
			defer busy.Store(false)
			r.RunOnce(job)
		}); err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.Name(), job.Schedule(), err)
		}
	}
	r.cron.Start()
	telemetry.Info("jobs.started", map[string]any{"count": len(r.jobs)})
	return nil
}

// RunOnce executes job immediately with the runner's timeout.
func (r *Runner) RunOnce(job CronJob) {
	r.running.Add(1)
	defer r.running.Done()

	parent := r.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	startedAt := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("jobs.panic", map[string]any{"job": job.Name(), "panic": fmt.Sprint(rec)})
		}
	}()
	if err := job.Run(ctx); err != nil {
		telemetry.Error("jobs.failed", map[string]any{"job": job.Name(), "error": err})
		return
	}
	telemetry.Info("jobs.completed", map[string]any{
		"job":         job.Name(),
		"duration_ms": time.Since(startedAt).Milliseconds(),
	})
}

// Stop halts the scheduler, cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.cron.Stop()
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.running.Wait()
}
