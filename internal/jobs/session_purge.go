package jobs

import (
	"context"

	"saas-backend/internal/shared/telemetry"
)

type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionPurge deletes expired sessions.
type SessionPurge struct {
	Purger SessionPurger
	Spec   string
}

func (j SessionPurge) Name() string { return "session_purge" }

func (j SessionPurge) Schedule() string {
	if j.Spec == "" {
		return "@every 1h"
	}
	return j.Spec
}

func (j SessionPurge) Run(ctx context.Context) error {
	n, err := j.Purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	telemetry.Info("jobs.sessions_purged", map[string]any{"deleted": n})
	return nil
}
