package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-backend/internal/bootstrap"
	"saas-backend/internal/shared/config"
	"saas-backend/internal/shared/server"
	"saas-backend/internal/shared/storage/db"
	"saas-backend/internal/shared/telemetry"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		telemetry.Error("api.exit", map[string]any{"error": err})
		telemetry.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.DB != nil && cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			return err
		}
	}

	if err := app.Jobs.Start(ctx); err != nil {
		return err
	}
	defer app.Jobs.Stop()

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("api.listening", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	telemetry.Info("api.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// In-process analyses started before shutdown still get to write their result.
	if err := app.Analysis.Drain(shutdownCtx); err != nil {
		telemetry.Warn("api.drain_incomplete", map[string]any{"error": err})
	}
	return nil
}
