package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"saas-backend/internal/bootstrap"
	"saas-backend/internal/shared/config"
	"saas-backend/internal/shared/telemetry"
	"saas-backend/internal/workerproc"
)

func main() {
	if err := run(); err != nil {
		telemetry.Error("worker.exit", map[string]any{"error": err})
		telemetry.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)
	defer telemetry.Sync()

	if cfg.AnalysisQueueURL == "" {
		return errors.New("ANALYSIS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return err
	}

	// The worker runs jobs itself, so analyses must not be sent back to the queue.
	app, err := bootstrap.Build(ctx, cfg, bootstrap.WithoutQueue())
	if err != nil {
		return err
	}
	defer app.Close()

	w := &workerproc.Worker{
		Client:            sqs.NewFromConfig(awsCfg),
		QueueURL:          cfg.AnalysisQueueURL,
		Processor:         app.Analysis,
		Concurrency:       cfg.WorkerConcurrency,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
	}
	return w.Run(ctx)
}
