package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/support-agent-core/internal/config"
	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/infrastructure/queue/nats"
	"github.com/kirillkom/support-agent-core/internal/observability/logging"
	"github.com/kirillkom/support-agent-core/internal/observability/metrics"
)

// The worker is the analytics tail of the pipeline: it consumes completed
// turn events and turns them into structured logs and Prometheus series.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		log.Fatalf("worker queue error: %v", err)
	}
	defer queue.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", slog.String("port", cfg.WorkerMetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", slog.String("subject", cfg.NATSSubject))
	err = queue.SubscribeTurnCompleted(ctx, func(handlerCtx context.Context, event domain.TurnEvent) error {
		workerMetrics.StartEvent()
		started := time.Now()

		workerMetrics.ObserveEventLag("worker", time.Since(event.CompletedAt))
		workerMetrics.ObserveTurn("worker", event.Branch, event.Intent, event.ConfidenceLevel, event.SourceCount)
		logger.Info("turn_completed",
			slog.String("session_key", event.SessionKey),
			slog.Int("turn", event.Turn),
			slog.String("branch", event.Branch),
			slog.String("intent", event.Intent),
			slog.Float64("confidence_score", event.ConfidenceScore),
			slog.String("confidence_level", event.ConfidenceLevel),
			slog.Int("source_count", event.SourceCount),
			slog.Float64("duration_ms", event.DurationMS),
		)

		workerMetrics.FinishEvent("worker", time.Since(started), nil)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
