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

	"github.com/kirillkom/arxiv-copilot/internal/bootstrap"
	"github.com/kirillkom/arxiv-copilot/internal/config"
	"github.com/kirillkom/arxiv-copilot/internal/observability/logging"
	"github.com/kirillkom/arxiv-copilot/internal/observability/metrics"
)

const service = "worker"

// jobTimeout caps one research run end to end: search, download, embedding
// and report generation included.
const jobTimeout = 15 * time.Minute

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeResearchRequested(ctx, func(handlerCtx context.Context, jobID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		if job, lookupErr := app.Repo.GetByID(runCtx, jobID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(service, time.Since(job.CreatedAt))
		}

		workerMetrics.StartJob()
		start := time.Now()
		runErr := app.RunUC.RunByID(runCtx, jobID)
		workerMetrics.FinishJob(service, time.Since(start), runErr)
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
