package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dulmini1119/tms-sub001/internal/gpslog/mqtt"
	"github.com/dulmini1119/tms-sub001/internal/jobs"
	"github.com/dulmini1119/tms-sub001/internal/observability"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the billing job worker or the GPS telemetry ingester.`,
}

var jobsWorkerCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Start the billing job worker and scheduler",
	Long:  `Process invoice tasks from Redis and schedule the monthly invoice run and the overdue sweep.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startJobsWorker()
	},
}

var telemetryWorkerCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Start the MQTT GPS ingester",
	Long:  `Subscribe to the device topic and store every valid GPS ping.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startTelemetryWorker()
	},
}

var metricsAddr string

func startJobsWorker() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	schedule, err := jobs.Schedule(cfg.Jobs)
	if err != nil {
		return fmt.Errorf("invalid job schedule: %w", err)
	}

	invoiceJobs := jobs.NewInvoiceJobs(app.Invoices, log, app.Metrics)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   jobs.RedisOpt(cfg.Jobs),
		Concurrency: cfg.Jobs.Concurrency,
		Logger:      log,
		Handlers:    invoiceJobs.Handlers(),
		Cron:        schedule,
	})
	if err != nil {
		return fmt.Errorf("failed to build worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go serveMetrics(ctx, app.Metrics, log)

	log.Info("starting job worker",
		"redis_addr", cfg.Jobs.RedisAddr,
		"concurrency", cfg.Jobs.Concurrency,
		"monthly_invoice_cron", cfg.Jobs.MonthlyInvoiceCron,
		"overdue_cron", cfg.Jobs.OverdueCron)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("job worker stopped")
	return nil
}

func startTelemetryWorker() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.Telemetry.BrokerURL == "" {
		return errors.New("telemetry.broker_url is required")
	}

	app, err := newApplication(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go serveMetrics(ctx, app.Metrics, log)

	subscriber := mqtt.NewSubscriber(cfg.Telemetry, app.GPSLogs, app.Metrics, log)
	log.Info("starting telemetry ingester", "broker", cfg.Telemetry.BrokerURL, "topic", cfg.Telemetry.Topic)

	if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("telemetry ingester stopped")
	return nil
}

// serveMetrics exposes the worker's registry when --metrics-addr is set.
func serveMetrics(ctx context.Context, metrics *observability.Metrics, log *slog.Logger) {
	if metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server failed", "error", err)
	}
}

func init() {
	workerCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address for the worker metrics endpoint, e.g. :9091")

	workerCmd.AddCommand(jobsWorkerCmd)
	workerCmd.AddCommand(telemetryWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
