package jobs

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dulmini1119/tms-sub001/internal"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	"github.com/dulmini1119/tms-sub001/internal/observability"
)

type InvoiceService interface {
	GenerateMonthly(ctx context.Context, month, vendorID, userID string) ([]invoiceDatamodel.Invoice, error)
	MarkOverdue(ctx context.Context) (int, error)
}

type InvoiceJobs struct {
	Service InvoiceService
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

func NewInvoiceJobs(service InvoiceService, logger *slog.Logger, metrics *observability.Metrics) *InvoiceJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceJobs{Service: service, Logger: logger, Metrics: metrics}
}

// Handlers lists the task handlers for the worker mux.
func (j *InvoiceJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskGenerateMonthlyInvoices, Handler: j.HandleGenerateMonthly},
		{Type: TaskMarkOverdueInvoices, Handler: j.HandleMarkOverdue},
	}
}

// HandleGenerateMonthly never retries a payload the service rejects as invalid.
func (j *InvoiceJobs) HandleGenerateMonthly(ctx context.Context, task *asynq.Task) (err error) {
	var payload GenerateMonthlyPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			j.Logger.Error("decode monthly invoice payload", "error", err)
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskGenerateMonthlyInvoices)
	defer func() { err = tracker.End(err) }()

	invoices, err := j.Service.GenerateMonthly(ctx, payload.Month, payload.VendorID, SystemUser)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeValidation {
			j.Logger.Error("monthly invoice run rejected", "month", payload.Month, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		j.Logger.Error("monthly invoice run failed",
			"month", payload.Month, "vendor_id", payload.VendorID, "generated", len(invoices), "error", err)
		return err
	}

	j.Logger.Info("monthly invoice run finished",
		"month", payload.Month, "vendor_id", payload.VendorID, "generated", len(invoices))
	return nil
}

func (j *InvoiceJobs) HandleMarkOverdue(ctx context.Context, task *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskMarkOverdueInvoices)
	defer func() { err = tracker.End(err) }()

	n, err := j.Service.MarkOverdue(ctx)
	if err != nil {
		j.Logger.Error("overdue sweep failed", "error", err)
		return err
	}
	j.Logger.Info("overdue sweep finished", "marked", n)
	return nil
}

// IsSkipRetry reports whether a handler error stops asynq from retrying.
func IsSkipRetry(err error) bool {
	return stdErrors.Is(err, asynq.SkipRetry)
}

// Schedule registers the monthly invoice run and the overdue sweep from config.
func Schedule(cfg internal.JobsConfig) ([]CronRegistration, error) {
	monthly, err := NewGenerateMonthlyTask(GenerateMonthlyPayload{})
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: cfg.MonthlyInvoiceCron, Task: monthly, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: cfg.OverdueCron, Task: NewMarkOverdueTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
	}, nil
}
