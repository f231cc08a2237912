// Package jobs runs the billing maintenance tasks on an asynq worker: the monthly
// invoice run and the overdue sweep.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/dulmini1119/tms-sub001/internal"
)

const (
	QueueDefault = "default"

	TaskGenerateMonthlyInvoices = "invoice:generate-monthly"
	TaskMarkOverdueInvoices     = "invoice:mark-overdue"
)

// SystemUser is recorded as the generator of scheduled invoices.
const SystemUser = "system"

// GenerateMonthlyPayload scopes the invoice run. An empty month means the previous
// month and an empty vendor id means every active vendor.
type GenerateMonthlyPayload struct {
	Month    string `json:"month,omitempty"`
	VendorID string `json:"vendor_id,omitempty"`
}

func NewGenerateMonthlyTask(payload GenerateMonthlyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGenerateMonthlyInvoices, body, asynq.Queue(QueueDefault)), nil
}

func NewMarkOverdueTask() *asynq.Task {
	return asynq.NewTask(TaskMarkOverdueInvoices, nil, asynq.Queue(QueueDefault))
}

// RedisOpt builds the asynq connection from the jobs config.
func RedisOpt(cfg internal.JobsConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
