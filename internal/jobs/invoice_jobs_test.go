package jobs_test

import (
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/hibiken/asynq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dulmini1119/tms-sub001/internal"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	"github.com/dulmini1119/tms-sub001/internal/jobs"
	"github.com/dulmini1119/tms-sub001/internal/observability"
)

type fakeInvoiceService struct {
	month, vendorID, userID string
	generateErr             error
	overdue                 int
	overdueErr              error
}

func (f *fakeInvoiceService) GenerateMonthly(ctx context.Context, month, vendorID, userID string) ([]invoiceDatamodel.Invoice, error) {
	f.month, f.vendorID, f.userID = month, vendorID, userID
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return []invoiceDatamodel.Invoice{{BillingMonth: month}}, nil
}

func (f *fakeInvoiceService) MarkOverdue(ctx context.Context) (int, error) {
	return f.overdue, f.overdueErr
}

var _ = Describe("InvoiceJobs", func() {
	var (
		svc     *fakeInvoiceService
		metrics *observability.Metrics
		j       *jobs.InvoiceJobs
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = &fakeInvoiceService{}
		metrics = observability.NewMetrics()
		j = jobs.NewInvoiceJobs(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	})

	It("runs the monthly invoice task as the system user", func() {
		task, err := jobs.NewGenerateMonthlyTask(jobs.GenerateMonthlyPayload{Month: "2024-01", VendorID: "vendor-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(task.Type()).To(Equal(jobs.TaskGenerateMonthlyInvoices))

		Expect(j.HandleGenerateMonthly(ctx, task)).To(Succeed())
		Expect(svc.month).To(Equal("2024-01"))
		Expect(svc.vendorID).To(Equal("vendor-1"))
		Expect(svc.userID).To(Equal(jobs.SystemUser))
	})

	It("defaults an empty payload to every vendor and the previous month", func() {
		Expect(j.HandleGenerateMonthly(ctx, asynq.NewTask(jobs.TaskGenerateMonthlyInvoices, nil))).To(Succeed())
		Expect(svc.month).To(BeEmpty())
		Expect(svc.vendorID).To(BeEmpty())
	})

	It("skips retries for malformed payloads", func() {
		err := j.HandleGenerateMonthly(ctx, asynq.NewTask(jobs.TaskGenerateMonthlyInvoices, []byte("{")))
		Expect(jobs.IsSkipRetry(err)).To(BeTrue())
	})

	It("skips retries for invalid months", func() {
		svc.generateErr = internal.NewValidationFieldError("month", "bad month", internal.ErrCodeInvalidMonth)
		task, _ := jobs.NewGenerateMonthlyTask(jobs.GenerateMonthlyPayload{Month: "2024-13"})
		Expect(jobs.IsSkipRetry(j.HandleGenerateMonthly(ctx, task))).To(BeTrue())
	})

	It("retries storage failures and records them", func() {
		svc.generateErr = stdErrors.New("connection reset")
		task, _ := jobs.NewGenerateMonthlyTask(jobs.GenerateMonthlyPayload{})
		err := j.HandleGenerateMonthly(ctx, task)
		Expect(err).To(MatchError("connection reset"))
		Expect(jobs.IsSkipRetry(err)).To(BeFalse())

		rec := httptest.NewRecorder()
		metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Body.String()).To(ContainSubstring(`tms_jobs_total{job="invoice:generate-monthly",status="failure"} 1`))
	})

	It("runs the overdue sweep", func() {
		svc.overdue = 2
		Expect(j.HandleMarkOverdue(ctx, jobs.NewMarkOverdueTask())).To(Succeed())

		svc.overdueErr = stdErrors.New("boom")
		Expect(j.HandleMarkOverdue(ctx, jobs.NewMarkOverdueTask())).To(MatchError("boom"))
	})

	It("exposes both handlers", func() {
		var types []string
		for _, h := range j.Handlers() {
			types = append(types, h.Type)
		}
		Expect(types).To(ConsistOf(jobs.TaskGenerateMonthlyInvoices, jobs.TaskMarkOverdueInvoices))
	})

	It("schedules both tasks from config", func() {
		entries, err := jobs.Schedule(internal.JobsConfig{MonthlyInvoiceCron: "0 2 1 * *", OverdueCron: "0 3 * * *"})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Task.Type()).To(Equal(jobs.TaskGenerateMonthlyInvoices))
		Expect(strings.Fields(entries[1].Spec)).To(HaveLen(5))
	})
})
