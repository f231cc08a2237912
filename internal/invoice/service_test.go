package invoice_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
	"github.com/dulmini1119/tms-sub001/internal/core/events"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/invoice"
	"github.com/dulmini1119/tms-sub001/internal/invoice/postgres"
	"github.com/dulmini1119/tms-sub001/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func jan(day int) time.Time {
	return time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC)
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		svc       *invoice.Service
		publisher *recordingPublisher
		requester *user.User
		acme      *fleet.Vendor
		zoom      *fleet.Vendor
		clock     time.Time
		zoomCost  *tripcostDatamodel.TripCost
	)

	// billTrip records a completed trip on one of the vendor's vehicles and costs it.
	billTrip := func(vendor *fleet.Vendor, amount float64, at time.Time) *tripcostDatamodel.TripCost {
		vehicle := testutil.CreateVehicle(db, vendor.ID, "WP-"+uuid.NewString()[:6], "")
		driver := testutil.CreateDriver(db, vendor.ID, "Kamal", "Jayasuriya")
		t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusCompleted)
		a := testutil.CreateAssignment(db, t.ID, vehicle.ID, driver.ID, assignmentDatamodel.StatusCompleted)
		return testutil.CreateTripCost(db, a.ID, amount, at)
	}

	setClock := func(at time.Time) {
		clock = at
		svc.SetClock(func() time.Time {
			clock = clock.Add(time.Millisecond)
			return clock
		})
	}

	generate := func(vendorID, month string) *invoiceDatamodel.Invoice {
		inv, err := svc.Generate(ctx, invoice.GenerateInvoiceDTO{VendorID: vendorID, Month: month}, "finance-1")
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return inv
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())

		publisher = &recordingPublisher{}
		svc = invoice.NewService(postgres.NewInvoiceRepository(db), publisher, internal.InvoiceConfig{
			NumberPrefix:   "INV",
			DefaultDueDays: 30,
			Currency:       "LKR",
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		setClock(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))

		requester = testutil.CreateUser(db, "Nimal", "Fernando", user.RoleEmployee)
		acme = testutil.CreateVendor(db, "Acme Cabs")
		zoom = testutil.CreateVendor(db, "Zoom Taxi")

		billTrip(acme, 5000, jan(5))
		billTrip(acme, 5000, jan(15))
		billTrip(acme, 5000, jan(25))
		billTrip(acme, 7000, time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC))
		zoomCost = billTrip(zoom, 2000, jan(10))
	})

	Describe("PreviewDraft", func() {
		It("totals the vendor's uninvoiced trips for the month", func() {
			d, err := svc.PreviewDraft(ctx, acme.ID, "2024-01")
			Expect(err).NotTo(HaveOccurred())
			Expect(d).NotTo(BeNil())
			Expect(d.VendorName).To(Equal("Acme Cabs"))
			Expect(d.TripCount).To(Equal(3))
			Expect(d.Trips).To(HaveLen(3))
			Expect(d.TotalAmount).To(Equal(15000.0))
		})

		It("returns nothing once the month is invoiced", func() {
			generate(acme.ID, "2024-01")

			d, err := svc.PreviewDraft(ctx, acme.ID, "2024-01")
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeNil())
		})

		It("rejects a malformed month", func() {
			_, err := svc.PreviewDraft(ctx, acme.ID, "2024-13")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("reports an unknown vendor", func() {
			_, err := svc.PreviewDraft(ctx, uuid.NewString(), "2024-01")
			Expect(err).To(MatchError(internal.ErrVendorNotFound))
		})
	})

	Describe("Generate", func() {
		It("bills every matched trip in one Pending invoice", func() {
			inv := generate(acme.ID, "2024-01")

			Expect(inv.Status).To(Equal(invoiceDatamodel.StatusPending))
			Expect(inv.TotalAmount.StringFixed(2)).To(Equal("15000.00"))
			Expect(inv.BillingMonth).To(Equal("2024-01"))
			Expect(inv.InvoiceNumber).To(HavePrefix("INV-"))
			Expect(inv.InvoiceNumber).To(ContainSubstring("-202401-"))
			Expect(inv.DueDate).NotTo(BeNil())
			Expect(inv.DueDate.Sub(clock)).To(BeNumerically("~", 30*24*time.Hour, time.Minute))
			Expect(inv.Vendor).NotTo(BeNil())
			Expect(inv.TripCosts).To(HaveLen(3))
			for _, tc := range inv.TripCosts {
				Expect(tc.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusPending))
				Expect(tc.InvoiceNumber).To(HaveValue(Equal(inv.InvoiceNumber)))
			}

			var other tripcostDatamodel.TripCost
			Expect(db.First(&other, "id = ?", zoomCost.ID).Error).To(Succeed())
			Expect(other.InvoiceID).To(BeNil())
			Expect(other.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusDraft))

			Expect(publisher.types()).To(Equal([]string{events.EventTypeInvoiceGenerated}))
		})

		It("records a NoCharges invoice for an empty month", func() {
			inv := generate(acme.ID, "2023-12")

			Expect(inv.Status).To(Equal(invoiceDatamodel.StatusNoCharges))
			Expect(inv.TotalAmount.IsZero()).To(BeTrue())
			Expect(inv.Notes).To(Equal("No billable trips found for 2023-12"))
			Expect(inv.TripCosts).To(BeEmpty())
		})

		It("keeps caller notes and due date", func() {
			due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
			inv, err := svc.Generate(ctx, invoice.GenerateInvoiceDTO{
				VendorID: acme.ID,
				Month:    "2024-01",
				DueDate:  &due,
				Notes:    "Net 45",
			}, "finance-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.Notes).To(Equal("Net 45"))
			Expect(inv.DueDate.Equal(due)).To(BeTrue())
		})

		It("does not bill the same trips twice", func() {
			generate(acme.ID, "2024-01")
			again := generate(acme.ID, "2024-01")
			Expect(again.Status).To(Equal(invoiceDatamodel.StatusNoCharges))
		})

		It("validates the request", func() {
			_, err := svc.Generate(ctx, invoice.GenerateInvoiceDTO{VendorID: "nope", Month: "January"}, "finance-1")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("reports an unknown vendor", func() {
			_, err := svc.Generate(ctx, invoice.GenerateInvoiceDTO{VendorID: uuid.NewString(), Month: "2024-01"}, "finance-1")
			Expect(err).To(MatchError(internal.ErrVendorNotFound))
		})
	})

	Describe("RecordPayment", func() {
		It("marks the invoice and only its trip costs Paid", func() {
			inv := generate(acme.ID, "2024-01")

			paid, err := svc.RecordPayment(ctx, inv.ID, invoice.PayInvoiceDTO{TransactionID: ptr("BANK-778")})
			Expect(err).NotTo(HaveOccurred())
			Expect(paid.Status).To(Equal(invoiceDatamodel.StatusPaid))
			Expect(paid.PaidDate).NotTo(BeNil())
			Expect(paid.TransactionID).To(HaveValue(Equal("BANK-778")))
			Expect(paid.Notes).To(ContainSubstring("Payment recorded on"))
			Expect(paid.Notes).To(ContainSubstring("BANK-778"))
			for _, tc := range paid.TripCosts {
				Expect(tc.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusPaid))
				Expect(tc.PaymentDate).NotTo(BeNil())
			}

			var other tripcostDatamodel.TripCost
			Expect(db.First(&other, "id = ?", zoomCost.ID).Error).To(Succeed())
			Expect(other.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusDraft))

			Expect(publisher.types()).To(Equal([]string{events.EventTypeInvoiceGenerated, events.EventTypeInvoicePaid}))
		})

		It("refuses a second payment", func() {
			inv := generate(acme.ID, "2024-01")
			_, err := svc.RecordPayment(ctx, inv.ID, invoice.PayInvoiceDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.RecordPayment(ctx, inv.ID, invoice.PayInvoiceDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInvalidTransition))
		})

		It("refuses to pay a NoCharges invoice", func() {
			inv := generate(acme.ID, "2023-12")
			_, err := svc.RecordPayment(ctx, inv.ID, invoice.PayInvoiceDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInvalidTransition))
		})

		It("reports a missing invoice", func() {
			_, err := svc.RecordPayment(ctx, uuid.NewString(), invoice.PayInvoiceDTO{})
			Expect(err).To(MatchError(internal.ErrInvoiceNotFound))
		})
	})

	Describe("MarkOverdue", func() {
		It("moves past-due invoices and their costs to Overdue", func() {
			inv := generate(acme.ID, "2024-01")

			n, err := svc.MarkOverdue(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			setClock(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
			n, err = svc.MarkOverdue(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			overdue, err := svc.Get(ctx, inv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(overdue.Status).To(Equal(invoiceDatamodel.StatusOverdue))
			for _, tc := range overdue.TripCosts {
				Expect(tc.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusOverdue))
			}

			paid, err := svc.RecordPayment(ctx, inv.ID, invoice.PayInvoiceDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(paid.Status).To(Equal(invoiceDatamodel.StatusPaid))
		})
	})

	Describe("GenerateMonthly", func() {
		It("invoices the previous month and skips vendors already billed", func() {
			generate(acme.ID, "2024-01")
			setClock(time.Date(2024, 2, 10, 2, 0, 0, 0, time.UTC))

			out, err := svc.GenerateMonthly(ctx, "", "", "system")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].VendorID).To(Equal(zoom.ID))
			Expect(out[0].TotalAmount.StringFixed(2)).To(Equal("2000.00"))
		})

		It("limits the run to one vendor", func() {
			out, err := svc.GenerateMonthly(ctx, "2024-01", acme.ID, "system")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].VendorID).To(Equal(acme.ID))
		})

		It("rejects a malformed month", func() {
			_, err := svc.GenerateMonthly(ctx, "24-1", "", "system")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("List", func() {
		It("filters by vendor and status", func() {
			generate(acme.ID, "2024-01")
			generate(zoom.ID, "2024-01")
			generate(zoom.ID, "2023-12")

			page, err := svc.List(ctx, invoice.ListFilter{VendorID: zoom.ID, Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(Equal(int64(2)))

			page, err = svc.List(ctx, invoice.ListFilter{Status: invoiceDatamodel.StatusNoCharges, Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Data).To(HaveLen(1))
			Expect(page.Data[0].BillingMonth).To(Equal("2023-12"))
		})
	})
})
