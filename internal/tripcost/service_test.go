package tripcost_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/testutil"
	"github.com/dulmini1119/tms-sub001/internal/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/tripcost/postgres"
)

func ptr[T any](v T) *T { return &v }

var _ = Describe("Service", func() {
	var (
		ctx        context.Context
		db         *gorm.DB
		svc        *tripcost.Service
		assignment *assignmentDatamodel.Assignment
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())

		svc = tripcost.NewService(postgres.NewTripCostRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))

		requester := testutil.CreateUser(db, "Nimal", "Fernando", user.RoleEmployee)
		vendor := testutil.CreateVendor(db, "Acme Cabs")
		vehicle := testutil.CreateVehicle(db, vendor.ID, "WP-CAB-1234", "")
		driver := testutil.CreateDriver(db, vendor.ID, "Kamal", "Jayasuriya")
		t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusCompleted)
		assignment = testutil.CreateAssignment(db, t.ID, vehicle.ID, driver.ID, assignmentDatamodel.StatusCompleted)
	})

	create := func() *tripcostDatamodel.TripCost {
		tc, err := svc.Create(ctx, tripcost.CreateTripCostDTO{
			AssignmentID:    assignment.ID,
			BaseFare:        1000,
			DistanceCharges: 500.50,
			TollCharges:     150,
			TaxPercentage:   8,
		}, "finance-1")
		Expect(err).NotTo(HaveOccurred())
		return tc
	}

	Describe("Create", func() {
		It("stores the computed totals as Draft", func() {
			tc := create()
			Expect(tc.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusDraft))
			Expect(tc.TaxAmount.StringFixed(2)).To(Equal("132.04"))
			Expect(tc.TotalCost.StringFixed(2)).To(Equal("1782.54"))
			Expect(tc.Currency).To(Equal("LKR"))

			stored, err := svc.Get(ctx, tc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.TotalCost.StringFixed(2)).To(Equal("1782.54"))
		})

		It("allows one cost per assignment", func() {
			create()
			_, err := svc.Create(ctx, tripcost.CreateTripCostDTO{AssignmentID: assignment.ID, BaseFare: 10}, "finance-1")
			Expect(err).To(MatchError(internal.ErrTripCostExists))
		})

		It("requires an existing assignment", func() {
			_, err := svc.Create(ctx, tripcost.CreateTripCostDTO{AssignmentID: "0b5c1a7e-1111-4222-8333-444455556666"}, "finance-1")
			Expect(err).To(MatchError(internal.ErrAssignmentNotFound))
		})

		It("rejects negative charges", func() {
			_, err := svc.Create(ctx, tripcost.CreateTripCostDTO{AssignmentID: assignment.ID, FuelCost: -1}, "finance-1")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Update", func() {
		It("recomputes totals from the merged charges", func() {
			tc := create()

			updated, err := svc.Update(ctx, tc.ID, tripcost.UpdateTripCostDTO{ParkingCharges: ptr(200.0), TaxPercentage: ptr(0.0)})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.BaseFare.StringFixed(2)).To(Equal("1000.00"))
			Expect(updated.TaxAmount.StringFixed(2)).To(Equal("0.00"))
			Expect(updated.TotalCost.StringFixed(2)).To(Equal("1850.50"))

			stored, err := svc.Get(ctx, tc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.TotalCost.StringFixed(2)).To(Equal("1850.50"))
		})

		It("is forbidden once paid", func() {
			tc := create()
			_, err := svc.RecordPayment(ctx, tc.ID, tripcost.RecordPaymentDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Update(ctx, tc.ID, tripcost.UpdateTripCostDTO{BaseFare: ptr(1.0)})
			Expect(err).To(MatchError(internal.ErrTripCostLocked))
		})

		It("is forbidden once invoiced", func() {
			tc := create()
			_, err := svc.GenerateInvoice(ctx, tc.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Update(ctx, tc.ID, tripcost.UpdateTripCostDTO{BaseFare: ptr(1.0)})
			Expect(err).To(MatchError(internal.ErrTripCostLocked))
		})
	})

	Describe("GenerateInvoice", func() {
		It("attaches a number once and moves Draft to Pending", func() {
			tc := create()

			invoiced, err := svc.GenerateInvoice(ctx, tc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(invoiced.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusPending))
			Expect(*invoiced.InvoiceNumber).To(HavePrefix("INV-TC-"))

			_, err = svc.GenerateInvoice(ctx, tc.ID)
			Expect(err).To(MatchError(internal.ErrTripCostInvoiced))
		})

		It("is forbidden for a paid cost", func() {
			tc := create()
			_, err := svc.RecordPayment(ctx, tc.ID, tripcost.RecordPaymentDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.GenerateInvoice(ctx, tc.ID)
			Expect(err).To(MatchError(internal.ErrTripCostLocked))
		})
	})

	Describe("RecordPayment", func() {
		It("marks the cost paid and refuses a second payment", func() {
			tc := create()
			paidAt := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

			paid, err := svc.RecordPayment(ctx, tc.ID, tripcost.RecordPaymentDTO{
				PaymentDate:   &paidAt,
				TransactionID: ptr("TXN-889"),
				PaymentMethod: ptr("Bank Transfer"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(paid.PaymentStatus).To(Equal(tripcostDatamodel.PaymentStatusPaid))
			Expect(paid.PaymentDate.Equal(paidAt)).To(BeTrue())
			Expect(*paid.TransactionID).To(Equal("TXN-889"))

			_, err = svc.RecordPayment(ctx, tc.ID, tripcost.RecordPaymentDTO{})
			Expect(err).To(MatchError(internal.ErrTripCostPaid))
		})

		It("reports a missing cost", func() {
			_, err := svc.RecordPayment(ctx, "0b5c1a7e-1111-4222-8333-444455556666", tripcost.RecordPaymentDTO{})
			Expect(err).To(MatchError(internal.ErrTripCostNotFound))
		})
	})

	Describe("List", func() {
		It("filters by payment status and searches registration numbers", func() {
			create()

			drafts, err := svc.List(ctx, tripcost.ListFilter{PaymentStatus: "draft", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(drafts.Meta.Total).To(BeEquivalentTo(1))

			paid, err := svc.List(ctx, tripcost.ListFilter{PaymentStatus: "Paid", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(paid.Data).To(BeEmpty())

			found, err := svc.List(ctx, tripcost.ListFilter{Search: "wp-cab", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Data).To(HaveLen(1))
		})

		It("keeps the payment status filter when the search term matches other rows", func() {
			create()

			requester := testutil.CreateUser(db, "Sunil", "Perera", user.RoleEmployee)
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusCompleted)
			second := testutil.CreateAssignment(db, t.ID, assignment.VehicleID, assignment.DriverID, assignmentDatamodel.StatusCompleted)
			paidCost := testutil.CreateTripCost(db, second.ID, 900, time.Now().UTC())
			Expect(db.Model(paidCost).Update("payment_status", tripcostDatamodel.PaymentStatusPaid).Error).To(Succeed())

			page, err := svc.List(ctx, tripcost.ListFilter{PaymentStatus: "Paid", Search: "wp-cab", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(BeEquivalentTo(1))
			Expect(page.Data).To(HaveLen(1))
			Expect(page.Data[0].ID).To(Equal(paidCost.ID))
		})
	})
})
