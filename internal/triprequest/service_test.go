package triprequest_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/testutil"
	"github.com/dulmini1119/tms-sub001/internal/triprequest"
	"github.com/dulmini1119/tms-sub001/internal/triprequest/postgres"
)

func newCreateDTO() triprequest.CreateTripRequestDTO {
	return triprequest.CreateTripRequestDTO{
		FromAddress:        "Head Office, Colombo 03",
		ToAddress:          "Bandaranaike International Airport",
		PurposeCategory:    "Client Meeting",
		PurposeDescription: "Pick up visiting auditors",
		DepartureAt:        time.Now().UTC().Add(48 * time.Hour),
	}
}

func ptr[T any](v T) *T { return &v }

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		svc       *triprequest.Service
		requester *user.User
	)

	levels := []internal.ApprovalLevel{
		{Level: 2, Role: "Department Head"},
		{Level: 1, Role: "Line Manager"},
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())

		svc = triprequest.NewService(postgres.NewTripRequestRepository(db), levels, slog.New(slog.NewTextHandler(io.Discard, nil)))
		requester = testutil.CreateUser(db, "Nimal", "Fernando", user.RoleEmployee)
	})

	Describe("Create", func() {
		It("attaches the configured approval chain in ascending order", func() {
			t, err := svc.Create(ctx, newCreateDTO(), requester.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(t.Status).To(Equal(tripDatamodel.StatusPending))
			Expect(t.RequestNumber).To(MatchRegexp(`^TR-\d{8}-[0-9A-F]{6}$`))
			Expect(t.Priority).To(Equal(tripDatamodel.PriorityMedium))
			Expect(t.Currency).To(Equal("LKR"))
			Expect(t.PassengerCount).To(Equal(1))
			Expect(t.ApprovalRequired).To(BeTrue())

			Expect(t.ApprovalSteps).To(HaveLen(2))
			Expect(t.ApprovalSteps[0].ApprovalLevel).To(Equal(1))
			Expect(t.ApprovalSteps[0].ApproverRole).To(Equal("Line Manager"))
			Expect(t.ApprovalSteps[1].ApprovalLevel).To(Equal(2))
			for _, s := range t.ApprovalSteps {
				Expect(s.Status).To(Equal(approvalDatamodel.StatusPending))
			}
		})

		It("starts Approved without steps when approval is not required", func() {
			dto := newCreateDTO()
			dto.ApprovalRequired = ptr(false)

			t, err := svc.Create(ctx, dto, requester.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Status).To(Equal(tripDatamodel.StatusApproved))
			Expect(t.ApprovalSteps).To(BeEmpty())
		})

		It("rejects a missing pickup address", func() {
			dto := newCreateDTO()
			dto.FromAddress = ""

			_, err := svc.Create(ctx, dto, requester.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(appErr.Details).To(Equal(internal.ValidationErrors{Errors: []internal.ValidationError{
				{Field: "fromAddress", Message: "fromAddress is required", Code: "REQUIRED"},
			}}))
		})

		It("rejects a return before departure", func() {
			dto := newCreateDTO()
			dto.ReturnAt = ptr(dto.DepartureAt.Add(-time.Hour))

			_, err := svc.Create(ctx, dto, requester.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

			var count int64
			Expect(db.Model(&tripDatamodel.TripRequest{}).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})
	})

	Describe("Update", func() {
		It("edits a Pending request", func() {
			created, err := svc.Create(ctx, newCreateDTO(), requester.ID)
			Expect(err).NotTo(HaveOccurred())

			updated, err := svc.Update(ctx, created.ID, triprequest.UpdateTripRequestDTO{
				ToAddress:      ptr("Kandy City Centre"),
				PassengerCount: ptr(3),
				Priority:       ptr("High"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.ToAddress).To(Equal("Kandy City Centre"))
			Expect(updated.PassengerCount).To(Equal(3))
			Expect(updated.Priority).To(Equal(tripDatamodel.PriorityHigh))
			Expect(updated.Status).To(Equal(tripDatamodel.StatusPending))
		})

		It("cancels through the state machine", func() {
			created, err := svc.Create(ctx, newCreateDTO(), requester.ID)
			Expect(err).NotTo(HaveOccurred())

			updated, err := svc.Update(ctx, created.ID, triprequest.UpdateTripRequestDTO{Status: ptr("Cancelled")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(tripDatamodel.StatusCancelled))
		})

		It("refuses any other status", func() {
			created, err := svc.Create(ctx, newCreateDTO(), requester.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Update(ctx, created.ID, triprequest.UpdateTripRequestDTO{Status: ptr("Approved")})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("is forbidden once the request left Pending", func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)

			_, err := svc.Update(ctx, t.ID, triprequest.UpdateTripRequestDTO{ToAddress: ptr("Galle")})
			Expect(err).To(MatchError(internal.ErrTripRequestLocked))
		})

		It("reports a missing request", func() {
			_, err := svc.Update(ctx, "7f1f0f0e-0000-4000-8000-000000000000", triprequest.UpdateTripRequestDTO{})
			Expect(err).To(MatchError(internal.ErrTripRequestNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes the request and its steps", func() {
			created, err := svc.Create(ctx, newCreateDTO(), requester.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Delete(ctx, created.ID)).To(Succeed())

			var steps int64
			Expect(db.Model(&approvalDatamodel.ApprovalStep{}).Where("trip_request_id = ?", created.ID).Count(&steps).Error).To(Succeed())
			Expect(steps).To(BeZero())

			_, err = svc.Get(ctx, created.ID)
			Expect(err).To(MatchError(internal.ErrTripRequestNotFound))
		})

		It("is forbidden while an assignment references the request", func() {
			vendor := testutil.CreateVendor(db, "Acme Cabs")
			vehicle := testutil.CreateVehicle(db, vendor.ID, "CAB-1234", "")
			driver := testutil.CreateDriver(db, vendor.ID, "Kamal", "Jayasuriya")
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusAssigned)
			testutil.CreateAssignment(db, t.ID, vehicle.ID, driver.ID, assignment.StatusAssigned)

			Expect(svc.Delete(ctx, t.ID)).To(MatchError(internal.ErrTripRequestInUse))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			dto := newCreateDTO()
			dto.PurposeDescription = "Factory audit in Biyagama"
			dto.Priority = "Urgent"
			_, err := svc.Create(ctx, dto, requester.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("pages the full set", func() {
			page, err := svc.List(ctx, triprequest.ListFilter{Paging: paging.NewParams(1, 2)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Data).To(HaveLen(2))
			Expect(page.Meta.Total).To(BeEquivalentTo(3))
			Expect(page.Meta.TotalPages).To(Equal(2))
		})

		It("filters by status, priority and search term", func() {
			byStatus, err := svc.List(ctx, triprequest.ListFilter{Status: "pending", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(byStatus.Meta.Total).To(BeEquivalentTo(2))

			byPriority, err := svc.List(ctx, triprequest.ListFilter{Priority: "urgent", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(byPriority.Meta.Total).To(BeEquivalentTo(1))

			bySearch, err := svc.List(ctx, triprequest.ListFilter{Search: "BIYAGAMA", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(bySearch.Data).To(HaveLen(1))
			Expect(bySearch.Data[0].ApprovalSteps).To(HaveLen(2))
		})

		It("rejects an unknown status", func() {
			_, err := svc.List(ctx, triprequest.ListFilter{Status: "Archived", Paging: paging.NewParams(1, 10)})
			Expect(err).To(HaveOccurred())
		})
	})
})
