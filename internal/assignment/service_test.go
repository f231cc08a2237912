package assignment_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/assignment"
	"github.com/dulmini1119/tms-sub001/internal/assignment/postgres"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
	"github.com/dulmini1119/tms-sub001/internal/core/events"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
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

func ptr[T any](v T) *T { return &v }

func expectTransitionError(err error) {
	appErr, ok := internal.IsAppError(err)
	ExpectWithOffset(1, ok).To(BeTrue(), "expected an AppError, got %v", err)
	ExpectWithOffset(1, appErr.Type).To(Equal(internal.ErrorTypeInvalidTransition))
	ExpectWithOffset(1, appErr.StatusCode).To(Equal(422))
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		svc       *assignment.Service
		publisher *recordingPublisher
		requester *user.User
		vehicle   *fleet.Vehicle
		driver    *fleet.Driver
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())

		publisher = &recordingPublisher{}
		svc = assignment.NewService(postgres.NewAssignmentRepository(db), publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))

		requester = testutil.CreateUser(db, "Nimal", "Fernando", user.RoleEmployee)
		vendor := testutil.CreateVendor(db, "Acme Cabs")
		vehicle = testutil.CreateVehicle(db, vendor.ID, "WP-CAB-1234", "")
		driver = testutil.CreateDriver(db, vendor.ID, "Kamal", "Jayasuriya")
	})

	createDTO := func(tripID string) assignment.CreateAssignmentDTO {
		return assignment.CreateAssignmentDTO{
			TripRequestID:      tripID,
			VehicleID:          vehicle.ID,
			DriverID:           driver.ID,
			ScheduledDeparture: time.Now().UTC().Add(24 * time.Hour),
		}
	}

	tripStatus := func(id string) string {
		var t tripDatamodel.TripRequest
		Expect(db.First(&t, "id = ?", id).Error).To(Succeed())
		return t.Status
	}

	Describe("Create", func() {
		It("assigns an approved trip and snapshots vehicle and driver", func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)

			a, err := svc.Create(ctx, createDTO(t.ID), "dispatcher-1")
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Status).To(Equal(assignmentDatamodel.StatusAssigned))
			Expect(a.AssignedBy).To(Equal("dispatcher-1"))
			Expect(a.VehicleDetails).To(HaveKeyWithValue("registrationNumber", "WP-CAB-1234"))
			Expect(a.DriverDetails).To(HaveKeyWithValue("name", "Kamal Jayasuriya"))
			Expect(a.Vehicle).NotTo(BeNil())
			Expect(tripStatus(t.ID)).To(Equal(tripDatamodel.StatusAssigned))
		})

		It("keeps caller supplied snapshots", func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			dto := createDTO(t.ID)
			dto.DriverDetails = map[string]interface{}{"name": "Relief driver"}

			a, err := svc.Create(ctx, dto, "dispatcher-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(a.DriverDetails).To(HaveKeyWithValue("name", "Relief driver"))
		})

		It("refuses a trip that is still pending approval", func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)

			_, err := svc.Create(ctx, createDTO(t.ID), "dispatcher-1")
			expectTransitionError(err)
			Expect(tripStatus(t.ID)).To(Equal(tripDatamodel.StatusPending))
		})

		It("refuses a non-initial status", func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			dto := createDTO(t.ID)
			dto.Status = assignmentDatamodel.StatusStarted

			_, err := svc.Create(ctx, dto, "dispatcher-1")
			expectTransitionError(err)
		})

		It("reports a missing vehicle and leaves the trip untouched", func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			dto := createDTO(t.ID)
			dto.VehicleID = "0b5c1a7e-1111-4222-8333-444455556666"

			_, err := svc.Create(ctx, dto, "dispatcher-1")
			Expect(err).To(MatchError(internal.ErrVehicleNotFound))
			Expect(tripStatus(t.ID)).To(Equal(tripDatamodel.StatusApproved))
		})

		It("reports a missing trip request", func() {
			_, err := svc.Create(ctx, createDTO("0b5c1a7e-1111-4222-8333-444455556666"), "dispatcher-1")
			Expect(err).To(MatchError(internal.ErrTripRequestNotFound))
		})
	})

	Describe("Update", func() {
		var created *assignmentDatamodel.Assignment

		BeforeEach(func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			var err error
			created, err = svc.Create(ctx, createDTO(t.ID), "dispatcher-1")
			Expect(err).NotTo(HaveOccurred())
		})

		move := func(status string) (*assignmentDatamodel.Assignment, error) {
			return svc.Update(ctx, created.ID, assignment.UpdateAssignmentDTO{Status: ptr(status)})
		}

		It("walks the dispatch lifecycle and carries the trip along", func() {
			_, err := move(assignmentDatamodel.StatusAccepted)
			Expect(err).NotTo(HaveOccurred())
			Expect(tripStatus(created.TripRequestID)).To(Equal(tripDatamodel.StatusAssigned))

			started, err := move(assignmentDatamodel.StatusStarted)
			Expect(err).NotTo(HaveOccurred())
			Expect(started.ActualDeparture).NotTo(BeNil())
			Expect(tripStatus(created.TripRequestID)).To(Equal(tripDatamodel.StatusInProgress))

			done, err := move(assignmentDatamodel.StatusCompleted)
			Expect(err).NotTo(HaveOccurred())
			Expect(done.ActualReturn).NotTo(BeNil())
			Expect(tripStatus(created.TripRequestID)).To(Equal(tripDatamodel.StatusCompleted))

			Expect(publisher.events).To(HaveLen(3))
			last := publisher.events[2].(*events.AssignmentStatusChangedEvent)
			Expect(last.EventType()).To(Equal(events.EventTypeAssignmentStatusChanged))
		})

		It("refuses skipping straight to Completed", func() {
			_, err := move(assignmentDatamodel.StatusCompleted)
			expectTransitionError(err)

			a, err := svc.Get(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Status).To(Equal(assignmentDatamodel.StatusAssigned))
		})

		It("refuses leaving a terminal status", func() {
			_, err := move(assignmentDatamodel.StatusRejected)
			Expect(err).NotTo(HaveOccurred())

			_, err = move(assignmentDatamodel.StatusAccepted)
			expectTransitionError(err)
		})

		It("leaves the trip Assigned on cancellation", func() {
			_, err := move(assignmentDatamodel.StatusCancelled)
			Expect(err).NotTo(HaveOccurred())
			Expect(tripStatus(created.TripRequestID)).To(Equal(tripDatamodel.StatusAssigned))
		})

		It("treats the current status as a no-op", func() {
			a, err := svc.Update(ctx, created.ID, assignment.UpdateAssignmentDTO{
				Status: ptr(assignmentDatamodel.StatusAssigned),
				Notes:  ptr("gate 3"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(*a.Notes).To(Equal("gate 3"))
			Expect(publisher.events).To(BeEmpty())
		})

		It("reports a missing assignment", func() {
			_, err := svc.Update(ctx, "0b5c1a7e-1111-4222-8333-444455556666", assignment.UpdateAssignmentDTO{})
			Expect(err).To(MatchError(internal.ErrAssignmentNotFound))
		})
	})

	Describe("List", func() {
		It("filters by status and searches registration numbers", func() {
			t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			_, err := svc.Create(ctx, createDTO(t.ID), "dispatcher-1")
			Expect(err).NotTo(HaveOccurred())

			page, err := svc.List(ctx, assignment.ListFilter{Search: "cab-1234", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(BeEquivalentTo(1))
			Expect(page.Data[0].Driver).NotTo(BeNil())

			none, err := svc.List(ctx, assignment.ListFilter{Status: "started", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(none.Data).To(BeEmpty())

			_, err = svc.List(ctx, assignment.ListFilter{Status: "Parked", Paging: paging.NewParams(1, 10)})
			Expect(err).To(HaveOccurred())
		})

		It("keeps the status filter when the search term matches other rows", func() {
			active := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			testutil.CreateAssignment(db, active.ID, vehicle.ID, driver.ID, assignmentDatamodel.StatusAssigned)
			dropped := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			testutil.CreateAssignment(db, dropped.ID, vehicle.ID, driver.ID, assignmentDatamodel.StatusCancelled)

			page, err := svc.List(ctx, assignment.ListFilter{Status: "Cancelled", Search: "kamal", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(BeEquivalentTo(1))
			Expect(page.Data).To(HaveLen(1))
			Expect(page.Data[0].Status).To(Equal(assignmentDatamodel.StatusCancelled))
		})
	})
})
