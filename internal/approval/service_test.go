package approval_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/approval"
	approvalPostgres "github.com/dulmini1119/tms-sub001/internal/approval/postgres"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
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

func addSteps(db *gorm.DB, tripID string, levels ...int) []approvalDatamodel.ApprovalStep {
	steps := make([]approvalDatamodel.ApprovalStep, 0, len(levels))
	for _, l := range levels {
		s := approvalDatamodel.ApprovalStep{
			TripRequestID: tripID,
			ApprovalLevel: l,
			ApproverRole:  "Manager",
			Status:        approvalDatamodel.StatusPending,
		}
		Expect(db.Create(&s).Error).To(Succeed())
		steps = append(steps, s)
	}
	return steps
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		svc       *approval.Service
		publisher *recordingPublisher
		requester *user.User
		approver  *user.User
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())

		publisher = &recordingPublisher{}
		svc = approval.NewService(approvalPostgres.NewApprovalRepository(db), publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
		requester = testutil.CreateUser(db, "Sunil", "Perera", user.RoleEmployee)
		approver = testutil.CreateUser(db, "Ruwan", "Silva", user.RoleManager)
	})

	Describe("DecideStep", func() {
		It("walks a two-level chain to Approved and promotes the trip request", func() {
			// Given
			trip := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			steps := addSteps(db, trip.ID, 1, 2)

			// When level 1 is approved
			first, err := svc.DecideStep(ctx, steps[0].ID, approval.DecideStepDTO{Status: "Approved"}, approver.ID)

			// Then the aggregate is still Pending at level 2
			Expect(err).NotTo(HaveOccurred())
			Expect(first.FinalStatus).To(Equal("Pending"))
			Expect(first.CurrentLevel).To(Equal(2))
			Expect(first.Step.Status).To(Equal("Approved"))
			Expect(*first.Step.ApproverID).To(Equal(approver.ID))
			Expect(first.Step.DecidedAt).NotTo(BeNil())

			// When level 2 is approved
			second, err := svc.DecideStep(ctx, steps[1].ID, approval.DecideStepDTO{Status: "Approved"}, approver.ID)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(second.FinalStatus).To(Equal("Approved"))
			Expect(second.TripStatus).To(Equal(tripDatamodel.StatusApproved))

			var reloaded tripDatamodel.TripRequest
			Expect(db.First(&reloaded, "id = ?", trip.ID).Error).To(Succeed())
			Expect(reloaded.Status).To(Equal(tripDatamodel.StatusApproved))

			publisher.mu.Lock()
			defer publisher.mu.Unlock()
			Expect(publisher.events).To(HaveLen(2))
			Expect(publisher.events[1].EventType()).To(Equal(events.EventTypeApprovalDecided))
		})

		It("rejects the trip request when any level is rejected", func() {
			trip := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			steps := addSteps(db, trip.ID, 1, 2)

			comment := "budget exceeded"
			res, err := svc.DecideStep(ctx, steps[0].ID, approval.DecideStepDTO{Status: "Rejected", Comments: &comment}, approver.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.FinalStatus).To(Equal("Rejected"))
			Expect(*res.Step.Comments).To(Equal(comment))
			Expect(res.TripStatus).To(Equal(tripDatamodel.StatusRejected))
		})

		It("fails with Conflict on a second decision", func() {
			trip := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			steps := addSteps(db, trip.ID, 1)

			_, err := svc.DecideStep(ctx, steps[0].ID, approval.DecideStepDTO{Status: "Approved"}, approver.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.DecideStep(ctx, steps[0].ID, approval.DecideStepDTO{Status: "Rejected"}, approver.ID)
			Expect(err).To(MatchError(errors.ErrApprovalProcessed))

			var step approvalDatamodel.ApprovalStep
			Expect(db.First(&step, "id = ?", steps[0].ID).Error).To(Succeed())
			Expect(step.Status).To(Equal("Approved"))
		})

		It("fails with NotFound for a missing step", func() {
			_, err := svc.DecideStep(ctx, "7d1f6f2c-1111-4b5b-9c1e-000000000000", approval.DecideStepDTO{Status: "Approved"}, approver.ID)
			Expect(err).To(MatchError(errors.ErrApprovalStepNotFound))
		})

		It("validates the decision before touching storage", func() {
			_, err := svc.DecideStep(ctx, "anything", approval.DecideStepDTO{Status: "Maybe"}, approver.ID)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})
	})

	Describe("ListApprovals", func() {
		BeforeEach(func() {
			pending := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			addSteps(db, pending.ID, 1, 2)

			approved := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			for _, s := range addSteps(db, approved.ID, 1) {
				_, err := svc.DecideStep(ctx, s.ID, approval.DecideStepDTO{Status: "Approved"}, approver.ID)
				Expect(err).NotTo(HaveOccurred())
			}

			other := testutil.CreateUser(db, "Kamal", "Fernando", user.RoleEmployee)
			otherTrip := testutil.CreateTripRequest(db, other.ID, tripDatamodel.StatusPending)
			addSteps(db, otherTrip.ID, 1)

			// no steps, so never part of the workflow list
			testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
		})

		It("returns raw totals without a status filter", func() {
			page, err := svc.ListApprovals(ctx, approval.ListFilter{Paging: paging.NewParams(1, 2)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(Equal(int64(3)))
			Expect(page.Meta.TotalPages).To(Equal(2))
			Expect(page.Data).To(HaveLen(2))
		})

		It("counts after aggregation with a status filter", func() {
			page, err := svc.ListApprovals(ctx, approval.ListFilter{Status: "pending", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(Equal(int64(2)))
			for _, v := range page.Data {
				Expect(v.FinalStatus).To(Equal("Pending"))
			}

			approved, err := svc.ListApprovals(ctx, approval.ListFilter{Status: "Approved", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Meta.Total).To(Equal(int64(1)))
			Expect(approved.Data[0].ApprovalHistory).To(HaveLen(1))
		})

		It("searches requester names case-insensitively", func() {
			page, err := svc.ListApprovals(ctx, approval.ListFilter{SearchTerm: "FERNANDO", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(Equal(int64(1)))
			Expect(page.Data[0].TripRequest.Requester.LastName).To(Equal("Fernando"))
		})

		It("keeps step-less requests out of search results", func() {
			page, err := svc.ListApprovals(ctx, approval.ListFilter{SearchTerm: "sunil", Paging: paging.NewParams(1, 10)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Meta.Total).To(Equal(int64(2)))
			Expect(page.Data).To(HaveLen(2))
			for _, v := range page.Data {
				Expect(v.ApprovalHistory).NotTo(BeEmpty())
			}
		})

		It("rejects unknown status filters", func() {
			_, err := svc.ListApprovals(ctx, approval.ListFilter{Status: "Escalated", Paging: paging.NewParams(1, 10)})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetApprovalDetail", func() {
		It("fails NotFound for an unknown trip request", func() {
			_, err := svc.GetApprovalDetail(ctx, "00000000-0000-4000-8000-000000000000")
			Expect(err).To(MatchError(errors.ErrTripRequestNotFound))
		})

		It("presents steps in ascending level order", func() {
			trip := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			addSteps(db, trip.ID, 3, 1, 2)

			view, err := svc.GetApprovalDetail(ctx, trip.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.ApprovalHistory[0].Level).To(Equal(1))
			Expect(view.ApprovalHistory[2].Level).To(Equal(3))
			Expect(view.CurrentLevel).To(Equal(1))
		})

		It("reports the request's own status when it has no steps", func() {
			trip := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)

			view, err := svc.GetApprovalDetail(ctx, trip.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.ApprovalHistory).To(BeEmpty())
			Expect(view.FinalStatus).To(Equal(tripDatamodel.StatusApproved))
			Expect(view.CurrentLevel).To(Equal(0))
		})
	})

	Describe("AddStep", func() {
		It("refuses a duplicate level", func() {
			trip := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)
			addSteps(db, trip.ID, 1)

			_, err := svc.AddStep(ctx, trip.ID, approval.AddStepDTO{ApprovalLevel: 1, ApproverRole: "Finance"})
			Expect(err).To(MatchError(errors.ErrApprovalLevelExists))

			step, err := svc.AddStep(ctx, trip.ID, approval.AddStepDTO{ApprovalLevel: 2, ApproverRole: "Finance"})
			Expect(err).NotTo(HaveOccurred())
			Expect(step.Status).To(Equal("Pending"))
		})

		It("refuses steps once the request left Pending", func() {
			trip := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)
			_, err := svc.AddStep(ctx, trip.ID, approval.AddStepDTO{ApprovalLevel: 1, ApproverRole: "Finance"})
			Expect(err).To(MatchError(errors.ErrApprovalClosed))
		})
	})
})
