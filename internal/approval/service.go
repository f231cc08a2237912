package approval

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/events"
	"github.com/dulmini1119/tms-sub001/internal/core/fsm"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

// Decision is the write applied to a Pending step.
type Decision struct {
	Status     string
	Comments   *string
	ApproverID string
	DecidedAt  time.Time
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	// ListTripRequests returns trip requests that have at least one step, steps and
	// requester preloaded. A nil page returns every match.
	ListTripRequests(ctx context.Context, searchTerm string, page *paging.Params) ([]tripDatamodel.TripRequest, int64, error)
	GetTripRequest(ctx context.Context, id string) (*tripDatamodel.TripRequest, error)
	GetStep(ctx context.Context, id string) (*approvalDatamodel.ApprovalStep, error)
	// DecideStep updates the step only while it is Pending and reports the affected row count.
	DecideStep(ctx context.Context, id string, d Decision) (int64, error)
	CreateStep(ctx context.Context, step *approvalDatamodel.ApprovalStep) error
	UpdateTripStatus(ctx context.Context, tripRequestID, from, to string) (int64, error)
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListApprovals applies the status filter after aggregation, so meta totals are
// post-filter counts when a status is given and raw counts otherwise.
func (s *Service) ListApprovals(ctx context.Context, filter ListFilter) (*paging.Page[WorkflowView], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if filter.Status == "" {
		p := filter.Paging
		rows, total, err := s.repo.ListTripRequests(ctx, filter.SearchTerm, &p)
		if err != nil {
			s.logger.Error("failed to list approval workflows", "error", err)
			return nil, errors.NewInternalError("failed to list approvals", err)
		}
		views := make([]WorkflowView, 0, len(rows))
		for _, t := range rows {
			views = append(views, ToWorkflowView(t))
		}
		return paging.NewPage(views, total, p), nil
	}

	rows, _, err := s.repo.ListTripRequests(ctx, filter.SearchTerm, nil)
	if err != nil {
		s.logger.Error("failed to list approval workflows", "error", err)
		return nil, errors.NewInternalError("failed to list approvals", err)
	}

	matched := make([]WorkflowView, 0, len(rows))
	for _, t := range rows {
		v := ToWorkflowView(t)
		if v.FinalStatus == filter.Status {
			matched = append(matched, v)
		}
	}
	return paging.SlicePage(matched, filter.Paging), nil
}

func (s *Service) GetApprovalDetail(ctx context.Context, tripRequestID string) (*WorkflowView, error) {
	t, err := s.repo.GetTripRequest(ctx, tripRequestID)
	if err != nil {
		return nil, s.storageError("failed to get approval detail", err, "trip_request_id", tripRequestID)
	}
	v := ToWorkflowView(*t)
	return &v, nil
}

// DecideStep records a decision on a Pending step. The conditional update makes a
// second decision on the same step fail with Conflict even under concurrency. When
// the aggregate leaves Pending, the trip request is promoted in the same transaction.
func (s *Service) DecideStep(ctx context.Context, stepID string, dto DecideStepDTO, approverID string) (*DecisionResult, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	var result DecisionResult
	var tripRequestID string
	var level int

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		affected, err := repo.DecideStep(ctx, stepID, Decision{
			Status:     dto.Status,
			Comments:   dto.Comments,
			ApproverID: approverID,
			DecidedAt:  s.now(),
		})
		if err != nil {
			return errors.NewInternalError("failed to record decision", err)
		}

		step, err := repo.GetStep(ctx, stepID)
		if err != nil {
			return err
		}
		if affected == 0 {
			s.logger.Warn("approval step already processed", "step_id", stepID, "status", step.Status)
			return errors.ErrApprovalProcessed
		}
		tripRequestID = step.TripRequestID
		level = step.ApprovalLevel

		t, err := repo.GetTripRequest(ctx, step.TripRequestID)
		if err != nil {
			return err
		}

		summary := Summarize(t.ApprovalSteps)
		result = DecisionResult{
			Step:         ToStepView(*step),
			FinalStatus:  summary.FinalStatus,
			CurrentLevel: summary.CurrentLevel,
			TripStatus:   t.Status,
		}

		if summary.FinalStatus == approvalDatamodel.StatusPending || t.Status != tripDatamodel.StatusPending {
			return nil
		}
		if err := fsm.TripRequest.Validate(t.Status, summary.FinalStatus); err != nil {
			return err
		}
		if _, err := repo.UpdateTripStatus(ctx, t.ID, tripDatamodel.StatusPending, summary.FinalStatus); err != nil {
			return errors.NewInternalError("failed to update trip request status", err)
		}
		result.TripStatus = summary.FinalStatus
		return nil
	})
	if err != nil {
		return nil, s.storageError("failed to decide approval step", err, "step_id", stepID)
	}

	s.logger.Info("approval step decided",
		"step_id", stepID,
		"trip_request_id", tripRequestID,
		"level", level,
		"decision", dto.Status,
		"final_status", result.FinalStatus,
		"approver_id", approverID)

	events.Emit(ctx, s.publisher, s.logger, events.NewApprovalDecidedEvent(
		stepID, tripRequestID, level, dto.Status, result.FinalStatus, approverID))

	return &result, nil
}

// AddStep appends a level to a trip request's chain while the request is still Pending.
func (s *Service) AddStep(ctx context.Context, tripRequestID string, dto AddStepDTO) (*StepView, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	var created approvalDatamodel.ApprovalStep
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		t, err := repo.GetTripRequest(ctx, tripRequestID)
		if err != nil {
			return err
		}
		if t.Status != tripDatamodel.StatusPending {
			return errors.ErrApprovalClosed
		}

		created = approvalDatamodel.ApprovalStep{
			TripRequestID: tripRequestID,
			ApprovalLevel: dto.ApprovalLevel,
			ApproverRole:  dto.ApproverRole,
			ApproverID:    dto.ApproverID,
			Status:        approvalDatamodel.StatusPending,
		}
		return repo.CreateStep(ctx, &created)
	})
	if err != nil {
		return nil, s.storageError("failed to add approval step", err, "trip_request_id", tripRequestID)
	}

	s.logger.Info("approval step added",
		"trip_request_id", tripRequestID,
		"step_id", created.ID,
		"level", created.ApprovalLevel)

	v := ToStepView(created)
	return &v, nil
}

// storageError passes AppErrors through and wraps everything else as internal.
func (s *Service) storageError(msg string, err error, args ...any) error {
	if appErr, ok := errors.IsAppError(err); ok {
		if appErr.Type == errors.ErrorTypeInternal {
			s.logger.Error(msg, append(args, "error", err)...)
		}
		return err
	}
	s.logger.Error(msg, append(args, "error", err)...)
	return errors.NewInternalError(msg, err)
}
