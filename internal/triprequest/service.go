package triprequest

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/approval"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/fsm"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filter ListFilter) ([]tripDatamodel.TripRequest, int64, error)
	// Get preloads the requester and the approval steps in ascending level order.
	Get(ctx context.Context, id string) (*tripDatamodel.TripRequest, error)
	Create(ctx context.Context, t *tripDatamodel.TripRequest) error
	CreateSteps(ctx context.Context, steps []approvalDatamodel.ApprovalStep) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Delete removes the request and its approval steps.
	Delete(ctx context.Context, id string) error
	CountAssignments(ctx context.Context, tripRequestID string) (int64, error)
}

type Service struct {
	repo   Repository
	levels []internal.ApprovalLevel
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds the store. levels is the approval chain attached to every request that requires approval.
func NewService(repo Repository, levels []internal.ApprovalLevel, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		levels: levels,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*paging.Page[tripDatamodel.TripRequest], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storageError("failed to list trip requests", err)
	}
	return paging.NewPage(rows, total, filter.Paging), nil
}

func (s *Service) Get(ctx context.Context, id string) (*tripDatamodel.TripRequest, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storageError("failed to get trip request", err, "trip_request_id", id)
	}
	return t, nil
}

// Create stores a new request. With approval required the configured chain is
// inserted in the same transaction; without it the request starts Approved.
func (s *Service) Create(ctx context.Context, dto CreateTripRequestDTO, requesterID string) (*tripDatamodel.TripRequest, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	approvalRequired := true
	if dto.ApprovalRequired != nil {
		approvalRequired = *dto.ApprovalRequired
	}
	if len(s.levels) == 0 {
		approvalRequired = false
	}

	status := tripDatamodel.StatusPending
	if !approvalRequired {
		status = tripDatamodel.StatusApproved
	}
	if err := fsm.TripRequest.ValidateInitial(status); err != nil {
		return nil, err
	}

	now := s.now()
	t := &tripDatamodel.TripRequest{
		RequestNumber:         NewRequestNumber(now),
		RequesterID:           requesterID,
		FromAddress:           dto.FromAddress,
		FromLatitude:          dto.FromLatitude,
		FromLongitude:         dto.FromLongitude,
		ToAddress:             dto.ToAddress,
		ToLatitude:            dto.ToLatitude,
		ToLongitude:           dto.ToLongitude,
		PurposeCategory:       dto.PurposeCategory,
		PurposeDescription:    dto.PurposeDescription,
		BusinessJustification: dto.BusinessJustification,
		DepartureAt:           dto.DepartureAt.UTC(),
		ReturnAt:              utcPtr(dto.ReturnAt),
		IsRoundTrip:           dto.IsRoundTrip,
		VehicleType:           dto.VehicleType,
		PassengerCount:        dto.PassengerCount,
		RequiresAC:            dto.RequiresAC,
		LuggageRequirement:    dto.LuggageRequirement,
		Priority:              dto.Priority,
		Status:                status,
		EstimatedCost:         money(dto.EstimatedCost),
		Currency:              dto.Currency,
		ApprovalRequired:      approvalRequired,
	}
	if t.PassengerCount == 0 {
		t.PassengerCount = 1
	}
	if t.Priority == "" {
		t.Priority = tripDatamodel.PriorityMedium
	}
	if t.Currency == "" {
		t.Currency = tripDatamodel.DefaultCurrency
	}

	var created *tripDatamodel.TripRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, t); err != nil {
			return err
		}
		if approvalRequired {
			if err := repo.CreateSteps(ctx, approval.BuildChain(t.ID, s.levels)); err != nil {
				return err
			}
		}
		var err error
		created, err = repo.Get(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to create trip request", err, "requester_id", requesterID)
	}

	s.logger.Info("trip request created",
		"trip_request_id", created.ID,
		"request_number", created.RequestNumber,
		"requester_id", requesterID,
		"status", created.Status,
		"approval_steps", len(created.ApprovalSteps))

	return created, nil
}

// Update edits a Pending request. Setting status to Cancelled goes through the state machine.
func (s *Service) Update(ctx context.Context, id string, dto UpdateTripRequestDTO) (*tripDatamodel.TripRequest, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	var updated *tripDatamodel.TripRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		t, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != tripDatamodel.StatusPending {
			s.logger.Warn("trip request is not editable", "trip_request_id", id, "status", t.Status)
			return internal.ErrTripRequestLocked
		}

		fields, err := updateFields(t, dto)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := repo.Update(ctx, id, fields); err != nil {
				return err
			}
		}
		updated, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to update trip request", err, "trip_request_id", id)
	}

	s.logger.Info("trip request updated", "trip_request_id", id, "status", updated.Status)
	return updated, nil
}

func updateFields(t *tripDatamodel.TripRequest, dto UpdateTripRequestDTO) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	departure := t.DepartureAt
	if dto.DepartureAt != nil {
		departure = dto.DepartureAt.UTC()
		fields["departure_at"] = departure
	}
	ret := t.ReturnAt
	if dto.ReturnAt != nil {
		ret = utcPtr(dto.ReturnAt)
		fields["return_at"] = ret
	}
	if err := checkReturn(departure, ret); err != nil {
		return nil, err
	}

	if dto.Status != nil {
		if err := fsm.TripRequest.Validate(t.Status, *dto.Status); err != nil {
			return nil, err
		}
		fields["status"] = *dto.Status
	}
	if dto.FromAddress != nil {
		fields["from_address"] = *dto.FromAddress
	}
	if dto.ToAddress != nil {
		fields["to_address"] = *dto.ToAddress
	}
	if dto.PurposeCategory != nil {
		fields["purpose_category"] = *dto.PurposeCategory
	}
	if dto.PurposeDescription != nil {
		fields["purpose_description"] = *dto.PurposeDescription
	}
	if dto.BusinessJustification != nil {
		fields["business_justification"] = *dto.BusinessJustification
	}
	if dto.IsRoundTrip != nil {
		fields["is_round_trip"] = *dto.IsRoundTrip
	}
	if dto.VehicleType != nil {
		fields["vehicle_type"] = *dto.VehicleType
	}
	if dto.PassengerCount != nil {
		fields["passenger_count"] = *dto.PassengerCount
	}
	if dto.RequiresAC != nil {
		fields["requires_ac"] = *dto.RequiresAC
	}
	if dto.LuggageRequirement != nil {
		fields["luggage_requirement"] = *dto.LuggageRequirement
	}
	if dto.Priority != nil {
		fields["priority"] = *dto.Priority
	}
	if dto.EstimatedCost != nil {
		fields["estimated_cost"] = money(dto.EstimatedCost)
	}
	return fields, nil
}

// Delete is an administrative hard delete, refused once an assignment references the request.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		n, err := repo.CountAssignments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Warn("trip request still referenced", "trip_request_id", id, "assignments", n)
			return internal.ErrTripRequestInUse
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return s.storageError("failed to delete trip request", err, "trip_request_id", id)
	}

	s.logger.Info("trip request deleted", "trip_request_id", id)
	return nil
}

func (s *Service) storageError(msg string, err error, args ...any) error {
	if appErr, ok := internal.IsAppError(err); ok {
		if appErr.Type == internal.ErrorTypeInternal {
			s.logger.Error(msg, append(args, "error", err)...)
		}
		return err
	}
	s.logger.Error(msg, append(args, "error", err)...)
	return internal.NewInternalError(msg, err)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func money(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v).Round(2)
	return &d
}
