package assignment

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/events"
	"github.com/dulmini1119/tms-sub001/internal/core/fsm"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filter ListFilter) ([]assignmentDatamodel.Assignment, int64, error)
	// Get preloads the trip request, vehicle and driver.
	Get(ctx context.Context, id string) (*assignmentDatamodel.Assignment, error)
	GetTripRequest(ctx context.Context, id string) (*tripDatamodel.TripRequest, error)
	GetVehicle(ctx context.Context, id string) (*fleet.Vehicle, error)
	GetDriver(ctx context.Context, id string) (*fleet.Driver, error)
	Create(ctx context.Context, a *assignmentDatamodel.Assignment) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// UpdateTripStatus moves the trip request only while it is still in from.
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

func (s *Service) List(ctx context.Context, filter ListFilter) (*paging.Page[assignmentDatamodel.Assignment], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storageError("failed to list assignments", err)
	}
	return paging.NewPage(rows, total, filter.Paging), nil
}

func (s *Service) Get(ctx context.Context, id string) (*assignmentDatamodel.Assignment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storageError("failed to get assignment", err, "assignment_id", id)
	}
	return a, nil
}

// Create assigns a vehicle and driver to an Approved trip request and promotes the
// request to Assigned in the same transaction. Overlapping bookings are not detected.
func (s *Service) Create(ctx context.Context, dto CreateAssignmentDTO, assignedBy string) (*assignmentDatamodel.Assignment, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if err := checkSchedule(dto.ScheduledDeparture, dto.ScheduledReturn); err != nil {
		return nil, err
	}

	status := dto.Status
	if status == "" {
		status = assignmentDatamodel.StatusAssigned
	}
	if err := fsm.Assignment.ValidateInitial(status); err != nil {
		return nil, err
	}

	var created *assignmentDatamodel.Assignment
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		t, err := repo.GetTripRequest(ctx, dto.TripRequestID)
		if err != nil {
			return err
		}
		if err := fsm.TripRequest.Validate(t.Status, tripDatamodel.StatusAssigned); err != nil {
			return err
		}
		vehicle, err := repo.GetVehicle(ctx, dto.VehicleID)
		if err != nil {
			return err
		}
		driver, err := repo.GetDriver(ctx, dto.DriverID)
		if err != nil {
			return err
		}

		a := &assignmentDatamodel.Assignment{
			TripRequestID:      t.ID,
			VehicleID:          vehicle.ID,
			DriverID:           driver.ID,
			Status:             status,
			ScheduledDeparture: dto.ScheduledDeparture.UTC(),
			ScheduledReturn:    utcPtr(dto.ScheduledReturn),
			Notes:              dto.Notes,
			VehicleDetails:     VehicleSnapshot(vehicle),
			DriverDetails:      DriverSnapshot(driver),
			AssignedBy:         assignedBy,
		}
		if dto.VehicleDetails != nil {
			a.VehicleDetails = datatypes.JSONMap(dto.VehicleDetails)
		}
		if dto.DriverDetails != nil {
			a.DriverDetails = datatypes.JSONMap(dto.DriverDetails)
		}
		if err := repo.Create(ctx, a); err != nil {
			return err
		}
		if err := promoteTrip(ctx, repo, t, tripDatamodel.StatusAssigned); err != nil {
			return err
		}

		created, err = repo.Get(ctx, a.ID)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to create assignment", err, "trip_request_id", dto.TripRequestID)
	}

	s.logger.Info("assignment created",
		"assignment_id", created.ID,
		"trip_request_id", created.TripRequestID,
		"vehicle_id", created.VehicleID,
		"driver_id", created.DriverID,
		"assigned_by", assignedBy)

	return created, nil
}

// Update applies a partial change. Started and Completed carry the trip request along.
func (s *Service) Update(ctx context.Context, id string, dto UpdateAssignmentDTO) (*assignmentDatamodel.Assignment, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	var (
		updated *assignmentDatamodel.Assignment
		from    string
		changed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		a, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		from = a.Status

		fields := map[string]interface{}{}
		departure := a.ScheduledDeparture
		if dto.ScheduledDeparture != nil {
			departure = dto.ScheduledDeparture.UTC()
			fields["scheduled_departure"] = departure
		}
		ret := a.ScheduledReturn
		if dto.ScheduledReturn != nil {
			ret = utcPtr(dto.ScheduledReturn)
			fields["scheduled_return"] = ret
		}
		if err := checkSchedule(departure, ret); err != nil {
			return err
		}
		if dto.Notes != nil {
			fields["notes"] = *dto.Notes
		}
		if dto.VehicleDetails != nil {
			fields["vehicle_details"] = datatypes.JSONMap(dto.VehicleDetails)
		}
		if dto.DriverDetails != nil {
			fields["driver_details"] = datatypes.JSONMap(dto.DriverDetails)
		}

		if dto.Status != nil && *dto.Status != a.Status {
			to := *dto.Status
			if err := fsm.Assignment.Validate(a.Status, to); err != nil {
				s.logger.Warn("assignment transition refused", "assignment_id", id, "from", a.Status, "to", to)
				return err
			}
			fields["status"] = to
			switch to {
			case assignmentDatamodel.StatusStarted:
				fields["actual_departure"] = s.now()
			case assignmentDatamodel.StatusCompleted:
				fields["actual_return"] = s.now()
			}
			changed = true
		}

		if len(fields) > 0 {
			if err := repo.Update(ctx, id, fields); err != nil {
				return err
			}
		}

		if changed {
			if target, ok := tripPromotion[*dto.Status]; ok {
				t, err := repo.GetTripRequest(ctx, a.TripRequestID)
				if err != nil {
					return err
				}
				if err := promoteTrip(ctx, repo, t, target); err != nil {
					return err
				}
			}
		}

		updated, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to update assignment", err, "assignment_id", id)
	}

	if changed {
		s.logger.Info("assignment status changed",
			"assignment_id", id,
			"trip_request_id", updated.TripRequestID,
			"from", from,
			"to", updated.Status)
		events.Emit(ctx, s.publisher, s.logger,
			events.NewAssignmentStatusChangedEvent(id, updated.TripRequestID, from, updated.Status))
	}

	return updated, nil
}

func promoteTrip(ctx context.Context, repo Repository, t *tripDatamodel.TripRequest, to string) error {
	if err := fsm.TripRequest.Validate(t.Status, to); err != nil {
		return err
	}
	n, err := repo.UpdateTripStatus(ctx, t.ID, t.Status, to)
	if err != nil {
		return err
	}
	if n == 0 {
		return internal.NewInvalidTransitionError(fsm.TripRequest.Entity(), t.Status, to)
	}
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
