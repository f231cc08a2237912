package tripcost

import (
	"context"
	"log/slog"
	"time"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/fsm"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filter ListFilter) ([]tripcostDatamodel.TripCost, int64, error)
	Get(ctx context.Context, id string) (*tripcostDatamodel.TripCost, error)
	GetAssignment(ctx context.Context, id string) (*assignmentDatamodel.Assignment, error)
	Create(ctx context.Context, tc *tripcostDatamodel.TripCost) error
	Update(ctx context.Context, tc *tripcostDatamodel.TripCost) error
	// AttachInvoiceNumber sets the number only while none is attached.
	AttachInvoiceNumber(ctx context.Context, id, number, status string) (int64, error)
	// MarkPaid records the payment only while the cost is not Paid.
	MarkPaid(ctx context.Context, id string, p Payment) (int64, error)
}

// Payment is the write applied by RecordPayment.
type Payment struct {
	Date          time.Time
	TransactionID *string
	Method        *string
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*paging.Page[tripcostDatamodel.TripCost], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storageError("failed to list trip costs", err)
	}
	return paging.NewPage(rows, total, filter.Paging), nil
}

func (s *Service) Get(ctx context.Context, id string) (*tripcostDatamodel.TripCost, error) {
	tc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storageError("failed to get trip cost", err, "trip_cost_id", id)
	}
	return tc, nil
}

// Create itemizes the cost of one assignment. Only one cost may exist per assignment.
func (s *Service) Create(ctx context.Context, dto CreateTripCostDTO, createdBy string) (*tripcostDatamodel.TripCost, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	tc := &tripcostDatamodel.TripCost{
		AssignmentID:  dto.AssignmentID,
		Currency:      dto.Currency,
		PaymentStatus: tripcostDatamodel.PaymentStatusDraft,
		Notes:         dto.Notes,
		CreatedBy:     createdBy,
	}
	if tc.Currency == "" {
		tc.Currency = tripDatamodel.DefaultCurrency
	}
	dto.Charges().Apply(tc)
	if err := fsm.TripCostPayment.ValidateInitial(tc.PaymentStatus); err != nil {
		return nil, err
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetAssignment(ctx, dto.AssignmentID); err != nil {
			return err
		}
		return repo.Create(ctx, tc)
	})
	if err != nil {
		return nil, s.storageError("failed to create trip cost", err, "assignment_id", dto.AssignmentID)
	}

	s.logger.Info("trip cost created",
		"trip_cost_id", tc.ID,
		"assignment_id", tc.AssignmentID,
		"total_cost", tc.TotalCost.StringFixed(2))

	return tc, nil
}

// Update edits charges while the cost is still open and recomputes its totals.
func (s *Service) Update(ctx context.Context, id string, dto UpdateTripCostDTO) (*tripcostDatamodel.TripCost, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	var tc *tripcostDatamodel.TripCost
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		tc, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if Locked(tc) {
			s.logger.Warn("trip cost is locked", "trip_cost_id", id, "payment_status", tc.PaymentStatus)
			return internal.ErrTripCostLocked
		}

		dto.Merge(ChargesOf(tc)).Apply(tc)
		if dto.Notes != nil {
			tc.Notes = dto.Notes
		}
		return repo.Update(ctx, tc)
	})
	if err != nil {
		return nil, s.storageError("failed to update trip cost", err, "trip_cost_id", id)
	}

	s.logger.Info("trip cost updated", "trip_cost_id", id, "total_cost", tc.TotalCost.StringFixed(2))
	return tc, nil
}

// GenerateInvoice attaches a per-trip invoice number and moves a Draft cost to Pending.
func (s *Service) GenerateInvoice(ctx context.Context, id string) (*tripcostDatamodel.TripCost, error) {
	var tc *tripcostDatamodel.TripCost
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		tc, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if tc.PaymentStatus == tripcostDatamodel.PaymentStatusPaid {
			return internal.ErrTripCostLocked
		}
		if tc.InvoiceNumber != nil {
			return internal.ErrTripCostInvoiced
		}

		status := tc.PaymentStatus
		if status == tripcostDatamodel.PaymentStatusDraft {
			if err := fsm.TripCostPayment.Validate(status, tripcostDatamodel.PaymentStatusPending); err != nil {
				return err
			}
			status = tripcostDatamodel.PaymentStatusPending
		}

		number := InvoiceNumber(tc.ID, s.now())
		n, err := repo.AttachInvoiceNumber(ctx, id, number, status)
		if err != nil {
			return err
		}
		if n == 0 {
			return internal.ErrTripCostInvoiced
		}
		tc, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to generate trip cost invoice", err, "trip_cost_id", id)
	}

	s.logger.Info("trip cost invoiced", "trip_cost_id", id, "invoice_number", *tc.InvoiceNumber)
	return tc, nil
}

// RecordPayment marks the cost Paid. A Paid cost is immutable.
func (s *Service) RecordPayment(ctx context.Context, id string, dto RecordPaymentDTO) (*tripcostDatamodel.TripCost, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	p := Payment{Date: s.now(), TransactionID: dto.TransactionID, Method: dto.PaymentMethod}
	if dto.PaymentDate != nil {
		p.Date = dto.PaymentDate.UTC()
	}

	var tc *tripcostDatamodel.TripCost
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		tc, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if tc.PaymentStatus == tripcostDatamodel.PaymentStatusPaid {
			return internal.ErrTripCostPaid
		}
		if err := fsm.TripCostPayment.Validate(tc.PaymentStatus, tripcostDatamodel.PaymentStatusPaid); err != nil {
			return err
		}

		n, err := repo.MarkPaid(ctx, id, p)
		if err != nil {
			return err
		}
		if n == 0 {
			return internal.ErrTripCostPaid
		}
		tc, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to record trip cost payment", err, "trip_cost_id", id)
	}

	s.logger.Info("trip cost paid", "trip_cost_id", id, "payment_date", p.Date)
	return tc, nil
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
