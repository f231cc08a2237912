package invoice

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/events"
	"github.com/dulmini1119/tms-sub001/internal/core/fsm"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	GetVendor(ctx context.Context, id string) (*fleet.Vendor, error)
	ListVendors(ctx context.Context) ([]fleet.Vendor, error)
	// UninvoicedCosts returns unpaid costs with no invoice whose assignment's vehicle
	// belongs to the vendor, created in [from, to).
	UninvoicedCosts(ctx context.Context, vendorID string, from, to time.Time) ([]tripcostDatamodel.TripCost, error)
	CreateInvoice(ctx context.Context, inv *invoiceDatamodel.Invoice) error
	// AttachCosts links the costs to the invoice, skipping any already linked.
	AttachCosts(ctx context.Context, invoiceID, number string, costIDs []string) (int64, error)
	// Get preloads the vendor and linked trip costs.
	Get(ctx context.Context, id string) (*invoiceDatamodel.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]invoiceDatamodel.Invoice, int64, error)
	// UpdateStatus applies fields only while the invoice is still in from.
	UpdateStatus(ctx context.Context, id, from string, fields map[string]interface{}) (int64, error)
	// CascadeCosts sets the payment status on every unpaid cost linked to the invoice.
	CascadeCosts(ctx context.Context, invoiceID, status string, paidAt *time.Time) (int64, error)
	ListOverdue(ctx context.Context, now time.Time) ([]invoiceDatamodel.Invoice, error)
	ExistsForMonth(ctx context.Context, vendorID, month string) (bool, error)
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	cfg       internal.InvoiceConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, cfg internal.InvoiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "INV"
	}
	if cfg.Currency == "" {
		cfg.Currency = "LKR"
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used for invoice numbers, due dates and overdue checks.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// PreviewDraft returns nil when the vendor has nothing billable in the month.
func (s *Service) PreviewDraft(ctx context.Context, vendorID, month string) (*Draft, error) {
	q := PreviewQuery{VendorID: vendorID, Month: month}
	if err := validation.Struct(q); err != nil {
		return nil, err
	}

	d, _, err := s.draft(ctx, s.repo, vendorID, month)
	if err != nil {
		return nil, s.storageError("failed to preview invoice", err, "vendor_id", vendorID, "month", month)
	}
	if d.TripCount == 0 {
		return nil, nil
	}
	return d, nil
}

func (s *Service) draft(ctx context.Context, repo Repository, vendorID, month string) (*Draft, decimal.Decimal, error) {
	from, to, err := MonthWindow(month)
	if err != nil {
		return nil, decimal.Zero, err
	}
	vendor, err := repo.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	costs, err := repo.UninvoicedCosts(ctx, vendorID, from, to)
	if err != nil {
		return nil, decimal.Zero, err
	}

	total := sumTotals(costs)
	return &Draft{
		VendorID:    vendor.ID,
		VendorName:  vendor.Name,
		Month:       month,
		Trips:       costs,
		TripCount:   len(costs),
		TotalAmount: total.InexactFloat64(),
	}, total, nil
}

// Generate creates the vendor's invoice for the month and links every matched cost in one
// transaction. A month with nothing billable still yields a NoCharges invoice.
func (s *Service) Generate(ctx context.Context, dto GenerateInvoiceDTO, userID string) (*invoiceDatamodel.Invoice, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	from, _, err := MonthWindow(dto.Month)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		created   *invoiceDatamodel.Invoice
		tripCount int
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		d, total, err := s.draft(ctx, repo, dto.VendorID, dto.Month)
		if err != nil {
			return err
		}
		tripCount = d.TripCount

		inv := &invoiceDatamodel.Invoice{
			InvoiceNumber: Number(s.cfg.NumberPrefix, dto.VendorID, from, now),
			VendorID:      dto.VendorID,
			BillingMonth:  dto.Month,
			TotalAmount:   total,
			Currency:      s.cfg.Currency,
			Status:        invoiceDatamodel.StatusPending,
			DueDate:       s.dueDate(dto.DueDate, now),
			Notes:         dto.Notes,
			GeneratedBy:   userID,
		}
		if d.TripCount == 0 {
			inv.Status = invoiceDatamodel.StatusNoCharges
			inv.TotalAmount = decimal.Zero
			inv.Notes = AppendNote(inv.Notes, "No billable trips found for "+dto.Month)
		}
		if err := fsm.Invoice.ValidateInitial(inv.Status); err != nil {
			return err
		}
		if err := repo.CreateInvoice(ctx, inv); err != nil {
			return err
		}

		if d.TripCount > 0 {
			n, err := repo.AttachCosts(ctx, inv.ID, inv.InvoiceNumber, costIDs(d.Trips))
			if err != nil {
				return err
			}
			if n != int64(d.TripCount) {
				s.logger.Warn("trip costs invoiced concurrently",
					"vendor_id", dto.VendorID, "month", dto.Month, "matched", d.TripCount, "attached", n)
				return internal.ErrInvoiceBatchConflict
			}
		}

		created, err = repo.Get(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to generate invoice", err, "vendor_id", dto.VendorID, "month", dto.Month)
	}

	s.logger.Info("invoice generated",
		"invoice_id", created.ID,
		"invoice_number", created.InvoiceNumber,
		"vendor_id", created.VendorID,
		"month", created.BillingMonth,
		"trip_count", tripCount,
		"status", created.Status)

	events.Emit(ctx, s.publisher, s.logger, events.NewInvoiceGeneratedEvent(
		created.ID, created.InvoiceNumber, created.VendorID, created.BillingMonth,
		tripCount, created.TotalAmount.InexactFloat64(), created.Status))

	return created, nil
}

func (s *Service) dueDate(requested *time.Time, now time.Time) *time.Time {
	if requested != nil {
		d := requested.UTC()
		return &d
	}
	if s.cfg.DefaultDueDays <= 0 {
		return nil
	}
	d := now.AddDate(0, 0, s.cfg.DefaultDueDays)
	return &d
}

// RecordPayment marks the invoice Paid and cascades the payment onto its trip costs atomically.
func (s *Service) RecordPayment(ctx context.Context, id string, dto PayInvoiceDTO) (*invoiceDatamodel.Invoice, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	paidAt := s.now()
	if dto.PaidAt != nil {
		paidAt = dto.PaidAt.UTC()
	}

	var (
		paid     *invoiceDatamodel.Invoice
		previous string
		cascaded int64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		previous = inv.Status
		if err := fsm.Invoice.Validate(inv.Status, invoiceDatamodel.StatusPaid); err != nil {
			s.logger.Warn("invoice payment refused", "invoice_id", id, "status", inv.Status)
			return err
		}

		note := fmt.Sprintf("Payment recorded on %s", paidAt.Format(time.RFC3339))
		if dto.TransactionID != nil {
			note += " (transaction " + *dto.TransactionID + ")"
		}
		if dto.Notes != nil && *dto.Notes != "" {
			note += ": " + *dto.Notes
		}

		fields := map[string]interface{}{
			"status":    invoiceDatamodel.StatusPaid,
			"paid_date": paidAt,
			"notes":     AppendNote(inv.Notes, note),
		}
		if dto.TransactionID != nil {
			fields["transaction_id"] = *dto.TransactionID
		}
		n, err := repo.UpdateStatus(ctx, id, inv.Status, fields)
		if err != nil {
			return err
		}
		if n == 0 {
			return internal.ErrInvoiceStatusChanged
		}

		cascaded, err = repo.CascadeCosts(ctx, id, tripcostDatamodel.PaymentStatusPaid, &paidAt)
		if err != nil {
			return err
		}

		paid, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.storageError("failed to record invoice payment", err, "invoice_id", id)
	}

	s.logger.Info("invoice paid",
		"invoice_id", id,
		"invoice_number", paid.InvoiceNumber,
		"trip_costs_paid", cascaded,
		"previous_status", previous)

	txID := ""
	if dto.TransactionID != nil {
		txID = *dto.TransactionID
	}
	events.Emit(ctx, s.publisher, s.logger,
		events.NewInvoicePaidEvent(id, paid.InvoiceNumber, paidAt, cascaded, txID, previous))

	return paid, nil
}

// MarkOverdue moves Pending invoices past their due date to Overdue, with their trip costs.
func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	now := s.now()
	marked := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		due, err := repo.ListOverdue(ctx, now)
		if err != nil {
			return err
		}
		for _, inv := range due {
			if err := fsm.Invoice.Validate(inv.Status, invoiceDatamodel.StatusOverdue); err != nil {
				continue
			}
			n, err := repo.UpdateStatus(ctx, inv.ID, inv.Status, map[string]interface{}{
				"status": invoiceDatamodel.StatusOverdue,
			})
			if err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			if _, err := repo.CascadeCosts(ctx, inv.ID, tripcostDatamodel.PaymentStatusOverdue, nil); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, s.storageError("failed to mark overdue invoices", err)
	}

	if marked > 0 {
		s.logger.Info("invoices marked overdue", "count", marked)
	}
	return marked, nil
}

// GenerateMonthly invoices every vendor (or just vendorID) for month, defaulting to the
// previous month. Vendors already invoiced for the month are skipped.
func (s *Service) GenerateMonthly(ctx context.Context, month, vendorID, userID string) ([]invoiceDatamodel.Invoice, error) {
	if month == "" {
		month = PreviousMonth(s.now())
	}
	if _, _, err := MonthWindow(month); err != nil {
		return nil, err
	}

	var vendors []fleet.Vendor
	if vendorID != "" {
		v, err := s.repo.GetVendor(ctx, vendorID)
		if err != nil {
			return nil, s.storageError("failed to load vendor", err, "vendor_id", vendorID)
		}
		vendors = []fleet.Vendor{*v}
	} else {
		var err error
		vendors, err = s.repo.ListVendors(ctx)
		if err != nil {
			return nil, s.storageError("failed to list vendors", err)
		}
	}

	var (
		out  []invoiceDatamodel.Invoice
		errs []error
	)
	for _, v := range vendors {
		exists, err := s.repo.ExistsForMonth(ctx, v.ID, month)
		if err != nil {
			errs = append(errs, s.storageError("failed to check existing invoice", err, "vendor_id", v.ID))
			continue
		}
		if exists {
			s.logger.Debug("vendor already invoiced", "vendor_id", v.ID, "month", month)
			continue
		}
		inv, err := s.Generate(ctx, GenerateInvoiceDTO{VendorID: v.ID, Month: month}, userID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, *inv)
	}
	return out, stdErrors.Join(errs...)
}

func (s *Service) Get(ctx context.Context, id string) (*invoiceDatamodel.Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storageError("failed to get invoice", err, "invoice_id", id)
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*paging.Page[invoiceDatamodel.Invoice], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storageError("failed to list invoices", err)
	}
	return paging.NewPage(rows, total, filter.Paging), nil
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
