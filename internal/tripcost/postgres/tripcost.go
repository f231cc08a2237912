package postgres

import (
	"context"
	stdErrors "errors"
	"strings"

	"gorm.io/gorm"

	errors "github.com/dulmini1119/tms-sub001/internal"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/tripcost"
)

// chargeColumns are the columns rewritten by an edit.
var chargeColumns = []string{
	"base_fare", "distance_charges", "time_charges", "fuel_cost", "toll_charges",
	"parking_charges", "waiting_charges", "night_surcharge", "holiday_surcharge",
	"driver_allowance", "other_charges", "tax_percentage", "tax_amount", "total_cost",
	"notes", "updated_at",
}

type TripCostRepository struct {
	db *gorm.DB
}

func NewTripCostRepository(db *gorm.DB) tripcost.Repository {
	return &TripCostRepository{db: db}
}

func (r *TripCostRepository) WithTx(ctx context.Context, fn func(context.Context, tripcost.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &TripCostRepository{db: tx})
	})
}

func (r *TripCostRepository) List(ctx context.Context, f tripcost.ListFilter) ([]tripcostDatamodel.TripCost, int64, error) {
	q := r.db.WithContext(ctx).Model(&tripcostDatamodel.TripCost{})

	if f.PaymentStatus != "" {
		q = q.Where("trip_costs.payment_status = ?", f.PaymentStatus)
	}
	if f.AssignmentID != "" {
		q = q.Where("trip_costs.assignment_id = ?", f.AssignmentID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.
			Joins("LEFT JOIN trip_assignments a ON a.id = trip_costs.assignment_id").
			Joins("LEFT JOIN trip_requests tr ON tr.id = a.trip_request_id").
			Joins("LEFT JOIN vehicles v ON v.id = a.vehicle_id").
			Where(`(LOWER(trip_costs.invoice_number) LIKE ?
				OR LOWER(tr.request_number) LIKE ?
				OR LOWER(v.registration_number) LIKE ?)`, like, like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []tripcostDatamodel.TripCost
	err := q.Session(&gorm.Session{}).
		Order("trip_costs.created_at DESC").
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *TripCostRepository) Get(ctx context.Context, id string) (*tripcostDatamodel.TripCost, error) {
	var tc tripcostDatamodel.TripCost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tc).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTripCostNotFound
		}
		return nil, err
	}
	return &tc, nil
}

func (r *TripCostRepository) GetAssignment(ctx context.Context, id string) (*assignmentDatamodel.Assignment, error) {
	var a assignmentDatamodel.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrAssignmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *TripCostRepository) Create(ctx context.Context, tc *tripcostDatamodel.TripCost) error {
	err := r.db.WithContext(ctx).Create(tc).Error
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrTripCostExists
	}
	return err
}

func (r *TripCostRepository) Update(ctx context.Context, tc *tripcostDatamodel.TripCost) error {
	return r.db.WithContext(ctx).Model(tc).Select(chargeColumns).Updates(tc).Error
}

func (r *TripCostRepository) AttachInvoiceNumber(ctx context.Context, id, number, status string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&tripcostDatamodel.TripCost{}).
		Where("id = ? AND invoice_number IS NULL", id).
		Updates(map[string]interface{}{
			"invoice_number": number,
			"payment_status": status,
		})
	return res.RowsAffected, res.Error
}

func (r *TripCostRepository) MarkPaid(ctx context.Context, id string, p tripcost.Payment) (int64, error) {
	fields := map[string]interface{}{
		"payment_status": tripcostDatamodel.PaymentStatusPaid,
		"payment_date":   p.Date,
	}
	if p.TransactionID != nil {
		fields["transaction_id"] = *p.TransactionID
	}
	if p.Method != nil {
		fields["payment_method"] = *p.Method
	}
	res := r.db.WithContext(ctx).Model(&tripcostDatamodel.TripCost{}).
		Where("id = ? AND payment_status <> ?", id, tripcostDatamodel.PaymentStatusPaid).
		Updates(fields)
	return res.RowsAffected, res.Error
}
