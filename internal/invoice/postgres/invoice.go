package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/invoice"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) invoice.Repository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) WithTx(ctx context.Context, fn func(context.Context, invoice.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &InvoiceRepository{db: tx})
	})
}

func (r *InvoiceRepository) GetVendor(ctx context.Context, id string) (*fleet.Vendor, error) {
	var v fleet.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrVendorNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *InvoiceRepository) ListVendors(ctx context.Context) ([]fleet.Vendor, error) {
	var vendors []fleet.Vendor
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&vendors).Error
	return vendors, err
}

func (r *InvoiceRepository) UninvoicedCosts(ctx context.Context, vendorID string, from, to time.Time) ([]tripcostDatamodel.TripCost, error) {
	var costs []tripcostDatamodel.TripCost
	err := r.db.WithContext(ctx).Model(&tripcostDatamodel.TripCost{}).
		Joins("JOIN trip_assignments a ON a.id = trip_costs.assignment_id").
		Joins("JOIN vehicles v ON v.id = a.vehicle_id").
		Where("v.vendor_id = ?", vendorID).
		Where("trip_costs.invoice_id IS NULL").
		Where("trip_costs.payment_status <> ?", tripcostDatamodel.PaymentStatusPaid).
		Where("trip_costs.created_at >= ? AND trip_costs.created_at < ?", from, to).
		Order("trip_costs.created_at ASC").
		Find(&costs).Error
	return costs, err
}

func (r *InvoiceRepository) CreateInvoice(ctx context.Context, inv *invoiceDatamodel.Invoice) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(inv).Error
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrInvoiceNumberTaken
	}
	return err
}

func (r *InvoiceRepository) AttachCosts(ctx context.Context, invoiceID, number string, costIDs []string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&tripcostDatamodel.TripCost{}).
		Where("id IN ? AND invoice_id IS NULL", costIDs).
		Updates(map[string]interface{}{
			"invoice_id":     invoiceID,
			"invoice_number": number,
			"payment_status": tripcostDatamodel.PaymentStatusPending,
		})
	return res.RowsAffected, res.Error
}

func withCosts(db *gorm.DB) *gorm.DB {
	return db.Preload("Vendor").Preload("TripCosts", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *InvoiceRepository) Get(ctx context.Context, id string) (*invoiceDatamodel.Invoice, error) {
	var inv invoiceDatamodel.Invoice
	if err := withCosts(r.db.WithContext(ctx)).Where("id = ?", id).First(&inv).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context, f invoice.ListFilter) ([]invoiceDatamodel.Invoice, int64, error) {
	q := r.db.WithContext(ctx).Model(&invoiceDatamodel.Invoice{})
	if f.VendorID != "" {
		q = q.Where("vendor_id = ?", f.VendorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Month != "" {
		q = q.Where("billing_month = ?", f.Month)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []invoiceDatamodel.Invoice
	err := withCosts(q.Session(&gorm.Session{})).
		Order("created_at DESC").
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id, from string, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&invoiceDatamodel.Invoice{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *InvoiceRepository) CascadeCosts(ctx context.Context, invoiceID, status string, paidAt *time.Time) (int64, error) {
	fields := map[string]interface{}{"payment_status": status}
	if paidAt != nil {
		fields["payment_date"] = *paidAt
	}
	res := r.db.WithContext(ctx).Model(&tripcostDatamodel.TripCost{}).
		Where("invoice_id = ? AND payment_status <> ?", invoiceID, tripcostDatamodel.PaymentStatusPaid).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *InvoiceRepository) ListOverdue(ctx context.Context, now time.Time) ([]invoiceDatamodel.Invoice, error) {
	var rows []invoiceDatamodel.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", invoiceDatamodel.StatusPending, now).
		Find(&rows).Error
	return rows, err
}

func (r *InvoiceRepository) ExistsForMonth(ctx context.Context, vendorID, month string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&invoiceDatamodel.Invoice{}).
		Where("vendor_id = ? AND billing_month = ?", vendorID, month).
		Count(&n).Error
	return n > 0, err
}
