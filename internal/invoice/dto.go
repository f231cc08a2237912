package invoice

import (
	"strings"
	"time"

	errors "github.com/dulmini1119/tms-sub001/internal"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type PreviewQuery struct {
	VendorID string `json:"vendorId" validate:"required,uuid"`
	Month    string `json:"month" validate:"required,yyyymm"`
}

type GenerateInvoiceDTO struct {
	VendorID string     `json:"vendorId" validate:"required,uuid"`
	Month    string     `json:"month" validate:"required,yyyymm"`
	DueDate  *time.Time `json:"dueDate"`
	Notes    string     `json:"notes" validate:"max=2000"`
}

type PayInvoiceDTO struct {
	PaidAt        *time.Time `json:"paidAt"`
	TransactionID *string    `json:"transactionId" validate:"omitempty,max=100"`
	Notes         *string    `json:"notes" validate:"omitempty,max=1000"`
}

type ListFilter struct {
	VendorID string
	Status   string
	Month    string
	Paging   paging.Params
}

func (f *ListFilter) Validate() error {
	if f.Month != "" {
		if _, _, err := MonthWindow(f.Month); err != nil {
			return err
		}
	}
	if f.Status == "" {
		return nil
	}
	for _, s := range []string{
		invoiceDatamodel.StatusDraft,
		invoiceDatamodel.StatusPending,
		invoiceDatamodel.StatusPaid,
		invoiceDatamodel.StatusOverdue,
		invoiceDatamodel.StatusNoCharges,
	} {
		if strings.EqualFold(f.Status, s) {
			f.Status = s
			return nil
		}
	}
	return errors.NewValidationFieldError("status", "status must be one of [Draft Pending Paid Overdue NoCharges]", errors.ErrCodeInvalidStatus)
}
