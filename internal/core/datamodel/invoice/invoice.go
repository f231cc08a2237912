package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
)

const (
	StatusDraft     = "Draft"
	StatusPending   = "Pending"
	StatusPaid      = "Paid"
	StatusOverdue   = "Overdue"
	StatusNoCharges = "NoCharges"
)

type Invoice struct {
	datamodel.Model
	InvoiceNumber string          `json:"invoiceNumber" gorm:"column:invoice_number;uniqueIndex;not null"`
	VendorID      string          `json:"vendorId" gorm:"column:vendor_id;index;not null"`
	BillingMonth  string          `json:"billingMonth" gorm:"column:billing_month;index;not null"`
	TotalAmount   decimal.Decimal `json:"totalAmount" gorm:"column:total_amount;type:numeric(14,2);not null"`
	Currency      string          `json:"currency" gorm:"column:currency;not null;default:LKR"`
	Status        string          `json:"status" gorm:"column:status;index;not null"`
	DueDate       *time.Time      `json:"dueDate,omitempty" gorm:"column:due_date"`
	PaidDate      *time.Time      `json:"paidDate,omitempty" gorm:"column:paid_date"`
	TransactionID *string         `json:"transactionId,omitempty" gorm:"column:transaction_id"`
	Notes         string          `json:"notes" gorm:"column:notes"`
	GeneratedBy   string          `json:"generatedBy" gorm:"column:generated_by"`

	Vendor    *fleet.Vendor       `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	TripCosts []tripcost.TripCost `json:"tripCosts,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (Invoice) TableName() string {
	return "invoices"
}
