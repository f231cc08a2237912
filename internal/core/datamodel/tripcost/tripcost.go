package tripcost

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
)

const (
	PaymentStatusDraft   = "Draft"
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
	PaymentStatusOverdue = "Overdue"
)

type TripCost struct {
	datamodel.Model
	AssignmentID     string          `json:"assignmentId" gorm:"column:assignment_id;uniqueIndex;not null"`
	BaseFare         decimal.Decimal `json:"baseFare" gorm:"column:base_fare;type:numeric(12,2);not null"`
	DistanceCharges  decimal.Decimal `json:"distanceCharges" gorm:"column:distance_charges;type:numeric(12,2);not null"`
	TimeCharges      decimal.Decimal `json:"timeCharges" gorm:"column:time_charges;type:numeric(12,2);not null"`
	FuelCost         decimal.Decimal `json:"fuelCost" gorm:"column:fuel_cost;type:numeric(12,2);not null"`
	TollCharges      decimal.Decimal `json:"tollCharges" gorm:"column:toll_charges;type:numeric(12,2);not null"`
	ParkingCharges   decimal.Decimal `json:"parkingCharges" gorm:"column:parking_charges;type:numeric(12,2);not null"`
	WaitingCharges   decimal.Decimal `json:"waitingCharges" gorm:"column:waiting_charges;type:numeric(12,2);not null"`
	NightSurcharge   decimal.Decimal `json:"nightSurcharge" gorm:"column:night_surcharge;type:numeric(12,2);not null"`
	HolidaySurcharge decimal.Decimal `json:"holidaySurcharge" gorm:"column:holiday_surcharge;type:numeric(12,2);not null"`
	DriverAllowance  decimal.Decimal `json:"driverAllowance" gorm:"column:driver_allowance;type:numeric(12,2);not null"`
	OtherCharges     decimal.Decimal `json:"otherCharges" gorm:"column:other_charges;type:numeric(12,2);not null"`
	TaxPercentage    decimal.Decimal `json:"taxPercentage" gorm:"column:tax_percentage;type:numeric(5,2);not null"`
	TaxAmount        decimal.Decimal `json:"taxAmount" gorm:"column:tax_amount;type:numeric(12,2);not null"`
	TotalCost        decimal.Decimal `json:"totalCost" gorm:"column:total_cost;type:numeric(12,2);not null"`
	Currency         string          `json:"currency" gorm:"column:currency;not null;default:LKR"`
	InvoiceID        *string         `json:"invoiceId,omitempty" gorm:"column:invoice_id;index"`
	InvoiceNumber    *string         `json:"invoiceNumber,omitempty" gorm:"column:invoice_number"`
	PaymentStatus    string          `json:"paymentStatus" gorm:"column:payment_status;not null;default:Draft"`
	PaymentDate      *time.Time      `json:"paymentDate,omitempty" gorm:"column:payment_date"`
	PaymentMethod    *string         `json:"paymentMethod,omitempty" gorm:"column:payment_method"`
	TransactionID    *string         `json:"transactionId,omitempty" gorm:"column:transaction_id"`
	Notes            *string         `json:"notes,omitempty" gorm:"column:notes"`
	CreatedBy        string          `json:"createdBy" gorm:"column:created_by"`
}

func (TripCost) TableName() string {
	return "trip_costs"
}
