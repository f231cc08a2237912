package tripcost

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/dulmini1119/tms-sub001/internal"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type CreateTripCostDTO struct {
	AssignmentID     string  `json:"assignmentId" validate:"required,uuid"`
	BaseFare         float64 `json:"baseFare" validate:"gte=0"`
	DistanceCharges  float64 `json:"distanceCharges" validate:"gte=0"`
	TimeCharges      float64 `json:"timeCharges" validate:"gte=0"`
	FuelCost         float64 `json:"fuelCost" validate:"gte=0"`
	TollCharges      float64 `json:"tollCharges" validate:"gte=0"`
	ParkingCharges   float64 `json:"parkingCharges" validate:"gte=0"`
	WaitingCharges   float64 `json:"waitingCharges" validate:"gte=0"`
	NightSurcharge   float64 `json:"nightSurcharge" validate:"gte=0"`
	HolidaySurcharge float64 `json:"holidaySurcharge" validate:"gte=0"`
	DriverAllowance  float64 `json:"driverAllowance" validate:"gte=0"`
	OtherCharges     float64 `json:"otherCharges" validate:"gte=0"`
	TaxPercentage    float64 `json:"taxPercentage" validate:"gte=0,lte=100"`
	Currency         string  `json:"currency" validate:"omitempty,len=3"`
	Notes            *string `json:"notes" validate:"omitempty,max=1000"`
}

func (dto CreateTripCostDTO) Charges() Charges {
	return Charges{
		BaseFare:         money(dto.BaseFare),
		DistanceCharges:  money(dto.DistanceCharges),
		TimeCharges:      money(dto.TimeCharges),
		FuelCost:         money(dto.FuelCost),
		TollCharges:      money(dto.TollCharges),
		ParkingCharges:   money(dto.ParkingCharges),
		WaitingCharges:   money(dto.WaitingCharges),
		NightSurcharge:   money(dto.NightSurcharge),
		HolidaySurcharge: money(dto.HolidaySurcharge),
		DriverAllowance:  money(dto.DriverAllowance),
		OtherCharges:     money(dto.OtherCharges),
		TaxPercentage:    money(dto.TaxPercentage),
	}
}

// UpdateTripCostDTO is a partial update; omitted charges keep their stored value.
type UpdateTripCostDTO struct {
	BaseFare         *float64 `json:"baseFare" validate:"omitempty,gte=0"`
	DistanceCharges  *float64 `json:"distanceCharges" validate:"omitempty,gte=0"`
	TimeCharges      *float64 `json:"timeCharges" validate:"omitempty,gte=0"`
	FuelCost         *float64 `json:"fuelCost" validate:"omitempty,gte=0"`
	TollCharges      *float64 `json:"tollCharges" validate:"omitempty,gte=0"`
	ParkingCharges   *float64 `json:"parkingCharges" validate:"omitempty,gte=0"`
	WaitingCharges   *float64 `json:"waitingCharges" validate:"omitempty,gte=0"`
	NightSurcharge   *float64 `json:"nightSurcharge" validate:"omitempty,gte=0"`
	HolidaySurcharge *float64 `json:"holidaySurcharge" validate:"omitempty,gte=0"`
	DriverAllowance  *float64 `json:"driverAllowance" validate:"omitempty,gte=0"`
	OtherCharges     *float64 `json:"otherCharges" validate:"omitempty,gte=0"`
	TaxPercentage    *float64 `json:"taxPercentage" validate:"omitempty,gte=0,lte=100"`
	Notes            *string  `json:"notes" validate:"omitempty,max=1000"`
}

// Merge overlays the provided fields on the stored charges.
func (dto UpdateTripCostDTO) Merge(c Charges) Charges {
	set := func(dst *decimal.Decimal, v *float64) {
		if v != nil {
			*dst = money(*v)
		}
	}
	set(&c.BaseFare, dto.BaseFare)
	set(&c.DistanceCharges, dto.DistanceCharges)
	set(&c.TimeCharges, dto.TimeCharges)
	set(&c.FuelCost, dto.FuelCost)
	set(&c.TollCharges, dto.TollCharges)
	set(&c.ParkingCharges, dto.ParkingCharges)
	set(&c.WaitingCharges, dto.WaitingCharges)
	set(&c.NightSurcharge, dto.NightSurcharge)
	set(&c.HolidaySurcharge, dto.HolidaySurcharge)
	set(&c.DriverAllowance, dto.DriverAllowance)
	set(&c.OtherCharges, dto.OtherCharges)
	set(&c.TaxPercentage, dto.TaxPercentage)
	return c
}

type RecordPaymentDTO struct {
	PaymentDate   *time.Time `json:"paymentDate"`
	TransactionID *string    `json:"transactionId" validate:"omitempty,max=100"`
	PaymentMethod *string    `json:"paymentMethod" validate:"omitempty,max=50"`
}

type ListFilter struct {
	PaymentStatus string
	AssignmentID  string
	Search        string
	Paging        paging.Params
}

func (f *ListFilter) Validate() error {
	f.Search = strings.TrimSpace(f.Search)
	if f.PaymentStatus == "" {
		return nil
	}
	for _, s := range []string{
		tripcostDatamodel.PaymentStatusDraft,
		tripcostDatamodel.PaymentStatusPending,
		tripcostDatamodel.PaymentStatusPaid,
		tripcostDatamodel.PaymentStatusOverdue,
	} {
		if strings.EqualFold(f.PaymentStatus, s) {
			f.PaymentStatus = s
			return nil
		}
	}
	return errors.NewValidationFieldError("paymentStatus", "paymentStatus must be one of [Draft Pending Paid Overdue]", errors.ErrCodeInvalidStatus)
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
