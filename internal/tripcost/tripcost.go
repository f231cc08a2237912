// Package tripcost itemizes the charges of a completed assignment and tracks their payment.
package tripcost

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
)

var hundred = decimal.NewFromInt(100)

// Charges are the eleven itemized components plus the tax rate applied to their sum.
type Charges struct {
	BaseFare         decimal.Decimal
	DistanceCharges  decimal.Decimal
	TimeCharges      decimal.Decimal
	FuelCost         decimal.Decimal
	TollCharges      decimal.Decimal
	ParkingCharges   decimal.Decimal
	WaitingCharges   decimal.Decimal
	NightSurcharge   decimal.Decimal
	HolidaySurcharge decimal.Decimal
	DriverAllowance  decimal.Decimal
	OtherCharges     decimal.Decimal
	TaxPercentage    decimal.Decimal
}

type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	TotalCost decimal.Decimal
}

// Compute sums the components, taxes the sum rounded half-up to cents, and adds the tax.
func (c Charges) Compute() Totals {
	subtotal := decimal.Sum(c.BaseFare,
		c.DistanceCharges,
		c.TimeCharges,
		c.FuelCost,
		c.TollCharges,
		c.ParkingCharges,
		c.WaitingCharges,
		c.NightSurcharge,
		c.HolidaySurcharge,
		c.DriverAllowance,
		c.OtherCharges)
	tax := subtotal.Mul(c.TaxPercentage).Div(hundred).Round(2)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		TotalCost: subtotal.Add(tax),
	}
}

func ChargesOf(tc *tripcostDatamodel.TripCost) Charges {
	return Charges{
		BaseFare:         tc.BaseFare,
		DistanceCharges:  tc.DistanceCharges,
		TimeCharges:      tc.TimeCharges,
		FuelCost:         tc.FuelCost,
		TollCharges:      tc.TollCharges,
		ParkingCharges:   tc.ParkingCharges,
		WaitingCharges:   tc.WaitingCharges,
		NightSurcharge:   tc.NightSurcharge,
		HolidaySurcharge: tc.HolidaySurcharge,
		DriverAllowance:  tc.DriverAllowance,
		OtherCharges:     tc.OtherCharges,
		TaxPercentage:    tc.TaxPercentage,
	}
}

// Apply writes the charges and their computed totals onto the row.
func (c Charges) Apply(tc *tripcostDatamodel.TripCost) {
	t := c.Compute()
	tc.BaseFare = c.BaseFare
	tc.DistanceCharges = c.DistanceCharges
	tc.TimeCharges = c.TimeCharges
	tc.FuelCost = c.FuelCost
	tc.TollCharges = c.TollCharges
	tc.ParkingCharges = c.ParkingCharges
	tc.WaitingCharges = c.WaitingCharges
	tc.NightSurcharge = c.NightSurcharge
	tc.HolidaySurcharge = c.HolidaySurcharge
	tc.DriverAllowance = c.DriverAllowance
	tc.OtherCharges = c.OtherCharges
	tc.TaxPercentage = c.TaxPercentage
	tc.TaxAmount = t.TaxAmount
	tc.TotalCost = t.TotalCost
}

// Locked reports whether charges may no longer be edited.
func Locked(tc *tripcostDatamodel.TripCost) bool {
	switch tc.PaymentStatus {
	case tripcostDatamodel.PaymentStatusDraft:
		return false
	case tripcostDatamodel.PaymentStatusPending:
		return tc.InvoiceNumber != nil
	default:
		return true
	}
}

// InvoiceNumber is the per-trip number attached by GenerateInvoice.
func InvoiceNumber(tripCostID string, now time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(tripCostID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("INV-TC-%s-%d", short, now.UnixMilli())
}
