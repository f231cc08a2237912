// Package invoice batches a vendor's uninvoiced trip costs for a billing month
// into one invoice and cascades payment back onto those costs.
package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
)

// Draft is the preview of what Generate would bill.
type Draft struct {
	VendorID    string                       `json:"vendorId"`
	VendorName  string                       `json:"vendorName"`
	Month       string                       `json:"month"`
	Trips       []tripcostDatamodel.TripCost `json:"trips"`
	TripCount   int                          `json:"tripCount"`
	TotalAmount float64                      `json:"totalAmount"`
}

// MonthWindow returns [first day 00:00 UTC, first day of next month) for a YYYY-MM month.
func MonthWindow(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(validation.MonthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, errors.NewValidationFieldError("month", "month must be a month in YYYY-MM format", errors.ErrCodeInvalidMonth)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// PreviousMonth is the billing month that closed before now.
func PreviousMonth(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0).Format(validation.MonthLayout)
}

// Number formats PREFIX-VENDOR8-YYYYMM-<unix millis>.
func Number(prefix, vendorID string, monthStart, now time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(vendorID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s-%s-%d", prefix, short, monthStart.Format("200601"), now.UnixMilli())
}

// AppendNote adds a line to existing notes without overwriting them.
func AppendNote(notes, line string) string {
	if strings.TrimSpace(notes) == "" {
		return line
	}
	return notes + "\n" + line
}

func sumTotals(costs []tripcostDatamodel.TripCost) decimal.Decimal {
	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c.TotalCost)
	}
	return total
}

func costIDs(costs []tripcostDatamodel.TripCost) []string {
	ids := make([]string, 0, len(costs))
	for _, c := range costs {
		ids = append(ids, c.ID)
	}
	return ids
}
