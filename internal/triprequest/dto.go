package triprequest

import (
	"strings"
	"time"

	errors "github.com/dulmini1119/tms-sub001/internal"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/fsm"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

var priorities = []string{
	tripDatamodel.PriorityLow,
	tripDatamodel.PriorityMedium,
	tripDatamodel.PriorityHigh,
	tripDatamodel.PriorityUrgent,
}

var statuses = []string{
	tripDatamodel.StatusPending,
	tripDatamodel.StatusApproved,
	tripDatamodel.StatusRejected,
	tripDatamodel.StatusCancelled,
	tripDatamodel.StatusAssigned,
	tripDatamodel.StatusInProgress,
	tripDatamodel.StatusCompleted,
}

type CreateTripRequestDTO struct {
	FromAddress           string     `json:"fromAddress" validate:"required,max=500"`
	FromLatitude          *float64   `json:"fromLatitude" validate:"omitempty,latitude"`
	FromLongitude         *float64   `json:"fromLongitude" validate:"omitempty,longitude"`
	ToAddress             string     `json:"toAddress" validate:"required,max=500"`
	ToLatitude            *float64   `json:"toLatitude" validate:"omitempty,latitude"`
	ToLongitude           *float64   `json:"toLongitude" validate:"omitempty,longitude"`
	PurposeCategory       string     `json:"purposeCategory" validate:"required,max=100"`
	PurposeDescription    string     `json:"purposeDescription" validate:"required,max=1000"`
	BusinessJustification *string    `json:"businessJustification" validate:"omitempty,max=1000"`
	DepartureAt           time.Time  `json:"departureAt" validate:"required"`
	ReturnAt              *time.Time `json:"returnAt"`
	IsRoundTrip           bool       `json:"isRoundTrip"`
	VehicleType           string     `json:"vehicleType" validate:"omitempty,max=50"`
	PassengerCount        int        `json:"passengerCount" validate:"omitempty,gte=1,lte=50"`
	RequiresAC            bool       `json:"requiresAc"`
	LuggageRequirement    *string    `json:"luggageRequirement" validate:"omitempty,max=255"`
	Priority              string     `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	EstimatedCost         *float64   `json:"estimatedCost" validate:"omitempty,gte=0"`
	Currency              string     `json:"currency" validate:"omitempty,len=3"`
	ApprovalRequired      *bool      `json:"approvalRequired"`
}

// Validate covers the cross-field rules struct tags cannot express.
func (dto CreateTripRequestDTO) Validate() error {
	return checkReturn(dto.DepartureAt, dto.ReturnAt)
}

// UpdateTripRequestDTO is a partial update. Status may only be set to Cancelled.
type UpdateTripRequestDTO struct {
	FromAddress           *string    `json:"fromAddress" validate:"omitempty,min=1,max=500"`
	ToAddress             *string    `json:"toAddress" validate:"omitempty,min=1,max=500"`
	PurposeCategory       *string    `json:"purposeCategory" validate:"omitempty,min=1,max=100"`
	PurposeDescription    *string    `json:"purposeDescription" validate:"omitempty,min=1,max=1000"`
	BusinessJustification *string    `json:"businessJustification" validate:"omitempty,max=1000"`
	DepartureAt           *time.Time `json:"departureAt"`
	ReturnAt              *time.Time `json:"returnAt"`
	IsRoundTrip           *bool      `json:"isRoundTrip"`
	VehicleType           *string    `json:"vehicleType" validate:"omitempty,max=50"`
	PassengerCount        *int       `json:"passengerCount" validate:"omitempty,gte=1,lte=50"`
	RequiresAC            *bool      `json:"requiresAc"`
	LuggageRequirement    *string    `json:"luggageRequirement" validate:"omitempty,max=255"`
	Priority              *string    `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	EstimatedCost         *float64   `json:"estimatedCost" validate:"omitempty,gte=0"`
	Status                *string    `json:"status" validate:"omitempty,oneof=Cancelled"`
}

func checkReturn(departure time.Time, ret *time.Time) error {
	if ret != nil && !ret.After(departure) {
		return errors.NewValidationFieldError("returnAt", "returnAt must be after departureAt", errors.ErrCodeValidationFailed)
	}
	return nil
}

type ListFilter struct {
	Search      string
	Status      string
	Priority    string
	RequesterID string
	Paging      paging.Params
}

// Validate normalizes status and priority to their canonical spelling.
func (f *ListFilter) Validate() error {
	f.Search = strings.TrimSpace(f.Search)
	if f.Status != "" {
		canonical, ok := canonicalize(f.Status, statuses)
		if !ok || !fsm.TripRequest.Known(canonical) {
			return errors.NewValidationFieldError("status", "status must be one of ["+strings.Join(statuses, " ")+"]", errors.ErrCodeInvalidStatus)
		}
		f.Status = canonical
	}
	if f.Priority != "" {
		canonical, ok := canonicalize(f.Priority, priorities)
		if !ok {
			return errors.NewValidationFieldError("priority", "priority must be one of ["+strings.Join(priorities, " ")+"]", errors.ErrCodeValidationFailed)
		}
		f.Priority = canonical
	}
	return nil
}

func canonicalize(v string, allowed []string) (string, bool) {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a, true
		}
	}
	return "", false
}
