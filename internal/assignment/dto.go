package assignment

import (
	"strings"
	"time"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/fsm"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type CreateAssignmentDTO struct {
	TripRequestID      string                 `json:"tripRequestId" validate:"required,uuid"`
	VehicleID          string                 `json:"vehicleId" validate:"required,uuid"`
	DriverID           string                 `json:"driverId" validate:"required,uuid"`
	Status             string                 `json:"status" validate:"omitempty,max=20"`
	ScheduledDeparture time.Time              `json:"scheduledDeparture" validate:"required"`
	ScheduledReturn    *time.Time             `json:"scheduledReturn"`
	Notes              *string                `json:"notes" validate:"omitempty,max=1000"`
	VehicleDetails     map[string]interface{} `json:"vehicleDetails"`
	DriverDetails      map[string]interface{} `json:"driverDetails"`
}

// UpdateAssignmentDTO is a partial update. Status moves go through the assignment state machine.
type UpdateAssignmentDTO struct {
	Status             *string                `json:"status" validate:"omitempty,oneof=Assigned Accepted Rejected Started Completed Cancelled"`
	ScheduledDeparture *time.Time             `json:"scheduledDeparture"`
	ScheduledReturn    *time.Time             `json:"scheduledReturn"`
	Notes              *string                `json:"notes" validate:"omitempty,max=1000"`
	VehicleDetails     map[string]interface{} `json:"vehicleDetails"`
	DriverDetails      map[string]interface{} `json:"driverDetails"`
}

func checkSchedule(departure time.Time, ret *time.Time) error {
	if ret != nil && !ret.After(departure) {
		return errors.NewValidationFieldError("scheduledReturn", "scheduledReturn must be after scheduledDeparture", errors.ErrCodeValidationFailed)
	}
	return nil
}

type ListFilter struct {
	Status        string
	TripRequestID string
	VehicleID     string
	DriverID      string
	Search        string
	Paging        paging.Params
}

func (f *ListFilter) Validate() error {
	f.Search = strings.TrimSpace(f.Search)
	if f.Status == "" {
		return nil
	}
	// accept any casing of a known status
	for _, s := range []string{"Assigned", "Accepted", "Rejected", "Started", "Completed", "Cancelled"} {
		if strings.EqualFold(f.Status, s) && fsm.Assignment.Known(s) {
			f.Status = s
			return nil
		}
	}
	return errors.NewValidationFieldError("status", "status must be one of [Assigned Accepted Rejected Started Completed Cancelled]", errors.ErrCodeInvalidStatus)
}
