package assignment

import (
	"time"

	"gorm.io/datatypes"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
)

const (
	StatusAssigned  = "Assigned"
	StatusAccepted  = "Accepted"
	StatusRejected  = "Rejected"
	StatusStarted   = "Started"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

type Assignment struct {
	datamodel.Model
	TripRequestID      string            `json:"tripRequestId" gorm:"column:trip_request_id;index;not null"`
	VehicleID          string            `json:"vehicleId" gorm:"column:vehicle_id;index;not null"`
	DriverID           string            `json:"driverId" gorm:"column:driver_id;index;not null"`
	Status             string            `json:"status" gorm:"column:status;not null;default:Assigned"`
	ScheduledDeparture time.Time         `json:"scheduledDeparture" gorm:"column:scheduled_departure;not null"`
	ScheduledReturn    *time.Time        `json:"scheduledReturn,omitempty" gorm:"column:scheduled_return"`
	ActualDeparture    *time.Time        `json:"actualDeparture,omitempty" gorm:"column:actual_departure"`
	ActualReturn       *time.Time        `json:"actualReturn,omitempty" gorm:"column:actual_return"`
	VehicleDetails     datatypes.JSONMap `json:"vehicleDetails,omitempty" gorm:"column:vehicle_details"`
	DriverDetails      datatypes.JSONMap `json:"driverDetails,omitempty" gorm:"column:driver_details"`
	Notes              *string           `json:"notes,omitempty" gorm:"column:notes"`
	AssignedBy         string            `json:"assignedBy" gorm:"column:assigned_by;not null"`

	TripRequest *trip.TripRequest `json:"tripRequest,omitempty" gorm:"foreignKey:TripRequestID"`
	Vehicle     *fleet.Vehicle    `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
	Driver      *fleet.Driver     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

func (Assignment) TableName() string {
	return "trip_assignments"
}
