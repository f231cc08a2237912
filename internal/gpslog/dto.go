package gpslog

import (
	"strings"
	"time"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	gpslogDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/gpslog"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

// Status filters accepted by Query and Export.
const (
	FilterEmergency   = "emergency"
	FilterMaintenance = "maintenance"
	FilterOffline     = "offline"
	FilterActive      = "active"
	FilterIdle        = "idle"
)

var filterStatuses = []string{FilterEmergency, FilterMaintenance, FilterOffline, FilterActive, FilterIdle}

type QueryFilter struct {
	SearchTerm string        `json:"searchTerm"`
	Status     string        `json:"status"`
	VehicleID  string        `json:"vehicleId" validate:"omitempty,uuid"`
	DriverID   string        `json:"driverId" validate:"omitempty,uuid"`
	Paging     paging.Params `json:"-"`
}

func (f *QueryFilter) Validate() error {
	f.SearchTerm = strings.TrimSpace(f.SearchTerm)
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	if f.Status != "" {
		known := false
		for _, s := range filterStatuses {
			if f.Status == s {
				known = true
				break
			}
		}
		if !known {
			return errors.NewValidationFieldError("status", "status must be one of ["+strings.Join(filterStatuses, " ")+"]", errors.ErrCodeInvalidStatus)
		}
	}
	return validation.Struct(f)
}

// PingDTO is one device report, as received over MQTT.
type PingDTO struct {
	VehicleID       string    `json:"vehicleId" validate:"required,uuid"`
	DriverID        *string   `json:"driverId" validate:"omitempty,uuid"`
	AssignmentID    *string   `json:"assignmentId" validate:"omitempty,uuid"`
	Latitude        float64   `json:"latitude" validate:"latitude"`
	Longitude       float64   `json:"longitude" validate:"longitude"`
	Heading         *float64  `json:"heading" validate:"omitempty,gte=0,lt=360"`
	Accuracy        *float64  `json:"accuracy" validate:"omitempty,gte=0"`
	Altitude        *float64  `json:"altitude"`
	Speed           float64   `json:"speed" validate:"gte=0"`
	Ignition        string    `json:"ignition" validate:"required,oneof=On Off"`
	PanicButton     bool      `json:"panicButton"`
	BatteryLevel    *float64  `json:"batteryLevel" validate:"omitempty,gte=0,lte=100"`
	SignalStrength  *int      `json:"signalStrength"`
	GeofenceStatus  *string   `json:"geofenceStatus" validate:"omitempty,max=50"`
	SpeedLimit      *float64  `json:"speedLimit" validate:"omitempty,gt=0"`
	ViolationCount  int       `json:"violationCount" validate:"gte=0"`
	DeviceTimestamp time.Time `json:"deviceTimestamp" validate:"required"`
}

// Normalize accepts any casing of the ignition state.
func (p *PingDTO) Normalize() {
	switch {
	case strings.EqualFold(p.Ignition, gpslogDatamodel.IgnitionOn):
		p.Ignition = gpslogDatamodel.IgnitionOn
	case strings.EqualFold(p.Ignition, gpslogDatamodel.IgnitionOff):
		p.Ignition = gpslogDatamodel.IgnitionOff
	}
}
