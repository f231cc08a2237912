// Package gpslog serves the GPS read model: filtered log queries, trip replays
// with route aggregates, CSV export and append-only ping ingest.
package gpslog

import (
	"math"
	"time"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	gpslogDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/gpslog"
	"github.com/dulmini1119/tms-sub001/pkg/geo"
)

// Live statuses derived from a ping and its vehicle.
const (
	StatusEmergency   = "Emergency"
	StatusMaintenance = "Maintenance"
	StatusActive      = "Active"
	StatusIdle        = "Idle"
	StatusOffline     = "Offline"
)

// MovingSpeedKmh is the speed above which an ignition-on vehicle counts as Active.
const MovingSpeedKmh = 5

// Row is a log joined with the vehicle, driver and trip request it references.
type Row struct {
	gpslogDatamodel.GPSLog
	RegistrationNumber *string `db:"registration_number"`
	OperationalStatus  *string `db:"operational_status"`
	DriverFirstName    *string `db:"driver_first_name"`
	DriverLastName     *string `db:"driver_last_name"`
	TripRequestNumber  *string `db:"trip_request_number"`
}

type LogView struct {
	ID                string    `json:"id"`
	VehicleID         string    `json:"vehicleId"`
	VehicleNumber     string    `json:"vehicleNumber"`
	DriverID          *string   `json:"driverId,omitempty"`
	DriverName        string    `json:"driverName,omitempty"`
	AssignmentID      *string   `json:"assignmentId,omitempty"`
	TripRequestNumber string    `json:"tripRequestNumber,omitempty"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Speed             float64   `json:"speed"`
	Heading           *float64  `json:"heading,omitempty"`
	Ignition          string    `json:"ignition"`
	PanicButton       bool      `json:"panicButton"`
	BatteryLevel      *float64  `json:"batteryLevel,omitempty"`
	SignalStrength    *int      `json:"signalStrength,omitempty"`
	GeofenceStatus    *string   `json:"geofenceStatus,omitempty"`
	SpeedLimit        *float64  `json:"speedLimit,omitempty"`
	IsSpeedViolation  bool      `json:"isSpeedViolation"`
	Status            string    `json:"status"`
	DeviceTimestamp   time.Time `json:"deviceTimestamp"`
	ServerTimestamp   time.Time `json:"serverTimestamp"`
}

type LogDetail struct {
	LogView
	Device *fleet.GPSDevice `json:"device"`
}

type RoutePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Heading   *float64  `json:"heading,omitempty"`
}

type TripReplay struct {
	AssignmentID    string       `json:"assignmentId"`
	StartedAt       time.Time    `json:"startedAt"`
	EndedAt         time.Time    `json:"endedAt"`
	TotalDistanceKm float64      `json:"totalDistanceKm"`
	DurationMinutes int          `json:"durationMinutes"`
	AverageSpeed    int          `json:"averageSpeed"`
	MaxSpeed        int          `json:"maxSpeed"`
	PointCount      int          `json:"pointCount"`
	Truncated       bool         `json:"truncated"`
	Route           []RoutePoint `json:"route"`
}

// LiveStatus applies the fixed precedence: panic, maintenance, moving, ignition on, offline.
func LiveStatus(panicButton bool, operationalStatus, ignition string, speed float64) string {
	switch {
	case panicButton:
		return StatusEmergency
	case operationalStatus == fleet.OperationalStatusMaintenance:
		return StatusMaintenance
	case ignition == gpslogDatamodel.IgnitionOn && speed > MovingSpeedKmh:
		return StatusActive
	case ignition == gpslogDatamodel.IgnitionOn:
		return StatusIdle
	default:
		return StatusOffline
	}
}

func (r Row) View() LogView {
	v := LogView{
		ID:               r.ID,
		VehicleID:        r.VehicleID,
		VehicleNumber:    deref(r.RegistrationNumber),
		DriverID:         r.DriverID,
		AssignmentID:     r.AssignmentID,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Speed:            r.Speed,
		Heading:          r.Heading,
		Ignition:         r.Ignition,
		PanicButton:      r.PanicButton,
		BatteryLevel:     r.BatteryLevel,
		SignalStrength:   r.SignalStrength,
		GeofenceStatus:   r.GeofenceStatus,
		SpeedLimit:       r.SpeedLimit,
		IsSpeedViolation: r.IsSpeedViolation,
		Status:           LiveStatus(r.PanicButton, deref(r.OperationalStatus), r.Ignition, r.Speed),
		DeviceTimestamp:  r.DeviceTimestamp,
		ServerTimestamp:  r.ServerTimestamp,
	}
	if r.DriverFirstName != nil {
		v.DriverName = fleet.Driver{FirstName: *r.DriverFirstName, LastName: deref(r.DriverLastName)}.FullName()
	}
	v.TripRequestNumber = deref(r.TripRequestNumber)
	return v
}

// BuildReplay aggregates logs already sorted by ascending device timestamp.
func BuildReplay(assignmentID string, logs []gpslogDatamodel.GPSLog) *TripReplay {
	replay := &TripReplay{
		AssignmentID: assignmentID,
		PointCount:   len(logs),
		Route:        make([]RoutePoint, 0, len(logs)),
	}
	if len(logs) == 0 {
		return replay
	}

	points := make([]geo.Point, 0, len(logs))
	var (
		sum      float64
		moving   int
		topSpeed float64
	)
	for _, l := range logs {
		points = append(points, geo.Point{Latitude: l.Latitude, Longitude: l.Longitude})
		replay.Route = append(replay.Route, RoutePoint{
			Timestamp: l.DeviceTimestamp,
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Speed:     l.Speed,
			Heading:   l.Heading,
		})
		if l.Speed > 0 {
			sum += l.Speed
			moving++
		}
		if l.Speed > topSpeed {
			topSpeed = l.Speed
		}
	}

	replay.StartedAt = logs[0].DeviceTimestamp
	replay.EndedAt = logs[len(logs)-1].DeviceTimestamp
	replay.TotalDistanceKm = geo.Round(geo.RouteDistanceKm(points), 2)
	replay.DurationMinutes = int(replay.EndedAt.Sub(replay.StartedAt) / time.Minute)
	if moving > 0 {
		replay.AverageSpeed = int(math.Round(sum / float64(moving)))
	}
	replay.MaxSpeed = int(math.Round(topSpeed))
	return replay
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
