package gpslog

import (
	"time"

	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
)

const (
	IgnitionOn  = "On"
	IgnitionOff = "Off"
)

// GPSLog is an append-only device ping. Rows are never updated after insertion.
type GPSLog struct {
	ID               string    `json:"id" gorm:"primaryKey;column:id" db:"id"`
	VehicleID        string    `json:"vehicleId" gorm:"column:vehicle_id;index;not null" db:"vehicle_id"`
	DriverID         *string   `json:"driverId,omitempty" gorm:"column:driver_id;index" db:"driver_id"`
	AssignmentID     *string   `json:"assignmentId,omitempty" gorm:"column:assignment_id;index" db:"assignment_id"`
	Latitude         float64   `json:"latitude" gorm:"column:latitude;not null" db:"latitude"`
	Longitude        float64   `json:"longitude" gorm:"column:longitude;not null" db:"longitude"`
	Heading          *float64  `json:"heading,omitempty" gorm:"column:heading" db:"heading"`
	Accuracy         *float64  `json:"accuracy,omitempty" gorm:"column:accuracy" db:"accuracy"`
	Altitude         *float64  `json:"altitude,omitempty" gorm:"column:altitude" db:"altitude"`
	Speed            float64   `json:"speed" gorm:"column:speed;not null" db:"speed"`
	Ignition         string    `json:"ignition" gorm:"column:ignition;not null" db:"ignition"`
	PanicButton      bool      `json:"panicButton" gorm:"column:panic_button;not null" db:"panic_button"`
	BatteryLevel     *float64  `json:"batteryLevel,omitempty" gorm:"column:battery_level" db:"battery_level"`
	SignalStrength   *int      `json:"signalStrength,omitempty" gorm:"column:signal_strength" db:"signal_strength"`
	GeofenceStatus   *string   `json:"geofenceStatus,omitempty" gorm:"column:geofence_status" db:"geofence_status"`
	SpeedLimit       *float64  `json:"speedLimit,omitempty" gorm:"column:speed_limit" db:"speed_limit"`
	IsSpeedViolation bool      `json:"isSpeedViolation" gorm:"column:is_speed_violation;not null" db:"is_speed_violation"`
	ViolationCount   int       `json:"violationCount" gorm:"column:violation_count;not null" db:"violation_count"`
	DeviceTimestamp  time.Time `json:"deviceTimestamp" gorm:"column:device_timestamp;index;not null" db:"device_timestamp"`
	ServerTimestamp  time.Time `json:"serverTimestamp" gorm:"column:server_timestamp;not null" db:"server_timestamp"`
}

func (GPSLog) TableName() string {
	return "gps_logs"
}

func (g *GPSLog) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = datamodel.NewID()
	}
	return nil
}
