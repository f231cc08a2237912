package fleet

import (
	"time"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
)

const (
	OperationalStatusActive      = "Active"
	OperationalStatusMaintenance = "Maintenance"
	OperationalStatusInactive    = "Inactive"
)

// Vendor is a contracted cab service. Invoices are issued per vendor.
type Vendor struct {
	datamodel.Model
	Name         string `json:"name" gorm:"column:name;uniqueIndex;not null"`
	ContactEmail string `json:"contactEmail,omitempty" gorm:"column:contact_email"`
	ContactPhone string `json:"contactPhone,omitempty" gorm:"column:contact_phone"`
	IsActive     bool   `json:"isActive" gorm:"column:is_active;default:true"`
}

func (Vendor) TableName() string {
	return "cab_services"
}

type Vehicle struct {
	datamodel.Model
	VendorID           string `json:"vendorId" gorm:"column:vendor_id;index;not null"`
	RegistrationNumber string `json:"registrationNumber" gorm:"column:registration_number;uniqueIndex;not null"`
	Make               string `json:"make,omitempty" gorm:"column:make"`
	ModelName          string `json:"model,omitempty" gorm:"column:model"`
	VehicleType        string `json:"vehicleType" gorm:"column:vehicle_type"`
	SeatingCapacity    int    `json:"seatingCapacity" gorm:"column:seating_capacity"`
	HasAC              bool   `json:"hasAc" gorm:"column:has_ac;default:true"`
	OperationalStatus  string `json:"operationalStatus" gorm:"column:operational_status;not null;default:Active"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

type Driver struct {
	datamodel.Model
	VendorID      string `json:"vendorId" gorm:"column:vendor_id;index"`
	FirstName     string `json:"firstName" gorm:"column:first_name;not null"`
	LastName      string `json:"lastName" gorm:"column:last_name"`
	Phone         string `json:"phone,omitempty" gorm:"column:phone"`
	LicenseNumber string `json:"licenseNumber" gorm:"column:license_number;uniqueIndex"`
	IsActive      bool   `json:"isActive" gorm:"column:is_active;default:true"`
}

func (Driver) TableName() string {
	return "drivers"
}

func (d Driver) FullName() string {
	if d.LastName == "" {
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

type GPSDevice struct {
	datamodel.Model
	VehicleID       string     `json:"vehicleId" gorm:"column:vehicle_id;index;not null" db:"vehicle_id"`
	DeviceSerial    string     `json:"deviceSerial" gorm:"column:device_serial;uniqueIndex;not null" db:"device_serial"`
	IMEI            *string    `json:"imei,omitempty" gorm:"column:imei" db:"imei"`
	DeviceModel     *string    `json:"deviceModel,omitempty" gorm:"column:device_model" db:"device_model"`
	FirmwareVersion *string    `json:"firmwareVersion,omitempty" gorm:"column:firmware_version" db:"firmware_version"`
	InstalledAt     *time.Time `json:"installedAt,omitempty" gorm:"column:installed_at" db:"installed_at"`
}

func (GPSDevice) TableName() string {
	return "gps_devices"
}
