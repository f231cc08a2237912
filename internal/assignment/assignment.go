// Package assignment binds approved trip requests to a vehicle and driver and
// walks the assignment through its dispatch lifecycle.
package assignment

import (
	"gorm.io/datatypes"

	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
)

// tripPromotion is the trip request status reached when an assignment enters a status.
var tripPromotion = map[string]string{
	assignmentDatamodel.StatusAssigned:  tripDatamodel.StatusAssigned,
	assignmentDatamodel.StatusStarted:   tripDatamodel.StatusInProgress,
	assignmentDatamodel.StatusCompleted: tripDatamodel.StatusCompleted,
}

// VehicleSnapshot is the denormalized copy stored on the assignment at creation.
func VehicleSnapshot(v *fleet.Vehicle) datatypes.JSONMap {
	return datatypes.JSONMap{
		"registrationNumber": v.RegistrationNumber,
		"make":               v.Make,
		"model":              v.ModelName,
		"vehicleType":        v.VehicleType,
		"seatingCapacity":    v.SeatingCapacity,
		"hasAc":              v.HasAC,
	}
}

func DriverSnapshot(d *fleet.Driver) datatypes.JSONMap {
	return datatypes.JSONMap{
		"name":          d.FullName(),
		"phone":         d.Phone,
		"licenseNumber": d.LicenseNumber,
	}
}
