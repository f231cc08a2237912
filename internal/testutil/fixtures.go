package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
)

func short() string {
	return uuid.NewString()[:8]
}

func CreateUser(db *gorm.DB, firstName, lastName, role string) *user.User {
	u := &user.User{
		Email:        fmt.Sprintf("%s.%s@example.com", firstName, short()),
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	must(db.Create(u).Error)
	return u
}

func CreateVendor(db *gorm.DB, name string) *fleet.Vendor {
	v := &fleet.Vendor{Name: name, IsActive: true}
	must(db.Create(v).Error)
	return v
}

func CreateVehicle(db *gorm.DB, vendorID, registration, status string) *fleet.Vehicle {
	if status == "" {
		status = fleet.OperationalStatusActive
	}
	v := &fleet.Vehicle{
		VendorID:           vendorID,
		RegistrationNumber: registration,
		Make:               "Toyota",
		ModelName:          "Prius",
		VehicleType:        "Sedan",
		SeatingCapacity:    4,
		HasAC:              true,
		OperationalStatus:  status,
	}
	must(db.Create(v).Error)
	return v
}

func CreateDriver(db *gorm.DB, vendorID, firstName, lastName string) *fleet.Driver {
	d := &fleet.Driver{
		VendorID:      vendorID,
		FirstName:     firstName,
		LastName:      lastName,
		LicenseNumber: "LIC-" + short(),
		IsActive:      true,
	}
	must(db.Create(d).Error)
	return d
}

func CreateTripRequest(db *gorm.DB, requesterID, status string) *trip.TripRequest {
	t := &trip.TripRequest{
		RequestNumber:      "TR-" + time.Now().UTC().Format("20060102") + "-" + short(),
		RequesterID:        requesterID,
		FromAddress:        "Head Office",
		ToAddress:          "Airport",
		PurposeCategory:    "Client Meeting",
		PurposeDescription: "Quarterly review",
		DepartureAt:        time.Now().UTC().Add(24 * time.Hour),
		PassengerCount:     1,
		Priority:           trip.PriorityMedium,
		Status:             status,
		Currency:           trip.DefaultCurrency,
		ApprovalRequired:   true,
	}
	must(db.Create(t).Error)
	return t
}

func CreateAssignment(db *gorm.DB, tripRequestID, vehicleID, driverID, status string) *assignment.Assignment {
	a := &assignment.Assignment{
		TripRequestID:      tripRequestID,
		VehicleID:          vehicleID,
		DriverID:           driverID,
		Status:             status,
		ScheduledDeparture: time.Now().UTC().Add(24 * time.Hour),
		AssignedBy:         "dispatcher",
	}
	must(db.Create(a).Error)
	return a
}

// CreateTripCost inserts a Draft cost whose total is the given amount.
func CreateTripCost(db *gorm.DB, assignmentID string, total float64, createdAt time.Time) *tripcost.TripCost {
	amount := decimal.NewFromFloat(total)
	c := &tripcost.TripCost{
		AssignmentID:  assignmentID,
		BaseFare:      amount,
		TotalCost:     amount,
		Currency:      trip.DefaultCurrency,
		PaymentStatus: tripcost.PaymentStatusDraft,
		CreatedBy:     "finance",
	}
	c.CreatedAt = createdAt
	c.UpdatedAt = createdAt
	must(db.Create(c).Error)
	return c
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
