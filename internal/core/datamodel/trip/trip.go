package trip

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
)

const (
	StatusPending    = "Pending"
	StatusApproved   = "Approved"
	StatusRejected   = "Rejected"
	StatusCancelled  = "Cancelled"
	StatusAssigned   = "Assigned"
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

const DefaultCurrency = "LKR"

type TripRequest struct {
	datamodel.Model
	RequestNumber         string           `json:"requestNumber" gorm:"column:request_number;uniqueIndex;not null"`
	RequesterID           string           `json:"requesterId" gorm:"column:requester_id;index;not null"`
	FromAddress           string           `json:"fromAddress" gorm:"column:from_address;not null"`
	FromLatitude          *float64         `json:"fromLatitude,omitempty" gorm:"column:from_latitude"`
	FromLongitude         *float64         `json:"fromLongitude,omitempty" gorm:"column:from_longitude"`
	ToAddress             string           `json:"toAddress" gorm:"column:to_address;not null"`
	ToLatitude            *float64         `json:"toLatitude,omitempty" gorm:"column:to_latitude"`
	ToLongitude           *float64         `json:"toLongitude,omitempty" gorm:"column:to_longitude"`
	PurposeCategory       string           `json:"purposeCategory" gorm:"column:purpose_category;not null"`
	PurposeDescription    string           `json:"purposeDescription" gorm:"column:purpose_description;not null"`
	BusinessJustification *string          `json:"businessJustification,omitempty" gorm:"column:business_justification"`
	DepartureAt           time.Time        `json:"departureAt" gorm:"column:departure_at;not null"`
	ReturnAt              *time.Time       `json:"returnAt,omitempty" gorm:"column:return_at"`
	IsRoundTrip           bool             `json:"isRoundTrip" gorm:"column:is_round_trip"`
	VehicleType           string           `json:"vehicleType" gorm:"column:vehicle_type"`
	PassengerCount        int              `json:"passengerCount" gorm:"column:passenger_count;not null;default:1"`
	RequiresAC            bool             `json:"requiresAc" gorm:"column:requires_ac"`
	LuggageRequirement    *string          `json:"luggageRequirement,omitempty" gorm:"column:luggage_requirement"`
	Priority              string           `json:"priority" gorm:"column:priority;not null;default:Medium"`
	Status                string           `json:"status" gorm:"column:status;index;not null;default:Pending"`
	EstimatedCost         *decimal.Decimal `json:"estimatedCost,omitempty" gorm:"column:estimated_cost;type:numeric(12,2)"`
	Currency              string           `json:"currency" gorm:"column:currency;not null;default:LKR"`
	ApprovalRequired      bool             `json:"approvalRequired" gorm:"column:approval_required"`

	Requester     *user.User              `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	ApprovalSteps []approval.ApprovalStep `json:"approvalSteps,omitempty" gorm:"foreignKey:TripRequestID"`
}

func (TripRequest) TableName() string {
	return "trip_requests"
}
