package approval

import (
	"time"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
)

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// ApprovalStep is one level of a trip request's approval chain. Immutable once it leaves Pending.
type ApprovalStep struct {
	datamodel.Model
	TripRequestID string     `json:"tripRequestId" gorm:"column:trip_request_id;not null;uniqueIndex:idx_approval_steps_trip_level"`
	ApprovalLevel int        `json:"approvalLevel" gorm:"column:approval_level;not null;uniqueIndex:idx_approval_steps_trip_level"`
	ApproverID    *string    `json:"approverId,omitempty" gorm:"column:approver_id"`
	ApproverRole  string     `json:"approverRole" gorm:"column:approver_role"`
	Status        string     `json:"status" gorm:"column:status;not null;default:Pending"`
	Comments      *string    `json:"comments,omitempty" gorm:"column:comments"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty" gorm:"column:decided_at"`
}

func (ApprovalStep) TableName() string {
	return "approval_steps"
}
