package approval

import (
	"strings"

	errors "github.com/dulmini1119/tms-sub001/internal"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type ListFilter struct {
	SearchTerm string
	Status     string
	Paging     paging.Params
}

// Validate normalizes the status filter to its canonical spelling.
func (f *ListFilter) Validate() error {
	if f.Status == "" {
		return nil
	}
	for _, s := range []string{approvalDatamodel.StatusPending, approvalDatamodel.StatusApproved, approvalDatamodel.StatusRejected} {
		if strings.EqualFold(f.Status, s) {
			f.Status = s
			return nil
		}
	}
	return errors.NewValidationFieldError("status", "status must be one of [Pending Approved Rejected]", errors.ErrCodeInvalidStatus)
}

type DecideStepDTO struct {
	Status   string  `json:"status" validate:"required,oneof=Approved Rejected"`
	Comments *string `json:"comments" validate:"omitempty,max=1000"`
}

type AddStepDTO struct {
	ApprovalLevel int     `json:"approvalLevel" validate:"required,gte=1,lte=20"`
	ApproverRole  string  `json:"approverRole" validate:"required,max=100"`
	ApproverID    *string `json:"approverId" validate:"omitempty,uuid"`
}
