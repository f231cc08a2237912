package approval

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dulmini1119/tms-sub001/internal"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
)

// Summary is the read-time aggregate of a trip request's approval chain.
type Summary struct {
	FinalStatus  string
	CurrentLevel int
	Steps        []approvalDatamodel.ApprovalStep
}

// Summarize orders steps by ascending level and derives the aggregate. The input is not modified.
//
// Rejected wins over everything; Approved needs every step approved; anything else is Pending.
// The current level is the lowest level not yet approved, or the highest level once all are.
func Summarize(steps []approvalDatamodel.ApprovalStep) Summary {
	sorted := make([]approvalDatamodel.ApprovalStep, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ApprovalLevel < sorted[j].ApprovalLevel
	})

	s := Summary{FinalStatus: approvalDatamodel.StatusPending, Steps: sorted}
	if len(sorted) == 0 {
		return s
	}

	allApproved := true
	for _, step := range sorted {
		switch step.Status {
		case approvalDatamodel.StatusRejected:
			s.FinalStatus = approvalDatamodel.StatusRejected
			allApproved = false
		case approvalDatamodel.StatusApproved:
		default:
			allApproved = false
		}
		if step.Status != approvalDatamodel.StatusApproved && s.CurrentLevel == 0 {
			s.CurrentLevel = step.ApprovalLevel
		}
	}

	if allApproved {
		s.FinalStatus = approvalDatamodel.StatusApproved
		s.CurrentLevel = sorted[len(sorted)-1].ApprovalLevel
	}
	return s
}

// BuildChain creates the Pending steps for a new trip request, levels ascending.
func BuildChain(tripRequestID string, levels []internal.ApprovalLevel) []approvalDatamodel.ApprovalStep {
	ordered := make([]internal.ApprovalLevel, len(levels))
	copy(ordered, levels)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Level < ordered[j].Level })

	steps := make([]approvalDatamodel.ApprovalStep, 0, len(ordered))
	for _, l := range ordered {
		steps = append(steps, approvalDatamodel.ApprovalStep{
			TripRequestID: tripRequestID,
			ApprovalLevel: l.Level,
			ApproverRole:  l.Role,
			Status:        approvalDatamodel.StatusPending,
		})
	}
	return steps
}

type StepView struct {
	ID           string     `json:"id"`
	Level        int        `json:"approvalLevel"`
	ApproverID   *string    `json:"approverId"`
	ApproverRole string     `json:"approverRole"`
	Status       string     `json:"status"`
	Comments     *string    `json:"comments"`
	DecidedAt    *time.Time `json:"decidedAt"`
}

type RequesterView struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

type TripSummary struct {
	ID                 string           `json:"id"`
	RequestNumber      string           `json:"requestNumber"`
	Requester          *RequesterView   `json:"requester,omitempty"`
	FromAddress        string           `json:"fromAddress"`
	ToAddress          string           `json:"toAddress"`
	PurposeCategory    string           `json:"purposeCategory"`
	PurposeDescription string           `json:"purposeDescription"`
	DepartureAt        time.Time        `json:"departureAt"`
	Priority           string           `json:"priority"`
	Status             string           `json:"status"`
	EstimatedCost      *decimal.Decimal `json:"estimatedCost,omitempty"`
	Currency           string           `json:"currency"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// WorkflowView is one entry of the approval list and the detail response.
type WorkflowView struct {
	TripRequest     TripSummary `json:"tripRequest"`
	CurrentLevel    int         `json:"currentLevel"`
	ApprovalHistory []StepView  `json:"approvalHistory"`
	FinalStatus     string      `json:"finalStatus"`
}

// DecisionResult is returned after a step decision.
type DecisionResult struct {
	Step         StepView `json:"step"`
	FinalStatus  string   `json:"finalStatus"`
	CurrentLevel int      `json:"currentLevel"`
	TripStatus   string   `json:"tripStatus"`
}

func ToStepView(s approvalDatamodel.ApprovalStep) StepView {
	return StepView{
		ID:           s.ID,
		Level:        s.ApprovalLevel,
		ApproverID:   s.ApproverID,
		ApproverRole: s.ApproverRole,
		Status:       s.Status,
		Comments:     s.Comments,
		DecidedAt:    s.DecidedAt,
	}
}

func ToWorkflowView(t tripDatamodel.TripRequest) WorkflowView {
	summary := Summarize(t.ApprovalSteps)
	history := make([]StepView, 0, len(summary.Steps))
	for _, s := range summary.Steps {
		history = append(history, ToStepView(s))
	}

	ts := TripSummary{
		ID:                 t.ID,
		RequestNumber:      t.RequestNumber,
		FromAddress:        t.FromAddress,
		ToAddress:          t.ToAddress,
		PurposeCategory:    t.PurposeCategory,
		PurposeDescription: t.PurposeDescription,
		DepartureAt:        t.DepartureAt,
		Priority:           t.Priority,
		Status:             t.Status,
		EstimatedCost:      t.EstimatedCost,
		Currency:           t.Currency,
		CreatedAt:          t.CreatedAt,
	}
	if t.Requester != nil {
		ts.Requester = &RequesterView{
			ID:         t.Requester.ID,
			FirstName:  t.Requester.FirstName,
			LastName:   t.Requester.LastName,
			Email:      t.Requester.Email,
			Department: t.Requester.Department,
		}
	}

	final := summary.FinalStatus
	if len(summary.Steps) == 0 {
		// requests auto-approved at creation carry no chain
		final = t.Status
	}

	return WorkflowView{
		TripRequest:     ts,
		CurrentLevel:    summary.CurrentLevel,
		ApprovalHistory: history,
		FinalStatus:     final,
	}
}
