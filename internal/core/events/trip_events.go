package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeApprovalDecided         = "approval.decided"
	EventTypeAssignmentStatusChanged = "assignment.status_changed"
	EventTypeInvoiceGenerated        = "invoice.generated"
	EventTypeInvoicePaid             = "invoice.paid"
)

// AllTypes is every domain event type the service emits.
var AllTypes = []string{
	EventTypeApprovalDecided,
	EventTypeAssignmentStatusChanged,
	EventTypeInvoiceGenerated,
	EventTypeInvoicePaid,
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type ApprovalDecidedEvent struct {
	BaseEvent
	StepID        string `json:"stepId"`
	TripRequestID string `json:"tripRequestId"`
	Level         int    `json:"level"`
	Decision      string `json:"decision"`
	FinalStatus   string `json:"finalStatus"`
	ApproverID    string `json:"approverId"`
}

func NewApprovalDecidedEvent(stepID, tripRequestID string, level int, decision, finalStatus, approverID string) *ApprovalDecidedEvent {
	return &ApprovalDecidedEvent{
		BaseEvent: newBase(EventTypeApprovalDecided, map[string]interface{}{
			"step_id":         stepID,
			"trip_request_id": tripRequestID,
			"level":           level,
			"decision":        decision,
			"final_status":    finalStatus,
			"approver_id":     approverID,
		}),
		StepID:        stepID,
		TripRequestID: tripRequestID,
		Level:         level,
		Decision:      decision,
		FinalStatus:   finalStatus,
		ApproverID:    approverID,
	}
}

type AssignmentStatusChangedEvent struct {
	BaseEvent
	AssignmentID  string `json:"assignmentId"`
	TripRequestID string `json:"tripRequestId"`
	From          string `json:"from"`
	To            string `json:"to"`
}

func NewAssignmentStatusChangedEvent(assignmentID, tripRequestID, from, to string) *AssignmentStatusChangedEvent {
	return &AssignmentStatusChangedEvent{
		BaseEvent: newBase(EventTypeAssignmentStatusChanged, map[string]interface{}{
			"assignment_id":   assignmentID,
			"trip_request_id": tripRequestID,
			"from":            from,
			"to":              to,
		}),
		AssignmentID:  assignmentID,
		TripRequestID: tripRequestID,
		From:          from,
		To:            to,
	}
}

type InvoiceGeneratedEvent struct {
	BaseEvent
	InvoiceID     string  `json:"invoiceId"`
	InvoiceNumber string  `json:"invoiceNumber"`
	VendorID      string  `json:"vendorId"`
	BillingMonth  string  `json:"billingMonth"`
	TripCount     int     `json:"tripCount"`
	TotalAmount   float64 `json:"totalAmount"`
	Status        string  `json:"status"`
}

func NewInvoiceGeneratedEvent(invoiceID, number, vendorID, month string, tripCount int, total float64, status string) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseEvent: newBase(EventTypeInvoiceGenerated, map[string]interface{}{
			"invoice_id":     invoiceID,
			"invoice_number": number,
			"vendor_id":      vendorID,
			"billing_month":  month,
			"trip_count":     tripCount,
			"total_amount":   total,
			"status":         status,
		}),
		InvoiceID:     invoiceID,
		InvoiceNumber: number,
		VendorID:      vendorID,
		BillingMonth:  month,
		TripCount:     tripCount,
		TotalAmount:   total,
		Status:        status,
	}
}

type InvoicePaidEvent struct {
	BaseEvent
	InvoiceID      string    `json:"invoiceId"`
	InvoiceNumber  string    `json:"invoiceNumber"`
	PaidAt         time.Time `json:"paidAt"`
	TripCostsPaid  int64     `json:"tripCostsPaid"`
	TransactionID  string    `json:"transactionId,omitempty"`
	PreviousStatus string    `json:"previousStatus"`
}

func NewInvoicePaidEvent(invoiceID, number string, paidAt time.Time, tripCostsPaid int64, transactionID, previous string) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseEvent: newBase(EventTypeInvoicePaid, map[string]interface{}{
			"invoice_id":      invoiceID,
			"invoice_number":  number,
			"paid_at":         paidAt,
			"trip_costs_paid": tripCostsPaid,
			"transaction_id":  transactionID,
			"previous_status": previous,
		}),
		InvoiceID:      invoiceID,
		InvoiceNumber:  number,
		PaidAt:         paidAt,
		TripCostsPaid:  tripCostsPaid,
		TransactionID:  transactionID,
		PreviousStatus: previous,
	}
}

// NewDebugEvent builds an ad-hoc event for the CLI publish command.
func NewDebugEvent(eventType string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return newBase(eventType, data)
}
