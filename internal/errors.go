package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized      ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden         ErrorType = "FORBIDDEN"
	ErrorTypeConflict          ErrorType = "CONFLICT"
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"
	ErrorTypeInternal          ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"
	ErrCodeInvalidID          ErrorCode = "INVALID_ID"
	ErrCodeInvalidMonth       ErrorCode = "INVALID_MONTH"
	ErrCodeInvalidStatus      ErrorCode = "INVALID_STATUS_FILTER"

	ErrCodeTripRequestNotFound ErrorCode = "TRIP_REQUEST_NOT_FOUND"
	ErrCodeTripRequestLocked   ErrorCode = "TRIP_REQUEST_LOCKED"
	ErrCodeTripRequestInUse    ErrorCode = "TRIP_REQUEST_IN_USE"
	ErrCodeDuplicateRequest    ErrorCode = "DUPLICATE_REQUEST_NUMBER"

	ErrCodeApprovalStepNotFound ErrorCode = "APPROVAL_STEP_NOT_FOUND"
	ErrCodeApprovalProcessed    ErrorCode = "APPROVAL_ALREADY_PROCESSED"
	ErrCodeApprovalLevelExists  ErrorCode = "APPROVAL_LEVEL_EXISTS"
	ErrCodeApprovalClosed       ErrorCode = "APPROVAL_WORKFLOW_CLOSED"

	ErrCodeAssignmentNotFound ErrorCode = "ASSIGNMENT_NOT_FOUND"
	ErrCodeVehicleNotFound    ErrorCode = "VEHICLE_NOT_FOUND"
	ErrCodeDriverNotFound     ErrorCode = "DRIVER_NOT_FOUND"
	ErrCodeVendorNotFound     ErrorCode = "VENDOR_NOT_FOUND"

	ErrCodeGPSLogNotFound ErrorCode = "GPS_LOG_NOT_FOUND"
	ErrCodeReplayNotFound ErrorCode = "TRIP_REPLAY_NOT_FOUND"

	ErrCodeTripCostNotFound ErrorCode = "TRIP_COST_NOT_FOUND"
	ErrCodeTripCostExists   ErrorCode = "TRIP_COST_EXISTS"
	ErrCodeTripCostLocked   ErrorCode = "TRIP_COST_LOCKED"
	ErrCodeTripCostInvoiced ErrorCode = "TRIP_COST_ALREADY_INVOICED"
	ErrCodeTripCostPaid     ErrorCode = "TRIP_COST_ALREADY_PAID"

	ErrCodeInvoiceNotFound      ErrorCode = "INVOICE_NOT_FOUND"
	ErrCodeInvoiceNumberTaken   ErrorCode = "INVOICE_NUMBER_CONFLICT"
	ErrCodeInvoiceBatchConflict ErrorCode = "INVOICE_BATCH_CONFLICT"
	ErrCodeInvoiceStatusChanged ErrorCode = "INVOICE_STATUS_CHANGED"

	ErrCodeInvalidTransition ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodeUnauthorizedAccess ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInsufficientRole   ErrorCode = "INSUFFICIENT_ROLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
		messages := make([]string, len(validationErrors.Errors))
		for i, err := range validationErrors.Errors {
			messages[i] = err.Message
		}
		return strings.Join(messages, "; ")
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so sentinel errors compare equal to copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFieldErrors([]ValidationError{
		{Field: field, Message: message, Code: string(code)},
	})
}

func NewValidationFieldErrors(fieldErrors []ValidationError) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    ValidationErrors{Errors: fieldErrors},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInvalidTransitionError reports a status change the entity's state machine does not allow.
func NewInvalidTransitionError(entity, from, to string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidTransition,
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		StatusCode: http.StatusUnprocessableEntity,
		Details: map[string]string{
			"entity": entity,
			"from":   from,
			"to":     to,
		},
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrTripRequestNotFound = NewNotFoundError("Trip request not found", ErrCodeTripRequestNotFound)
	ErrTripRequestLocked   = NewForbiddenError("Only pending trip requests can be modified", ErrCodeTripRequestLocked)
	ErrTripRequestInUse    = NewForbiddenError("Trip request is referenced by an assignment", ErrCodeTripRequestInUse)
	ErrDuplicateRequest    = NewConflictError("Trip request number already exists", ErrCodeDuplicateRequest)

	ErrApprovalStepNotFound = NewNotFoundError("Approval step not found", ErrCodeApprovalStepNotFound)
	ErrApprovalProcessed    = NewConflictError("Approval step already processed", ErrCodeApprovalProcessed)
	ErrApprovalLevelExists  = NewConflictError("Approval level already exists for this trip request", ErrCodeApprovalLevelExists)
	ErrApprovalClosed       = NewForbiddenError("Approval workflow is closed for this trip request", ErrCodeApprovalClosed)

	ErrAssignmentNotFound = NewNotFoundError("Assignment not found", ErrCodeAssignmentNotFound)
	ErrVehicleNotFound    = NewNotFoundError("Vehicle not found", ErrCodeVehicleNotFound)
	ErrDriverNotFound     = NewNotFoundError("Driver not found", ErrCodeDriverNotFound)
	ErrVendorNotFound     = NewNotFoundError("Cab service not found", ErrCodeVendorNotFound)

	ErrGPSLogNotFound = NewNotFoundError("GPS log not found", ErrCodeGPSLogNotFound)
	ErrReplayNotFound = NewNotFoundError("No GPS data recorded for this trip", ErrCodeReplayNotFound)

	ErrTripCostNotFound = NewNotFoundError("Trip cost not found", ErrCodeTripCostNotFound)
	ErrTripCostExists   = NewConflictError("A trip cost already exists for this assignment", ErrCodeTripCostExists)
	ErrTripCostLocked   = NewForbiddenError("Trip cost is locked for editing", ErrCodeTripCostLocked)
	ErrTripCostInvoiced = NewConflictError("Trip cost already has an invoice", ErrCodeTripCostInvoiced)
	ErrTripCostPaid     = NewConflictError("Trip cost is already paid", ErrCodeTripCostPaid)

	ErrInvoiceNotFound      = NewNotFoundError("Invoice not found", ErrCodeInvoiceNotFound)
	ErrInvoiceNumberTaken   = NewConflictError("Invoice number already exists", ErrCodeInvoiceNumberTaken)
	ErrInvoiceBatchConflict = NewConflictError("Trip costs were invoiced concurrently", ErrCodeInvoiceBatchConflict)
	ErrInvoiceStatusChanged = NewConflictError("Invoice status changed concurrently", ErrCodeInvoiceStatusChanged)

	ErrUnauthorizedAccess = NewUnauthorizedError("Authentication required", ErrCodeUnauthorizedAccess)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrInsufficientRole   = NewForbiddenError("Insufficient role for this operation", ErrCodeInsufficientRole)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
