package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/pkg/logger"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response without a domain error behind it.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	h.writeAppError(w, &errors.AppError{
		Type:       errorTypeForStatus(status),
		Code:       errors.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))),
		Message:    message,
		StatusCode: status,
	})
}

// HandleServiceError maps an AppError to its status. Anything else is a 500 with no detail.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		h.Logger.Error("unhandled service error", "error", err)
		appErr = errors.NewInternalError("Internal server error", err)
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "code", appErr.Code, "error", appErr.Error())
		// never leak wrapped causes to the client
		appErr = &errors.AppError{
			Type:       errors.ErrorTypeInternal,
			Code:       errors.ErrCodeInternal,
			Message:    "Internal server error",
			StatusCode: http.StatusInternalServerError,
		}
	}

	h.writeAppError(w, appErr)
}

func (h *BaseHandler) writeAppError(w http.ResponseWriter, appErr *errors.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.WriteJSON(w, status, body)
}

// DecodeJSON reads the request body into dst.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.NewValidationError("request body is required", errors.ErrCodeInvalidRequestBody)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.NewValidationError("request body is required", errors.ErrCodeInvalidRequestBody)
		}
		return errors.NewValidationError("invalid request body", errors.ErrCodeInvalidRequestBody).WithCause(err)
	}
	return nil
}

// ParseIDParam reads a UUID path parameter.
func (h *BaseHandler) ParseIDParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.NewValidationFieldError(name, name+" must be a valid UUID", errors.ErrCodeInvalidID)
	}
	return id.String(), nil
}

// Pagination reads page and pageSize (or its alias limit) from the query string.
func (h *BaseHandler) Pagination(r *http.Request) paging.Params {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("pageSize"))
	if size == 0 {
		size, _ = strconv.Atoi(q.Get("limit"))
	}
	return paging.NewParams(page, size)
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

func errorTypeForStatus(status int) errors.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return errors.ErrorTypeValidation
	case http.StatusUnauthorized:
		return errors.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return errors.ErrorTypeForbidden
	case http.StatusNotFound:
		return errors.ErrorTypeNotFound
	case http.StatusConflict:
		return errors.ErrorTypeConflict
	case http.StatusUnprocessableEntity:
		return errors.ErrorTypeInvalidTransition
	default:
		return errors.ErrorTypeInternal
	}
}
