package assignment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/dulmini1119/tms-sub001/internal"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, filter ListFilter) (*paging.Page[assignmentDatamodel.Assignment], error)
	Get(ctx context.Context, id string) (*assignmentDatamodel.Assignment, error)
	Create(ctx context.Context, dto CreateAssignmentDTO, assignedBy string) (*assignmentDatamodel.Assignment, error)
	Update(ctx context.Context, id string, dto UpdateAssignmentDTO) (*assignmentDatamodel.Assignment, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// Routes mounts the assignment endpoints. dispatchers guards the write routes.
func (h *Handler) Routes(r chi.Router, dispatchers func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(w chi.Router) {
		w.Use(dispatchers)
		w.Post("/", h.Create)
		w.Patch("/{id}", h.Update)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Service.List(r.Context(), ListFilter{
		Status:        q.Get("status"),
		TripRequestID: q.Get("tripRequestId"),
		VehicleID:     q.Get("vehicleId"),
		DriverID:      q.Get("driverId"),
		Search:        q.Get("search"),
		Paging:        h.Pagination(r),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrUnauthorizedAccess)
		return
	}

	var dto CreateAssignmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.Create(r.Context(), dto, user.ID)
	if err != nil {
		h.Logger.Warn("CreateAssignment: service error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateAssignmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, a)
}
