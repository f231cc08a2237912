package approval

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

type ServiceAPI interface {
	ListApprovals(ctx context.Context, filter ListFilter) (*paging.Page[WorkflowView], error)
	GetApprovalDetail(ctx context.Context, tripRequestID string) (*WorkflowView, error)
	DecideStep(ctx context.Context, stepID string, dto DecideStepDTO, approverID string) (*DecisionResult, error)
	AddStep(ctx context.Context, tripRequestID string, dto AddStepDTO) (*StepView, error)
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

// Routes mounts the workflow endpoints. deciders guards the write routes.
func (h *Handler) Routes(r chi.Router, deciders func(http.Handler) http.Handler) {
	r.Get("/", h.ListApprovals)
	r.Get("/{id}", h.GetApprovalDetail)
	r.Group(func(w chi.Router) {
		w.Use(deciders)
		w.Patch("/{id}", h.DecideStep)
		w.Post("/{id}/steps", h.AddStep)
	})
}

func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("searchTerm")
	if search == "" {
		search = q.Get("search")
	}

	page, err := h.Service.ListApprovals(r.Context(), ListFilter{
		SearchTerm: search,
		Status:     q.Get("status"),
		Paging:     h.Pagination(r),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) GetApprovalDetail(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	view, err := h.Service.GetApprovalDetail(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) DecideStep(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrUnauthorizedAccess)
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto DecideStepDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.DecideStep(r.Context(), id, dto, user.ID)
	if err != nil {
		h.Logger.Warn("DecideStep: service error", "error", err, "step_id", id, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) AddStep(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto AddStepDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	step, err := h.Service.AddStep(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, step)
}
