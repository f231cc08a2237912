package tripcost

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/dulmini1119/tms-sub001/internal"
	tripcostDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, filter ListFilter) (*paging.Page[tripcostDatamodel.TripCost], error)
	Get(ctx context.Context, id string) (*tripcostDatamodel.TripCost, error)
	Create(ctx context.Context, dto CreateTripCostDTO, createdBy string) (*tripcostDatamodel.TripCost, error)
	Update(ctx context.Context, id string, dto UpdateTripCostDTO) (*tripcostDatamodel.TripCost, error)
	GenerateInvoice(ctx context.Context, id string) (*tripcostDatamodel.TripCost, error)
	RecordPayment(ctx context.Context, id string, dto RecordPaymentDTO) (*tripcostDatamodel.TripCost, error)
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

// Routes mounts the trip cost endpoints. finance guards the write routes.
func (h *Handler) Routes(r chi.Router, finance func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Group(func(w chi.Router) {
		w.Use(finance)
		w.Post("/", h.Create)
		w.Put("/{id}", h.Update)
		w.Post("/{id}/generate-invoice", h.GenerateInvoice)
		w.Post("/{id}/record-payment", h.RecordPayment)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Service.List(r.Context(), ListFilter{
		PaymentStatus: q.Get("paymentStatus"),
		AssignmentID:  q.Get("assignmentId"),
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

	tc, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tc)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrUnauthorizedAccess)
		return
	}

	var dto CreateTripCostDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tc, err := h.Service.Create(r.Context(), dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, tc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateTripCostDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tc, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tc)
}

func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tc, err := h.Service.GenerateInvoice(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tc)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	// an empty body records a payment dated now
	var dto RecordPaymentDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	tc, err := h.Service.RecordPayment(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tc)
}
