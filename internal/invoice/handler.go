package invoice

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/dulmini1119/tms-sub001/internal"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

type ServiceAPI interface {
	PreviewDraft(ctx context.Context, vendorID, month string) (*Draft, error)
	Generate(ctx context.Context, dto GenerateInvoiceDTO, userID string) (*invoiceDatamodel.Invoice, error)
	RecordPayment(ctx context.Context, id string, dto PayInvoiceDTO) (*invoiceDatamodel.Invoice, error)
	Get(ctx context.Context, id string) (*invoiceDatamodel.Invoice, error)
	List(ctx context.Context, filter ListFilter) (*paging.Page[invoiceDatamodel.Invoice], error)
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

// Routes mounts the invoice endpoints. finance guards the write routes.
func (h *Handler) Routes(r chi.Router, finance func(http.Handler) http.Handler) {
	r.Get("/", h.List)
	r.Get("/preview", h.Preview)
	r.Get("/{id}", h.Get)
	r.Group(func(w chi.Router) {
		w.Use(finance)
		w.Post("/generate", h.Generate)
		w.Post("/{id}/pay", h.Pay)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Service.List(r.Context(), ListFilter{
		VendorID: q.Get("vendorId"),
		Status:   q.Get("status"),
		Month:    q.Get("month"),
		Paging:   h.Pagination(r),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}

// Preview answers 204 when the vendor has nothing billable for the month.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	draft, err := h.Service.PreviewDraft(r.Context(), q.Get("vendorId"), q.Get("month"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if draft == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.WriteJSON(w, http.StatusOK, draft)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	inv, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, inv)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, errors.ErrUnauthorizedAccess)
		return
	}

	var dto GenerateInvoiceDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	inv, err := h.Service.Generate(r.Context(), dto, user.ID)
	if err != nil {
		h.Logger.Warn("GenerateInvoice: service error", "error", err, "vendor_id", dto.VendorID, "month", dto.Month)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto PayInvoiceDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	inv, err := h.Service.RecordPayment(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, inv)
}
