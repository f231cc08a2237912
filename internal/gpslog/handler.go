package gpslog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

type ServiceAPI interface {
	Query(ctx context.Context, filter QueryFilter) (*paging.Page[LogView], error)
	GetByID(ctx context.Context, id string) (*LogDetail, error)
	GetTripReplay(ctx context.Context, assignmentID string) (*TripReplay, error)
	Export(ctx context.Context, filter QueryFilter, w io.Writer) (int, error)
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

// Routes mounts the GPS log endpoints. exportLimiter throttles the CSV export.
func (h *Handler) Routes(r chi.Router, exportLimiter func(http.Handler) http.Handler) {
	r.Get("/", h.Query)
	r.With(exportLimiter).Post("/export", h.Export)
	r.Get("/replay/{tripId}", h.Replay)
	r.Get("/{id}", h.Get)
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("searchTerm")
	if search == "" {
		search = q.Get("search")
	}
	page, err := h.Service.Query(r.Context(), QueryFilter{
		SearchTerm: search,
		Status:     q.Get("status"),
		VehicleID:  q.Get("vehicleId"),
		DriverID:   q.Get("driverId"),
		Paging:     h.Pagination(r),
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

	detail, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "tripId")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	replay, err := h.Service.GetTripReplay(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, replay)
}

// Export renders the whole CSV before writing so failures still answer with JSON.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var filter QueryFilter
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &filter); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	var buf bytes.Buffer
	n, err := h.Service.Export(r.Context(), filter, &buf)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("gps-logs-%s.csv", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Total-Rows", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Warn("ExportGPSLogs: write failed", "error", err)
	}
}
