package gpslog_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/gpslog"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

type mockService struct {
	lastFilter   gpslog.QueryFilter
	lastReplayID string
	exportErr    error
}

func (m *mockService) Query(ctx context.Context, filter gpslog.QueryFilter) (*paging.Page[gpslog.LogView], error) {
	m.lastFilter = filter
	return paging.NewPage([]gpslog.LogView{{Status: gpslog.StatusIdle}}, 1, filter.Paging), nil
}

func (m *mockService) GetByID(ctx context.Context, id string) (*gpslog.LogDetail, error) {
	return nil, errors.ErrGPSLogNotFound
}

func (m *mockService) GetTripReplay(ctx context.Context, assignmentID string) (*gpslog.TripReplay, error) {
	m.lastReplayID = assignmentID
	return &gpslog.TripReplay{AssignmentID: assignmentID, Route: []gpslog.RoutePoint{}}, nil
}

func (m *mockService) Export(ctx context.Context, filter gpslog.QueryFilter, w io.Writer) (int, error) {
	m.lastFilter = filter
	if m.exportErr != nil {
		return 0, m.exportErr
	}
	_, err := io.WriteString(w, strings.Join(gpslog.ExportHeader, ",")+"\n")
	return 0, err
}

var _ = Describe("Handler", func() {
	var (
		svc    *mockService
		router *chi.Mux
	)

	const assignmentID = "0c9a3f4e-6b2d-4a1f-8e7c-5d4b3a2f1e0d"

	BeforeEach(func() {
		svc = &mockService{}
		h := gpslog.NewHandler(transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil))), svc)
		router = chi.NewRouter()
		router.Route("/gps-logs", func(r chi.Router) {
			h.Routes(r, func(next http.Handler) http.Handler { return next })
		})
	})

	It("passes query filters through", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gps-logs?searchTerm=wp&status=idle&limit=25", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(svc.lastFilter.SearchTerm).To(Equal("wp"))
		Expect(svc.lastFilter.Status).To(Equal("idle"))
		Expect(svc.lastFilter.Paging.PageSize).To(Equal(25))
	})

	It("serves the replay by assignment id", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gps-logs/replay/"+assignmentID, nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(svc.lastReplayID).To(Equal(assignmentID))
	})

	It("exports CSV", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gps-logs/export", strings.NewReader(`{"status":"active"}`)))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/csv"))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("attachment"))
		Expect(rec.Body.String()).To(HavePrefix("Log ID,Vehicle,"))
		Expect(svc.lastFilter.Status).To(Equal("active"))
	})

	It("answers export failures with JSON", func() {
		svc.exportErr = errors.NewValidationFieldError("status", "bad", errors.ErrCodeInvalidStatus)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gps-logs/export", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("application/json"))
	})

	It("maps a missing log to 404", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gps-logs/"+assignmentID, nil))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
