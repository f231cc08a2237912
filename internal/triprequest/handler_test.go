package triprequest_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/dulmini1119/tms-sub001/internal"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
	"github.com/dulmini1119/tms-sub001/internal/testutil"
	"github.com/dulmini1119/tms-sub001/internal/transport"
	"github.com/dulmini1119/tms-sub001/internal/triprequest"
	"github.com/dulmini1119/tms-sub001/internal/triprequest/postgres"
)

var _ = Describe("Handler", func() {
	var (
		db        *gorm.DB
		router    *chi.Mux
		requester *user.User
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := triprequest.NewService(postgres.NewTripRequestRepository(db), internal.DefaultApprovalLevels, lg)
		h := triprequest.NewHandler(transport.NewBaseHandler(lg), svc)

		router = chi.NewRouter()
		router.Route("/trip-requests", func(r chi.Router) {
			h.Routes(r, func(next http.Handler) http.Handler { return next })
		})
		requester = testutil.CreateUser(db, "Nimal", "Fernando", user.RoleEmployee)
	})

	as := func(req *http.Request) *http.Request {
		return req.WithContext(internal.ContextWithUser(req.Context(), &internal.CurrentUser{ID: requester.ID, Role: user.RoleEmployee}))
	}

	body := `{
		"fromAddress": "Head Office",
		"toAddress": "Airport",
		"purposeCategory": "Client Meeting",
		"purposeDescription": "Airport drop",
		"departureAt": "2030-01-15T08:00:00Z"
	}`

	It("creates a request for the caller", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPost, "/trip-requests", strings.NewReader(body))))

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var got tripDatamodel.TripRequest
		Expect(json.Unmarshal(rec.Body.Bytes(), &got)).To(Succeed())
		Expect(got.RequesterID).To(Equal(requester.ID))
		Expect(got.ApprovalSteps).To(HaveLen(2))
	})

	It("requires an authenticated caller to create", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trip-requests", strings.NewReader(body)))
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("returns field errors for an invalid body", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPost, "/trip-requests", strings.NewReader(`{"priority":"Whenever"}`))))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(`"type":"VALIDATION_ERROR"`))
		Expect(rec.Body.String()).To(ContainSubstring(`"field":"priority"`))
	})

	It("forbids edits to an approved request", func() {
		t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusApproved)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPut, "/trip-requests/"+t.ID, strings.NewReader(`{"toAddress":"Galle"}`))))
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("deletes with no content", func() {
		t := testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodDelete, "/trip-requests/"+t.ID, nil)))
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/trip-requests/"+t.ID, nil)))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("lists in the standard envelope", func() {
		testutil.CreateTripRequest(db, requester.ID, tripDatamodel.StatusPending)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/trip-requests?limit=5", nil)))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"meta":{"total":1,"page":1,"pageSize":5,"totalPages":1}`))
	})
})
