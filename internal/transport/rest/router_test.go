package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/auth"
	invoiceDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
	"github.com/dulmini1119/tms-sub001/internal/invoice"
	"github.com/dulmini1119/tms-sub001/internal/observability"
	"github.com/dulmini1119/tms-sub001/internal/testutil"
	"github.com/dulmini1119/tms-sub001/internal/transport"
	"github.com/dulmini1119/tms-sub001/internal/transport/rest"
)

type invoiceStub struct{}

func (invoiceStub) PreviewDraft(ctx context.Context, vendorID, month string) (*invoice.Draft, error) {
	return nil, nil
}

func (invoiceStub) Generate(ctx context.Context, dto invoice.GenerateInvoiceDTO, userID string) (*invoiceDatamodel.Invoice, error) {
	return &invoiceDatamodel.Invoice{VendorID: dto.VendorID, BillingMonth: dto.Month, Status: invoiceDatamodel.StatusPending}, nil
}

func (invoiceStub) RecordPayment(ctx context.Context, id string, dto invoice.PayInvoiceDTO) (*invoiceDatamodel.Invoice, error) {
	return &invoiceDatamodel.Invoice{Status: invoiceDatamodel.StatusPaid}, nil
}

func (invoiceStub) Get(ctx context.Context, id string) (*invoiceDatamodel.Invoice, error) {
	return &invoiceDatamodel.Invoice{Status: invoiceDatamodel.StatusPending}, nil
}

func (invoiceStub) List(ctx context.Context, filter invoice.ListFilter) (*paging.Page[invoiceDatamodel.Invoice], error) {
	return paging.NewPage[invoiceDatamodel.Invoice](nil, 0, filter.Paging), nil
}

var _ = Describe("Router", func() {
	var (
		router http.Handler
		tokens *auth.JWTTokenGenerator
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		db, err := testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())
		sqlxDB, err := testutil.NewSQLX(db)
		Expect(err).NotTo(HaveOccurred())

		cfg := &internal.Config{Environment: "test"}
		cfg.Security.CookieName = "accessToken"
		cfg.Observability.Metrics.Enabled = true
		cfg.Observability.Metrics.Path = "/metrics"

		tokens = auth.NewJWTTokenGenerator("router-test-secret", time.Hour)
		authenticator := auth.NewAuthenticator(tokens, cfg.Security.CookieName, logger)

		router = rest.NewRouter(rest.Dependencies{
			Config:        cfg,
			DB:            sqlxDB,
			Authenticator: authenticator.Middleware,
			Metrics:       observability.NewMetrics(),
			Logger:        logger,
			Handlers: rest.Handlers{
				Invoices: invoice.NewHandler(transport.NewBaseHandler(logger), invoiceStub{}),
			},
		})
	})

	do := func(method, path, role, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if role != "" {
			token, err := tokens.GenerateAccessToken("u-1", "u1@example.com", role)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("serves liveness and readiness without a token", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "", "").Code).To(Equal(http.StatusOK))

		rec := do(http.MethodGet, "/api/v1/health", "", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(rest.HealthHealthy))
		Expect(resp.Components).To(HaveKey("database"))
	})

	It("serves the OpenAPI document", func() {
		rec := do(http.MethodGet, "/openapi.yml", "", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("openapi: 3.0.3"))
	})

	It("rejects API calls without a token", func() {
		Expect(do(http.MethodGet, "/api/v1/invoices", "", "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("lets any authenticated role read invoices", func() {
		Expect(do(http.MethodGet, "/api/v1/invoices", user.RoleEmployee, "").Code).To(Equal(http.StatusOK))
	})

	It("reserves invoice generation for finance and admin", func() {
		body := `{"vendorId":"3f1c2a9b-0000-4000-8000-000000000001","month":"2024-01"}`
		Expect(do(http.MethodPost, "/api/v1/invoices/generate", user.RoleEmployee, body).Code).To(Equal(http.StatusForbidden))
		Expect(do(http.MethodPost, "/api/v1/invoices/generate", user.RoleFinance, body).Code).To(Equal(http.StatusCreated))
		Expect(do(http.MethodPost, "/api/v1/invoices/generate", user.RoleAdmin, body).Code).To(Equal(http.StatusCreated))
	})

	It("does not mount handlers that were not provided", func() {
		Expect(do(http.MethodGet, "/api/v1/trip-requests", user.RoleAdmin, "").Code).To(Equal(http.StatusNotFound))
	})

	It("exposes request metrics", func() {
		do(http.MethodGet, "/api/v1/ping", "", "")
		rec := do(http.MethodGet, "/metrics", "", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("tms_http_requests_total"))
	})
})
