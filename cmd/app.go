package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/approval"
	approvalPostgres "github.com/dulmini1119/tms-sub001/internal/approval/postgres"
	"github.com/dulmini1119/tms-sub001/internal/assignment"
	assignmentPostgres "github.com/dulmini1119/tms-sub001/internal/assignment/postgres"
	"github.com/dulmini1119/tms-sub001/internal/core/events"
	"github.com/dulmini1119/tms-sub001/internal/gpslog"
	gpslogPostgres "github.com/dulmini1119/tms-sub001/internal/gpslog/postgres"
	"github.com/dulmini1119/tms-sub001/internal/invoice"
	invoicePostgres "github.com/dulmini1119/tms-sub001/internal/invoice/postgres"
	"github.com/dulmini1119/tms-sub001/internal/observability"
	"github.com/dulmini1119/tms-sub001/internal/transport"
	"github.com/dulmini1119/tms-sub001/internal/transport/rest"
	"github.com/dulmini1119/tms-sub001/internal/tripcost"
	tripcostPostgres "github.com/dulmini1119/tms-sub001/internal/tripcost/postgres"
	"github.com/dulmini1119/tms-sub001/internal/triprequest"
	triprequestPostgres "github.com/dulmini1119/tms-sub001/internal/triprequest/postgres"
)

// application is the wired service graph shared by the server and worker commands.
type application struct {
	Config  *internal.Config
	Logger  *slog.Logger
	Gorm    *gorm.DB
	DB      *sqlx.DB
	Bus     *events.EventBus
	Metrics *observability.Metrics

	TripRequests *triprequest.Service
	Approvals    *approval.Service
	Assignments  *assignment.Service
	GPSLogs      *gpslog.Service
	TripCosts    *tripcost.Service
	Invoices     *invoice.Service
}

func newApplication(cfg *internal.Config, logger *slog.Logger) (*application, error) {
	sqlxDB, gormDB, err := initDB(cfg.Database, cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	bus := events.NewEventBus(logger)
	events.NewAuditLogger(logger).Register(bus)
	metrics := observability.NewMetrics()

	return &application{
		Config:  cfg,
		Logger:  logger,
		Gorm:    gormDB,
		DB:      sqlxDB,
		Bus:     bus,
		Metrics: metrics,

		TripRequests: triprequest.NewService(triprequestPostgres.NewTripRequestRepository(gormDB), cfg.Approval.Levels, logger),
		Approvals:    approval.NewService(approvalPostgres.NewApprovalRepository(gormDB), bus, logger),
		Assignments:  assignment.NewService(assignmentPostgres.NewAssignmentRepository(gormDB), bus, logger),
		GPSLogs:      gpslog.NewService(gpslogPostgres.NewGPSLogRepository(sqlxDB), cfg.Telemetry, metrics, logger),
		TripCosts:    tripcost.NewService(tripcostPostgres.NewTripCostRepository(gormDB), logger),
		Invoices:     invoice.NewService(invoicePostgres.NewInvoiceRepository(gormDB), bus, cfg.Invoice, logger),
	}, nil
}

func (a *application) handlers() rest.Handlers {
	base := transport.NewBaseHandler(a.Logger)
	return rest.Handlers{
		TripRequests: triprequest.NewHandler(base, a.TripRequests),
		Approvals:    approval.NewHandler(base, a.Approvals),
		Assignments:  assignment.NewHandler(base, a.Assignments),
		GPSLogs:      gpslog.NewHandler(base, a.GPSLogs),
		TripCosts:    tripcost.NewHandler(base, a.TripCosts),
		Invoices:     invoice.NewHandler(base, a.Invoices),
	}
}

// Close drains in-flight event handlers before releasing the pool.
func (a *application) Close() error {
	a.Bus.Wait()
	return a.DB.Close()
}

// initDB opens one pgx pool and shares it between the sqlx read model and gorm.
func initDB(cfg internal.DatabaseConfig, production bool) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logLevel := gormLogger.Info
	if production {
		logLevel = gormLogger.Warn
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to open gorm session: %w", err), dbConn.Close())
	}

	return dbConn, gormDB, nil
}
