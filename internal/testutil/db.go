// Package testutil opens in-memory databases and inserts fixture rows for specs.
package testutil

import (
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/gpslog"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/invoice"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/tripcost"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/user"
)

// AllModels is every table the service owns, in dependency order.
var AllModels = []interface{}{
	&user.User{},
	&fleet.Vendor{},
	&fleet.Vehicle{},
	&fleet.Driver{},
	&fleet.GPSDevice{},
	&trip.TripRequest{},
	&approval.ApprovalStep{},
	&assignment.Assignment{},
	&gpslog.GPSLog{},
	&invoice.Invoice{},
	&tripcost.TripCost{},
}

// NewSQLiteDB opens a migrated in-memory sqlite database. The pool is pinned to a
// single connection so every query sees the same database.
func NewSQLiteDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(AllModels...); err != nil {
		return nil, err
	}
	return db, nil
}

// NewSQLX wraps the gorm connection pool for the sqlx read model.
func NewSQLX(db *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, "sqlite3"), nil
}
