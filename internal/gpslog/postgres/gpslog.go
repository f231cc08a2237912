package postgres

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"

	"github.com/jmoiron/sqlx"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/gpslog"
	gpslogService "github.com/dulmini1119/tms-sub001/internal/gpslog"
)

const logColumns = `g.id, g.vehicle_id, g.driver_id, g.assignment_id, g.latitude, g.longitude,
	g.heading, g.accuracy, g.altitude, g.speed, g.ignition, g.panic_button, g.battery_level,
	g.signal_strength, g.geofence_status, g.speed_limit, g.is_speed_violation, g.violation_count,
	g.device_timestamp, g.server_timestamp`

const rowColumns = logColumns + `,
	v.registration_number AS registration_number,
	v.operational_status AS operational_status,
	d.first_name AS driver_first_name,
	d.last_name AS driver_last_name,
	tr.request_number AS trip_request_number`

const rowJoins = `
	FROM gps_logs g
	LEFT JOIN vehicles v ON v.id = g.vehicle_id
	LEFT JOIN drivers d ON d.id = g.driver_id
	LEFT JOIN trip_assignments a ON a.id = g.assignment_id
	LEFT JOIN trip_requests tr ON tr.id = a.trip_request_id`

type GPSLogRepository struct {
	db *sqlx.DB
}

func NewGPSLogRepository(db *sqlx.DB) gpslogService.Repository {
	return &GPSLogRepository{db: db}
}

// where builds the predicate for a filter. Queries use ? placeholders and are
// rebound for the driver.
func where(f gpslogService.QueryFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if f.VehicleID != "" {
		clauses = append(clauses, "g.vehicle_id = ?")
		args = append(args, f.VehicleID)
	}
	if f.DriverID != "" {
		clauses = append(clauses, "g.driver_id = ?")
		args = append(args, f.DriverID)
	}

	switch f.Status {
	case gpslogService.FilterEmergency:
		clauses = append(clauses, "g.panic_button = ?")
		args = append(args, true)
	case gpslogService.FilterMaintenance:
		clauses = append(clauses, "v.operational_status = ?")
		args = append(args, fleet.OperationalStatusMaintenance)
	case gpslogService.FilterOffline:
		clauses = append(clauses, "g.ignition = ?")
		args = append(args, gpslog.IgnitionOff)
	case gpslogService.FilterActive:
		clauses = append(clauses, "g.ignition = ? AND g.speed > ?")
		args = append(args, gpslog.IgnitionOn, gpslogService.MovingSpeedKmh)
	case gpslogService.FilterIdle:
		clauses = append(clauses, "g.ignition = ? AND g.speed <= ?")
		args = append(args, gpslog.IgnitionOn, gpslogService.MovingSpeedKmh)
	}

	if f.SearchTerm != "" {
		like := "%" + strings.ToLower(f.SearchTerm) + "%"
		clauses = append(clauses, `(LOWER(v.registration_number) LIKE ?
			OR LOWER(d.first_name) LIKE ?
			OR LOWER(d.last_name) LIKE ?
			OR LOWER(tr.request_number) LIKE ?)`)
		args = append(args, like, like, like, like)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *GPSLogRepository) Query(ctx context.Context, f gpslogService.QueryFilter) ([]gpslogService.Row, int64, error) {
	predicate, args := where(f)

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*)"+rowJoins+predicate), args...); err != nil {
		return nil, 0, err
	}

	query := r.db.Rebind("SELECT " + rowColumns + rowJoins + predicate +
		" ORDER BY g.device_timestamp DESC LIMIT ? OFFSET ?")
	rows := []gpslogService.Row{}
	if err := r.db.SelectContext(ctx, &rows, query, append(args, f.Paging.Limit(), f.Paging.Offset())...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *GPSLogRepository) Export(ctx context.Context, f gpslogService.QueryFilter, limit int) ([]gpslogService.Row, error) {
	predicate, args := where(f)
	query := r.db.Rebind("SELECT " + rowColumns + rowJoins + predicate +
		" ORDER BY g.device_timestamp DESC LIMIT ?")
	rows := []gpslogService.Row{}
	if err := r.db.SelectContext(ctx, &rows, query, append(args, limit)...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GPSLogRepository) Get(ctx context.Context, id string) (*gpslogService.Row, error) {
	var row gpslogService.Row
	err := r.db.GetContext(ctx, &row, r.db.Rebind("SELECT "+rowColumns+rowJoins+" WHERE g.id = ?"), id)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrGPSLogNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *GPSLogRepository) FirstDevice(ctx context.Context, vehicleID string) (*fleet.GPSDevice, error) {
	var device fleet.GPSDevice
	err := r.db.GetContext(ctx, &device, r.db.Rebind(`
		SELECT id, vehicle_id, device_serial, imei, device_model, firmware_version,
			installed_at, created_at, updated_at
		FROM gps_devices
		WHERE vehicle_id = ?
		ORDER BY created_at ASC
		LIMIT 1`), vehicleID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

func (r *GPSLogRepository) Route(ctx context.Context, assignmentID string, limit int) ([]gpslog.GPSLog, error) {
	logs := []gpslog.GPSLog{}
	err := r.db.SelectContext(ctx, &logs, r.db.Rebind("SELECT "+logColumns+
		" FROM gps_logs g WHERE g.assignment_id = ? ORDER BY g.device_timestamp ASC LIMIT ?"), assignmentID, limit)
	return logs, err
}

func (r *GPSLogRepository) VehicleExists(ctx context.Context, vehicleID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind("SELECT COUNT(*) FROM vehicles WHERE id = ?"), vehicleID)
	return n > 0, err
}

func (r *GPSLogRepository) Insert(ctx context.Context, log *gpslog.GPSLog) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO gps_logs (
			id, vehicle_id, driver_id, assignment_id, latitude, longitude, heading, accuracy,
			altitude, speed, ignition, panic_button, battery_level, signal_strength,
			geofence_status, speed_limit, is_speed_violation, violation_count,
			device_timestamp, server_timestamp
		) VALUES (
			:id, :vehicle_id, :driver_id, :assignment_id, :latitude, :longitude, :heading, :accuracy,
			:altitude, :speed, :ignition, :panic_button, :battery_level, :signal_strength,
			:geofence_status, :speed_limit, :is_speed_violation, :violation_count,
			:device_timestamp, :server_timestamp
		)`, log)
	return err
}
