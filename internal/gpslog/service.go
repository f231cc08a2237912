package gpslog

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/core/common/validation"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	gpslogDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/gpslog"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

// ExportHeader is the fixed first row of every CSV export.
var ExportHeader = []string{
	"Log ID", "Vehicle", "Driver", "Trip Request", "Latitude", "Longitude", "Speed", "Heading",
	"Ignition", "Status", "Panic Button", "Speed Violation", "Battery Level", "Signal Strength",
	"Device Timestamp", "Server Timestamp",
}

type Repository interface {
	Query(ctx context.Context, filter QueryFilter) ([]Row, int64, error)
	// Export returns at most limit rows matching filter, newest first.
	Export(ctx context.Context, filter QueryFilter, limit int) ([]Row, error)
	Get(ctx context.Context, id string) (*Row, error)
	// FirstDevice returns nil when the vehicle has no GPS device.
	FirstDevice(ctx context.Context, vehicleID string) (*fleet.GPSDevice, error)
	// Route returns at most limit logs of the assignment by ascending device timestamp.
	Route(ctx context.Context, assignmentID string, limit int) ([]gpslogDatamodel.GPSLog, error)
	VehicleExists(ctx context.Context, vehicleID string) (bool, error)
	Insert(ctx context.Context, log *gpslogDatamodel.GPSLog) error
}

// PingObserver counts stored and rejected pings.
type PingObserver interface {
	ObserveGPSPing(status string)
}

type Service struct {
	repo     Repository
	cfg      internal.TelemetryConfig
	observer PingObserver
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, cfg internal.TelemetryConfig, observer PingObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReplayMaxPoints <= 0 {
		cfg.ReplayMaxPoints = 5000
	}
	if cfg.ExportMaxRows <= 0 {
		cfg.ExportMaxRows = 10000
	}
	return &Service{
		repo:     repo,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Query(ctx context.Context, filter QueryFilter) (*paging.Page[LogView], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, s.storageError("failed to query gps logs", err)
	}

	views := make([]LogView, 0, len(rows))
	for _, r := range rows {
		views = append(views, r.View())
	}
	return paging.NewPage(views, total, filter.Paging), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*LogDetail, error) {
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.storageError("failed to get gps log", err, "gps_log_id", id)
	}
	device, err := s.repo.FirstDevice(ctx, row.VehicleID)
	if err != nil {
		return nil, s.storageError("failed to load gps device", err, "vehicle_id", row.VehicleID)
	}
	return &LogDetail{LogView: row.View(), Device: device}, nil
}

// GetTripReplay loads one point beyond the cap so a hit can be flagged as truncated.
func (s *Service) GetTripReplay(ctx context.Context, assignmentID string) (*TripReplay, error) {
	limit := s.cfg.ReplayMaxPoints
	logs, err := s.repo.Route(ctx, assignmentID, limit+1)
	if err != nil {
		return nil, s.storageError("failed to load trip route", err, "assignment_id", assignmentID)
	}
	if len(logs) == 0 {
		return nil, internal.ErrReplayNotFound
	}

	truncated := len(logs) > limit
	if truncated {
		logs = logs[:limit]
		s.logger.Warn("trip replay truncated", "assignment_id", assignmentID, "max_points", limit)
	}
	replay := BuildReplay(assignmentID, logs)
	replay.Truncated = truncated
	return replay, nil
}

// Export writes the matching logs as CSV and returns the number of data rows written.
func (s *Service) Export(ctx context.Context, filter QueryFilter, w io.Writer) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	rows, err := s.repo.Export(ctx, filter, s.cfg.ExportMaxRows)
	if err != nil {
		return 0, s.storageError("failed to export gps logs", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, err
	}
	for _, r := range rows {
		v := r.View()
		if err := cw.Write([]string{
			v.ID,
			v.VehicleNumber,
			v.DriverName,
			v.TripRequestNumber,
			formatFloat(v.Latitude),
			formatFloat(v.Longitude),
			formatFloat(v.Speed),
			formatOptional(v.Heading),
			v.Ignition,
			v.Status,
			strconv.FormatBool(v.PanicButton),
			strconv.FormatBool(v.IsSpeedViolation),
			formatOptional(v.BatteryLevel),
			formatOptionalInt(v.SignalStrength),
			v.DeviceTimestamp.UTC().Format(time.RFC3339),
			v.ServerTimestamp.UTC().Format(time.RFC3339),
		}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	if len(rows) == s.cfg.ExportMaxRows {
		s.logger.Warn("gps export hit row cap", "max_rows", s.cfg.ExportMaxRows)
	}
	return len(rows), nil
}

// Ingest appends a device ping. The server timestamp is set on receipt.
func (s *Service) Ingest(ctx context.Context, dto PingDTO) (*gpslogDatamodel.GPSLog, error) {
	dto.Normalize()
	if err := validation.Struct(dto); err != nil {
		s.observe("rejected")
		return nil, err
	}

	exists, err := s.repo.VehicleExists(ctx, dto.VehicleID)
	if err != nil {
		s.observe("rejected")
		return nil, s.storageError("failed to check vehicle", err, "vehicle_id", dto.VehicleID)
	}
	if !exists {
		s.observe("rejected")
		return nil, internal.ErrVehicleNotFound
	}

	log := &gpslogDatamodel.GPSLog{
		ID:               datamodel.NewID(),
		VehicleID:        dto.VehicleID,
		DriverID:         dto.DriverID,
		AssignmentID:     dto.AssignmentID,
		Latitude:         dto.Latitude,
		Longitude:        dto.Longitude,
		Heading:          dto.Heading,
		Accuracy:         dto.Accuracy,
		Altitude:         dto.Altitude,
		Speed:            dto.Speed,
		Ignition:         dto.Ignition,
		PanicButton:      dto.PanicButton,
		BatteryLevel:     dto.BatteryLevel,
		SignalStrength:   dto.SignalStrength,
		GeofenceStatus:   dto.GeofenceStatus,
		SpeedLimit:       dto.SpeedLimit,
		IsSpeedViolation: dto.SpeedLimit != nil && dto.Speed > *dto.SpeedLimit,
		ViolationCount:   dto.ViolationCount,
		DeviceTimestamp:  dto.DeviceTimestamp.UTC(),
		ServerTimestamp:  s.now(),
	}
	if err := s.repo.Insert(ctx, log); err != nil {
		s.observe("rejected")
		return nil, s.storageError("failed to store gps ping", err, "vehicle_id", dto.VehicleID)
	}

	s.observe("stored")
	if log.PanicButton {
		s.logger.Warn("panic button pressed", "vehicle_id", log.VehicleID, "gps_log_id", log.ID)
	}
	return log, nil
}

func (s *Service) observe(status string) {
	if s.observer != nil {
		s.observer.ObserveGPSPing(status)
	}
}

func (s *Service) storageError(msg string, err error, args ...any) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	s.logger.Error(msg, append(args, "error", err)...)
	return internal.NewInternalError(msg, err)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
