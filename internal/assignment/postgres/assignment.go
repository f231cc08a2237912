package postgres

import (
	"context"
	stdErrors "errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/assignment"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel/fleet"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
)

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) assignment.Repository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) WithTx(ctx context.Context, fn func(context.Context, assignment.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &AssignmentRepository{db: tx})
	})
}

func (r *AssignmentRepository) List(ctx context.Context, f assignment.ListFilter) ([]assignmentDatamodel.Assignment, int64, error) {
	q := r.db.WithContext(ctx).Model(&assignmentDatamodel.Assignment{})

	if f.Status != "" {
		q = q.Where("trip_assignments.status = ?", f.Status)
	}
	if f.TripRequestID != "" {
		q = q.Where("trip_assignments.trip_request_id = ?", f.TripRequestID)
	}
	if f.VehicleID != "" {
		q = q.Where("trip_assignments.vehicle_id = ?", f.VehicleID)
	}
	if f.DriverID != "" {
		q = q.Where("trip_assignments.driver_id = ?", f.DriverID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.
			Joins("LEFT JOIN trip_requests tr ON tr.id = trip_assignments.trip_request_id").
			Joins("LEFT JOIN vehicles v ON v.id = trip_assignments.vehicle_id").
			Joins("LEFT JOIN drivers d ON d.id = trip_assignments.driver_id").
			Where(`(LOWER(tr.request_number) LIKE ?
				OR LOWER(v.registration_number) LIKE ?
				OR LOWER(d.first_name) LIKE ?
				OR LOWER(d.last_name) LIKE ?)`, like, like, like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []assignmentDatamodel.Assignment
	err := q.Session(&gorm.Session{}).
		Preload("TripRequest").
		Preload("Vehicle").
		Preload("Driver").
		Order("trip_assignments.scheduled_departure DESC").
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *AssignmentRepository) Get(ctx context.Context, id string) (*assignmentDatamodel.Assignment, error) {
	var a assignmentDatamodel.Assignment
	err := r.db.WithContext(ctx).
		Preload("TripRequest").
		Preload("Vehicle").
		Preload("Driver").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrAssignmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) GetTripRequest(ctx context.Context, id string) (*tripDatamodel.TripRequest, error) {
	var t tripDatamodel.TripRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTripRequestNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *AssignmentRepository) GetVehicle(ctx context.Context, id string) (*fleet.Vehicle, error) {
	var v fleet.Vehicle
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *AssignmentRepository) GetDriver(ctx context.Context, id string) (*fleet.Driver, error) {
	var d fleet.Driver
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDriverNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *AssignmentRepository) Create(ctx context.Context, a *assignmentDatamodel.Assignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (r *AssignmentRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&assignmentDatamodel.Assignment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *AssignmentRepository) UpdateTripStatus(ctx context.Context, tripRequestID, from, to string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&tripDatamodel.TripRequest{}).
		Where("id = ? AND status = ?", tripRequestID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}
