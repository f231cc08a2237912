package postgres

import (
	"context"
	stdErrors "errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/dulmini1119/tms-sub001/internal"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	assignmentDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/assignment"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/triprequest"
)

type TripRequestRepository struct {
	db *gorm.DB
}

func NewTripRequestRepository(db *gorm.DB) triprequest.Repository {
	return &TripRequestRepository{db: db}
}

func (r *TripRequestRepository) WithTx(ctx context.Context, fn func(context.Context, triprequest.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &TripRequestRepository{db: tx})
	})
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("approval_level ASC")
}

func (r *TripRequestRepository) List(ctx context.Context, f triprequest.ListFilter) ([]tripDatamodel.TripRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&tripDatamodel.TripRequest{})

	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(request_number) LIKE ? OR LOWER(purpose_description) LIKE ?)", like, like)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.RequesterID != "" {
		q = q.Where("requester_id = ?", f.RequesterID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []tripDatamodel.TripRequest
	err := q.Session(&gorm.Session{}).
		Preload("Requester").
		Preload("ApprovalSteps", orderedSteps).
		Order("created_at DESC").
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *TripRequestRepository) Get(ctx context.Context, id string) (*tripDatamodel.TripRequest, error) {
	var t tripDatamodel.TripRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("ApprovalSteps", orderedSteps).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTripRequestNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TripRequestRepository) Create(ctx context.Context, t *tripDatamodel.TripRequest) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrDuplicateRequest
	}
	return err
}

func (r *TripRequestRepository) CreateSteps(ctx context.Context, steps []approvalDatamodel.ApprovalStep) error {
	if len(steps) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Create(&steps).Error
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrApprovalLevelExists
	}
	return err
}

func (r *TripRequestRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&tripDatamodel.TripRequest{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *TripRequestRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("trip_request_id = ?", id).Delete(&approvalDatamodel.ApprovalStep{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&tripDatamodel.TripRequest{}).Error
}

func (r *TripRequestRepository) CountAssignments(ctx context.Context, tripRequestID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&assignmentDatamodel.Assignment{}).
		Where("trip_request_id = ?", tripRequestID).
		Count(&n).Error
	return n, err
}
