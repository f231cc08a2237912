package postgres

import (
	"context"
	stdErrors "errors"
	"strings"

	"gorm.io/gorm"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/approval"
	approvalDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/approval"
	tripDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/trip"
	"github.com/dulmini1119/tms-sub001/internal/core/paging"
)

type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) approval.Repository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) WithTx(ctx context.Context, fn func(context.Context, approval.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &ApprovalRepository{db: tx})
	})
}

func (r *ApprovalRepository) ListTripRequests(ctx context.Context, searchTerm string, page *paging.Params) ([]tripDatamodel.TripRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&tripDatamodel.TripRequest{}).
		Where("EXISTS (SELECT 1 FROM approval_steps s WHERE s.trip_request_id = trip_requests.id)")

	if term := strings.TrimSpace(searchTerm); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Joins("LEFT JOIN users ON users.id = trip_requests.requester_id").
			Where(`(LOWER(trip_requests.request_number) LIKE ?
				OR LOWER(trip_requests.purpose_description) LIKE ?
				OR LOWER(users.first_name) LIKE ?
				OR LOWER(users.last_name) LIKE ?)`, like, like, like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	find := q.Session(&gorm.Session{}).
		Preload("Requester").
		Preload("ApprovalSteps", func(db *gorm.DB) *gorm.DB {
			return db.Order("approval_level ASC")
		}).
		Order("trip_requests.created_at DESC")
	if page != nil {
		find = find.Offset(page.Offset()).Limit(page.Limit())
	}

	var rows []tripDatamodel.TripRequest
	if err := find.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *ApprovalRepository) GetTripRequest(ctx context.Context, id string) (*tripDatamodel.TripRequest, error) {
	var t tripDatamodel.TripRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("ApprovalSteps", func(db *gorm.DB) *gorm.DB {
			return db.Order("approval_level ASC")
		}).
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

func (r *ApprovalRepository) GetStep(ctx context.Context, id string) (*approvalDatamodel.ApprovalStep, error) {
	var step approvalDatamodel.ApprovalStep
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&step).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrApprovalStepNotFound
		}
		return nil, err
	}
	return &step, nil
}

func (r *ApprovalRepository) DecideStep(ctx context.Context, id string, d approval.Decision) (int64, error) {
	res := r.db.WithContext(ctx).Model(&approvalDatamodel.ApprovalStep{}).
		Where("id = ? AND status = ?", id, approvalDatamodel.StatusPending).
		Updates(map[string]interface{}{
			"status":      d.Status,
			"comments":    d.Comments,
			"approver_id": d.ApproverID,
			"decided_at":  d.DecidedAt,
			"updated_at":  d.DecidedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *ApprovalRepository) CreateStep(ctx context.Context, step *approvalDatamodel.ApprovalStep) error {
	err := r.db.WithContext(ctx).Create(step).Error
	if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrApprovalLevelExists
	}
	return err
}

func (r *ApprovalRepository) UpdateTripStatus(ctx context.Context, tripRequestID, from, to string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&tripDatamodel.TripRequest{}).
		Where("id = ? AND status = ?", tripRequestID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}
