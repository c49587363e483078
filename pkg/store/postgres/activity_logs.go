package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/activitylog"
	"github.com/fasehq/fase-server/pkg/model"
)

type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) List(ctx context.Context, q activitylog.Query) ([]model.ActivityLog, int64, error) {
	if len(q.UserIDs) == 0 {
		return []model.ActivityLog{}, 0, nil
	}

	var logs []model.ActivityLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.ActivityLog{}).
		Where("user_id IN ?", q.UserIDs)

	if q.EntityType != "" {
		query = query.Where("entity_type = ?", q.EntityType)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&logs).Error

	return logs, total, err
}
