package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/model"
)

// CalendarRepository serves the aggregator's owner-scoped range queries.
type CalendarRepository struct {
	db *gorm.DB
}

func NewCalendarRepository(db *gorm.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) BigRocksByMonths(ctx context.Context, userID, companyID uuid.UUID, months []string) ([]model.BigRock, error) {
	var rocks []model.BigRock
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ? AND month IN ?", userID, companyID, months).
		Order("created_at ASC").
		Find(&rocks).Error
	return rocks, err
}

func (r *CalendarRepository) TARsInRange(ctx context.Context, userID, companyID uuid.UUID, from, to time.Time) ([]model.TAR, error) {
	var tars []model.TAR
	err := r.db.WithContext(ctx).
		Preload("BigRock").
		Joins("JOIN big_rocks ON big_rocks.id = tars.big_rock_id").
		Where("big_rocks.user_id = ? AND big_rocks.company_id = ?", userID, companyID).
		Where("tars.due_date >= ? AND tars.due_date < ?", from, to).
		Find(&tars).Error
	return tars, err
}

func (r *CalendarRepository) ActivitiesInRange(ctx context.Context, userID, companyID uuid.UUID, from, to time.Time) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Preload("TAR.BigRock").
		Joins("JOIN tars ON tars.id = activities.tar_id").
		Joins("JOIN big_rocks ON big_rocks.id = tars.big_rock_id").
		Where("big_rocks.user_id = ? AND big_rocks.company_id = ?", userID, companyID).
		Where("activities.date >= ? AND activities.date < ?", from, to).
		Find(&activities).Error
	return activities, err
}

func (r *CalendarRepository) KeyMeetingsInRange(ctx context.Context, userID, companyID uuid.UUID, from, to time.Time) ([]model.KeyMeeting, error) {
	var meetings []model.KeyMeeting
	err := r.db.WithContext(ctx).
		Preload("BigRock").
		Joins("JOIN big_rocks ON big_rocks.id = key_meetings.big_rock_id").
		Where("big_rocks.user_id = ? AND big_rocks.company_id = ?", userID, companyID).
		Where("key_meetings.date >= ? AND key_meetings.date < ?", from, to).
		Find(&meetings).Error
	return meetings, err
}
