package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fasehq/fase-server/pkg/gamification"
	"github.com/fasehq/fase-server/pkg/model"
)

type GamificationRepository struct {
	db *gorm.DB
}

func NewGamificationRepository(db *gorm.DB) *GamificationRepository {
	return &GamificationRepository{db: db}
}

// GetScore returns the stored score or a fresh zero-value row for users who
// have not earned points yet.
func (r *GamificationRepository) GetScore(ctx context.Context, userID, companyID uuid.UUID) (*model.Score, error) {
	var score model.Score
	err := r.db.WithContext(ctx).
		First(&score, "user_id = ? AND company_id = ?", userID, companyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Score{UserID: userID, CompanyID: companyID, Level: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *GamificationRepository) SaveScore(ctx context.Context, score *model.Score) error {
	score.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "level", "updated_at"}),
	}).Create(score).Error
}

func (r *GamificationRepository) GetStreak(ctx context.Context, userID, companyID uuid.UUID) (*model.Streak, error) {
	var streak model.Streak
	err := r.db.WithContext(ctx).
		First(&streak, "user_id = ? AND company_id = ?", userID, companyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Streak{UserID: userID, CompanyID: companyID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

func (r *GamificationRepository) SaveStreak(ctx context.Context, streak *model.Streak) error {
	streak.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current", "longest", "last_active_on", "updated_at"}),
	}).Create(streak).Error
}

// AwardMedal inserts the medal if absent. The composite primary key makes a
// second award a no-op; RowsAffected distinguishes the two outcomes.
func (r *GamificationRepository) AwardMedal(ctx context.Context, medal *model.Medal) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(medal)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GamificationRepository) ListMedals(ctx context.Context, userID, companyID uuid.UUID) ([]model.Medal, error) {
	var medals []model.Medal
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Order("awarded_at ASC").
		Find(&medals).Error
	return medals, err
}

func (r *GamificationRepository) TopScores(ctx context.Context, companyID uuid.UUID, limit int) ([]model.Score, error) {
	var scores []model.Score
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("points DESC").
		Limit(limit).
		Find(&scores).Error
	return scores, err
}

func (r *GamificationRepository) WithTx(ctx context.Context, fn func(gamification.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GamificationRepository{db: tx})
	})
}
