package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/hierarchy"
	"github.com/fasehq/fase-server/pkg/model"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(ctx context.Context, membership *model.UserCompany) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *MembershipRepository) Membership(ctx context.Context, userID, companyID uuid.UUID) (*model.UserCompany, error) {
	var membership model.UserCompany
	err := r.db.WithContext(ctx).
		First(&membership, "user_id = ? AND company_id = ?", userID, companyID).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *MembershipRepository) ListMembers(ctx context.Context, companyID uuid.UUID) ([]model.UserCompany, error) {
	var members []model.UserCompany
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("company_id = ?", companyID).
		Find(&members).Error
	return members, err
}

func (r *MembershipRepository) Supervisees(ctx context.Context, supervisorID, companyID uuid.UUID) ([]model.User, error) {
	return NewUserRepository(r.db).ListSupervisees(ctx, supervisorID, companyID)
}

func (r *MembershipRepository) SetSupervisor(ctx context.Context, userID, companyID uuid.UUID, supervisorID *uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.UserCompany{}).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Updates(map[string]interface{}{
			"supervisor_id": supervisorID,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendLog writes an audit entry through this repository's handle. Inside
// WithTx the handle is the transaction, so the entry commits with the
// supervisor write.
func (r *MembershipRepository) AppendLog(ctx context.Context, entry *model.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// WithTx runs fn against a repository bound to a single database transaction.
// The hierarchy resolver uses this to keep the cycle check, the supervisor
// write and the audit append atomic.
func (r *MembershipRepository) WithTx(ctx context.Context, fn func(hierarchy.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MembershipRepository{db: tx})
	})
}
