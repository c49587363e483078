package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Company struct {
	ID        uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string        `gorm:"not null"`
	Slug      string        `gorm:"uniqueIndex;not null"`
	Members   []UserCompany `gorm:"foreignKey:CompanyID"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// UserCompany is the membership edge between a user and a company. The
// optional SupervisorID forms a per-company supervisor forest: the supervisor
// must itself hold a membership row in the same company, and the graph
// restricted to one company is acyclic by construction (enforced by the
// hierarchy resolver before any assignment is written).
type UserCompany struct {
	UserID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	User         *User      `gorm:"foreignKey:UserID"`
	Company      *Company   `gorm:"foreignKey:CompanyID"`
	SupervisorID *uuid.UUID `gorm:"type:uuid;index"`
	AIContext    JSONB      `gorm:"type:jsonb;default:'{}'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
