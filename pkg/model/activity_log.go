package model

import (
	"time"

	"github.com/google/uuid"
)

type LogAction string

const (
	LogCreate LogAction = "CREATE"
	LogUpdate LogAction = "UPDATE"
	LogDelete LogAction = "DELETE"
)

func (a LogAction) Valid() bool {
	switch a {
	case LogCreate, LogUpdate, LogDelete:
		return true
	default:
		return false
	}
}

type EntityType string

const (
	EntityBigRock    EntityType = "BIG_ROCK"
	EntityTAR        EntityType = "TAR"
	EntityActivity   EntityType = "ACTIVITY"
	EntityKeyMeeting EntityType = "KEY_MEETING"
	EntityKeyPerson  EntityType = "KEY_PERSON"
	EntityUser       EntityType = "USER"
	EntityCompany    EntityType = "COMPANY"
	EntityMembership EntityType = "MEMBERSHIP"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityBigRock, EntityTAR, EntityActivity, EntityKeyMeeting,
		EntityKeyPerson, EntityUser, EntityCompany, EntityMembership:
		return true
	default:
		return false
	}
}

// ActivityLog is an append-only audit record written in the same transaction
// as the mutation it describes. Rows are never updated or deleted.
type ActivityLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Action      LogAction  `gorm:"type:varchar(20);not null;index"`
	EntityType  EntityType `gorm:"type:varchar(30);not null;index"`
	EntityID    uuid.UUID  `gorm:"type:uuid;not null"`
	Description string     `gorm:"not null"`
	Metadata    JSONB      `gorm:"type:jsonb;default:'{}'"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	User        *User      `gorm:"foreignKey:UserID"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time  `gorm:"index"`
}
