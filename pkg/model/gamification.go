package model

import (
	"time"

	"github.com/google/uuid"
)

// Score holds the monotonically increasing point total for a user within a
// company. Level is derived from Points by the engine's progression curve and
// stored denormalized for cheap reads.
type Score struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Points    int       `gorm:"default:0;not null"`
	Level     int       `gorm:"default:1;not null"`
	UpdatedAt time.Time
}

// Streak counts consecutive qualifying days. LastActiveOn stores the date
// (midnight UTC) of the most recent qualifying action.
type Streak struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Current      int       `gorm:"default:0;not null"`
	Longest      int       `gorm:"default:0;not null"`
	LastActiveOn *time.Time
	UpdatedAt    time.Time
}

type MedalCode string

const (
	MedalFirstRock   MedalCode = "FIRST_ROCK"
	MedalPoints500   MedalCode = "POINTS_500"
	MedalPoints2000  MedalCode = "POINTS_2000"
	MedalStreakWeek  MedalCode = "STREAK_7"
	MedalStreakMonth MedalCode = "STREAK_30"
	MedalLevelFive   MedalCode = "LEVEL_5"
)

// Medal is awarded once per (user, company, code); re-awarding is a no-op
// enforced by the composite primary key.
type Medal struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code      MedalCode `gorm:"type:varchar(30);primaryKey"`
	AwardedAt time.Time
}
