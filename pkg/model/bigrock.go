package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is one of the four fixed FASE tags used for progress grouping.
type Category string

const (
	CategoryFocus    Category = "FOCUS"
	CategoryAtencion Category = "ATENCION"
	CategorySistemas Category = "SISTEMAS"
	CategoryEnergia  Category = "ENERGIA"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFocus, CategoryAtencion, CategorySistemas, CategoryEnergia:
		return true
	default:
		return false
	}
}

func Categories() []Category {
	return []Category{CategoryFocus, CategoryAtencion, CategorySistemas, CategoryEnergia}
}

// BigRock is a top-level monthly strategic goal owned by a user within a
// company. Month uses the "2006-01" form.
type BigRock struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	Month       string       `gorm:"type:varchar(7);not null;index"`
	Category    Category     `gorm:"type:varchar(20);not null"`
	Completed   bool         `gorm:"default:false"`
	TARs        []TAR        `gorm:"foreignKey:BigRockID"`
	KeyMeetings []KeyMeeting `gorm:"foreignKey:BigRockID"`
	KeyPeople   []KeyPerson  `gorm:"foreignKey:BigRockID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// TAR is a sub-task under a Big Rock.
type TAR struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BigRockID   uuid.UUID `gorm:"type:uuid;not null;index"`
	BigRock     *BigRock  `gorm:"foreignKey:BigRockID"`
	Title       string    `gorm:"not null"`
	DueDate     time.Time `gorm:"not null"`
	Completed   bool      `gorm:"default:false"`
	CompletedAt *time.Time
	Activities  []Activity `gorm:"foreignKey:TARID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

type Activity struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TARID     uuid.UUID `gorm:"type:uuid;not null;index"`
	TAR       *TAR      `gorm:"foreignKey:TARID"`
	Title     string    `gorm:"not null"`
	Date      time.Time `gorm:"not null;index"`
	Completed bool      `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type KeyMeeting struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BigRockID uuid.UUID `gorm:"type:uuid;not null;index"`
	BigRock   *BigRock  `gorm:"foreignKey:BigRockID"`
	Title     string    `gorm:"not null"`
	Date      time.Time `gorm:"not null;index"`
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type KeyPerson struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BigRockID uuid.UUID `gorm:"type:uuid;not null;index"`
	BigRock   *BigRock  `gorm:"foreignKey:BigRockID"`
	Name      string    `gorm:"not null"`
	RoleTitle string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
