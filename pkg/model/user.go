package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperadmin Role = "SUPERADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupervisor, RoleAdmin, RoleSuperadmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role grants unrestricted visibility.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

type UserStatus string

const (
	UserInvited     UserStatus = "INVITED"
	UserActive      UserStatus = "ACTIVE"
	UserDeactivated UserStatus = "DEACTIVATED"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserInvited, UserActive, UserDeactivated:
		return true
	default:
		return false
	}
}

// User is never hard-deleted; lifecycle runs through Status transitions.
type User struct {
	ID           uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string        `gorm:"uniqueIndex;not null"`
	Name         string        `gorm:"not null"`
	PasswordHash string        `gorm:"not null"`
	Role         Role          `gorm:"type:varchar(20);default:'USER';not null"`
	Status       UserStatus    `gorm:"type:varchar(20);default:'INVITED';not null"`
	Memberships  []UserCompany `gorm:"foreignKey:UserID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
