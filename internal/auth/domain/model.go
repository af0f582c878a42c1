// Package domain contains user identity models for the auth module.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

const (
	RoleAdmin = "ADMIN"
	RoleCoach = "COACH"
)

// User is an account that can authenticate against the API. Coaches are
// users carrying the COACH role; their user id doubles as the coach id
// referenced by clients, subscriptions and invoices.
type User struct {
	ID                  snowflake.ID   `gorm:"primaryKey"`
	Email               string         `gorm:"uniqueIndex;not null"`
	DisplayName         string         `gorm:"not null"`
	PasswordHash        *string        `gorm:"type:text"`
	Roles               pq.StringArray `gorm:"type:text"`
	CoachID             *snowflake.ID  `gorm:"index"`
	LastPasswordChanged *time.Time     `gorm:""`
	CreatedAt           time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is the resolved caller of a request: user id plus role set.
type Identity struct {
	UserID snowflake.ID
	Roles  []string
}

func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrUserNotFound       = errors.New("user_not_found")
)
