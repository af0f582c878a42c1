package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound    = errors.New("invite_not_found")
	ErrAlreadyUsed = errors.New("invite_already_used")
	ErrExpired     = errors.New("invite_expired")
)

// Invite is a single-use onboarding code. A coach-issued invite binds the
// redeeming user to that coach.
type Invite struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Code      string        `gorm:"uniqueIndex" json:"code"`
	CoachID   *snowflake.ID `json:"coach_id,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	UsedBy    *snowflake.ID `json:"used_by,omitempty"`
	UsedAt    *time.Time    `json:"used_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (Invite) TableName() string { return "invites" }

type CreateInviteRequest struct {
	CoachID   *snowflake.ID `json:"coach_id,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateInviteRequest) (Invite, error)

	// Redeem consumes the code for the given user. Exactly one redeemer
	// wins; later attempts see ErrAlreadyUsed.
	Redeem(ctx context.Context, code string, userID snowflake.ID) (Invite, error)
}
