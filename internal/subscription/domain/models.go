package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	"gorm.io/datatypes"
)

var (
	ErrNoSubscription = errors.New("subscription_not_found")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
)

// Subscription is the single billing relationship a coach holds. A coach
// switching plans mutates this row rather than creating a new one.
type Subscription struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CoachID     snowflake.ID      `gorm:"uniqueIndex" json:"coach_id"`
	PlanID      snowflake.ID      `gorm:"index" json:"plan_id"`
	Status      Status            `json:"status"`
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Resolved pairs a subscription with the plan it points at.
type Resolved struct {
	Subscription Subscription    `json:"subscription"`
	Plan         plandomain.Plan `json:"plan"`
}

type Service interface {
	// Subscribe puts the coach on the named plan, replacing any existing
	// subscription and opening a fresh monthly period.
	Subscribe(ctx context.Context, coachID snowflake.ID, planCode string) (Resolved, error)

	// Resolve returns the coach's current subscription and plan.
	Resolve(ctx context.Context, coachID snowflake.ID) (Resolved, error)
}
