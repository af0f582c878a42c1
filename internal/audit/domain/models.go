package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records an admin-visible state change (invoice verified,
// settings updated, invite redeemed).
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    *snowflake.ID     `json:"actor_id,omitempty"`
	Action     string            `gorm:"index" json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   *string           `json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Service interface {
	Record(ctx context.Context, actorID *snowflake.ID, action, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, limit int) ([]AuditLog, error)
}
