package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound    = errors.New("client_not_found")
	ErrInvalidName = errors.New("invalid_client_name")
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Client is a coachee on a coach's roster.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CoachID   snowflake.ID `gorm:"index" json:"coach_id"`
	Name      string       `json:"name"`
	Phone     *string      `json:"phone,omitempty"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

// ChatMessage is a single message exchanged with a client. Only the
// timestamp and direction matter for engagement scoring.
type ChatMessage struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ClientID  snowflake.ID `gorm:"index" json:"client_id"`
	Direction Direction    `json:"direction"`
	Body      string       `json:"body,omitempty"`
	SentAt    time.Time    `gorm:"index" json:"sent_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// ProgressRecord is a logged check-in (weight, measurement, photo upload).
type ProgressRecord struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ClientID   snowflake.ID `gorm:"index" json:"client_id"`
	Kind       string       `json:"kind,omitempty"`
	RecordedAt time.Time    `gorm:"index" json:"recorded_at"`
}

func (ProgressRecord) TableName() string { return "progress_records" }

type CreateClientRequest struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
}

type Service interface {
	List(ctx context.Context, coachID snowflake.ID) ([]Client, error)
	Create(ctx context.Context, coachID snowflake.ID, req CreateClientRequest) (Client, error)

	// CountActive returns the coach's current active roster size, used for
	// per-seat billing.
	CountActive(ctx context.Context, coachID snowflake.ID) (int64, error)

	// RecordMessage and RecordProgress ingest activity events that feed the
	// engagement scorer.
	RecordMessage(ctx context.Context, clientID snowflake.ID, direction Direction, body string, sentAt time.Time) (ChatMessage, error)
	RecordProgress(ctx context.Context, clientID snowflake.ID, kind string, recordedAt time.Time) (ProgressRecord, error)
}
