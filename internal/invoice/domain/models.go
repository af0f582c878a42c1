package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound = errors.New("invoice_not_found")
)

type Status string

const (
	// StatusDue invoices are live: amount and client snapshot are
	// recomputed on every fetch until the invoice is settled.
	StatusDue Status = "due"
	// StatusSubmitted marks a payment proof awaiting admin verification.
	StatusSubmitted Status = "submitted"
	StatusPaid      Status = "paid"
)

// Invoice is the monthly bill for a coach, unique per (coach_id, period).
type Invoice struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	CoachID     snowflake.ID  `gorm:"uniqueIndex:idx_invoices_coach_period" json:"coach_id"`
	Period      string        `gorm:"uniqueIndex:idx_invoices_coach_period" json:"period"`
	Reference   string        `gorm:"uniqueIndex" json:"reference"`
	Amount      int64         `json:"amount"`
	ClientCount int64         `json:"client_count"`
	PlanID      *snowflake.ID `json:"plan_id,omitempty"`
	Status      Status        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// Settled reports whether the amount and snapshot are frozen.
func (i Invoice) Settled() bool { return i.Status != StatusDue }

type Service interface {
	// GetOrCreate returns the coach's invoice for the current period,
	// creating it on first call. While the invoice is due, amount, plan
	// reference and client snapshot are recomputed from live data.
	GetOrCreate(ctx context.Context, coachID snowflake.ID) (Invoice, error)

	// Verify marks the invoice paid. Idempotent.
	Verify(ctx context.Context, invoiceID snowflake.ID) (Invoice, error)

	// ListOpen returns every due or submitted invoice across coaches.
	ListOpen(ctx context.Context) ([]Invoice, error)
}
