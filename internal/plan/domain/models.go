// Package domain contains the coaching plan catalog models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PricingModel selects how a plan's price turns into an invoice amount.
type PricingModel string

const (
	// PricingFlat bills the plan price once per period.
	PricingFlat PricingModel = "flat"
	// PricingPerSeat bills the plan price per active client.
	PricingPerSeat PricingModel = "per_seat"
)

// BillingPeriod is the cadence a plan bills on. Only monthly is offered.
type BillingPeriod string

const BillingMonthly BillingPeriod = "monthly"

// Plan is a priced coaching offering. Price is in minor currency units.
type Plan struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	Code          string        `gorm:"uniqueIndex;not null"`
	Name          string        `gorm:"not null"`
	Price         int64         `gorm:"not null"`
	PricingModel  PricingModel  `gorm:"type:text;not null"`
	BillingPeriod BillingPeriod `gorm:"type:text;not null"`
	Active        bool          `gorm:"not null;default:true"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

type CreatePlanRequest struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Price        int64        `json:"price"`
	PricingModel PricingModel `json:"pricing_model"`
}

type Service interface {
	List(ctx context.Context) ([]Plan, error)
	// GetByCode returns an active plan. Unknown or inactive codes are
	// both reported as ErrNotFound.
	GetByCode(ctx context.Context, code string) (Plan, error)
	Create(ctx context.Context, req CreatePlanRequest) (Plan, error)
}

var (
	ErrNotFound            = errors.New("plan_not_found")
	ErrInvalidPricingModel = errors.New("invalid_pricing_model")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidName         = errors.New("invalid_name")
	ErrCodeTaken           = errors.New("plan_code_taken")
)
