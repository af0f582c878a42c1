// Package domain contains the key-value settings model.
package domain

import (
	"context"
	"errors"
	"time"
)

// Setting is a process-wide configuration row keyed by a unique name.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Setting) TableName() string { return "settings" }

const (
	KeyUPIVPA  = "upi_vpa"
	KeyUPIName = "upi_name"
)

// UPICollection is the payment-collection identity used to build pay links.
// Either field may be empty when collection is not configured.
type UPICollection struct {
	VPA       string `json:"upi_vpa"`
	PayeeName string `json:"upi_name"`
}

type Service interface {
	// Get reads a setting, falling back to its environment default when
	// no row exists. Returns empty string when unset everywhere.
	Get(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, value string) error
	// UPICollection resolves both UPI settings in one call.
	UPICollection(ctx context.Context) (UPICollection, error)
}

var ErrInvalidKey = errors.New("invalid_setting_key")
