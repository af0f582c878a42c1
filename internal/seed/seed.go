// Package seed bootstraps reference data so a fresh install is usable
// without manual setup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@nutrikit.app"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "Nutrikit Admin"
)

// EnsureDefaults seeds the starter plans and the default admin account.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePlans(ctx, tx, node); err != nil {
			return err
		}
		return ensureAdmin(ctx, tx, node)
	})
}

func ensurePlans(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	defaults := []plandomain.Plan{
		{Code: "studio-flat", Name: "Studio Flat", Price: 90000, PricingModel: plandomain.PricingFlat},
		{Code: "per-client", Name: "Per Client", Price: 20000, PricingModel: plandomain.PricingPerSeat},
	}
	for _, plan := range defaults {
		var existing plandomain.Plan
		err := tx.WithContext(ctx).First(&existing, "code = ?", plan.Code).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		plan.ID = node.Generate()
		plan.BillingPeriod = plandomain.BillingMonthly
		plan.Active = true
		if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureAdmin(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var user authdomain.User
	err := tx.WithContext(ctx).First(&user, "email = ?", defaultAdminEmail).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hash := string(hashed)
	now := time.Now().UTC()
	user = authdomain.User{
		ID:                  node.Generate(),
		Email:               defaultAdminEmail,
		DisplayName:         defaultAdminDisplay,
		PasswordHash:        &hash,
		Roles:               pq.StringArray{authdomain.RoleAdmin},
		LastPasswordChanged: &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return tx.WithContext(ctx).Create(&user).Error
}
