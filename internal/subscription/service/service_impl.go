package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/nutrikit/nutrikit/internal/clock"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	"github.com/nutrikit/nutrikit/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Plans plandomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	plans plandomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		clock: p.Clock,
		genID: p.GenID,
		plans: p.Plans,
	}
}

func (s *Service) Subscribe(ctx context.Context, coachID snowflake.ID, planCode string) (domain.Resolved, error) {
	plan, err := s.plans.GetByCode(ctx, planCode)
	if err != nil {
		return domain.Resolved{}, err
	}

	now := s.clock.Now().UTC()
	periodEnd := now.AddDate(0, 1, 0)

	// One row per coach. Re-subscribing moves the coach onto the new plan
	// and restarts the billing period.
	err = s.db.WithContext(ctx).Exec(`
		INSERT INTO subscriptions (id, coach_id, plan_id, status, period_start, period_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (coach_id) DO UPDATE SET
			plan_id = excluded.plan_id,
			status = excluded.status,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			updated_at = excluded.updated_at
	`, s.genID.Generate(), coachID, plan.ID, domain.StatusActive, now, periodEnd, now, now).Error
	if err != nil {
		return domain.Resolved{}, err
	}

	s.log.Info("coach subscribed",
		zap.String("coach_id", coachID.String()),
		zap.String("plan_code", plan.Code),
	)
	return s.Resolve(ctx, coachID)
}

func (s *Service) Resolve(ctx context.Context, coachID snowflake.ID) (domain.Resolved, error) {
	var sub domain.Subscription
	err := s.db.WithContext(ctx).First(&sub, "coach_id = ?", coachID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Resolved{}, domain.ErrNoSubscription
		}
		return domain.Resolved{}, err
	}

	var plan plandomain.Plan
	if err := s.db.WithContext(ctx).First(&plan, "id = ?", sub.PlanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Resolved{}, plandomain.ErrNotFound
		}
		return domain.Resolved{}, err
	}
	return domain.Resolved{Subscription: sub, Plan: plan}, nil
}
