package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/nutrikit/nutrikit/internal/clock"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	planservice "github.com/nutrikit/nutrikit/internal/plan/service"
	"github.com/nutrikit/nutrikit/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	plans plandomain.Service
	subs  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&plandomain.Plan{}, &domain.Subscription{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	plans := planservice.NewService(planservice.ServiceParam{DB: db, Log: log, GenID: node})
	subs := NewService(ServiceParam{DB: db, Log: log, Clock: fc, GenID: node, Plans: plans})

	return &fixture{db: db, clock: fc, plans: plans, subs: subs}
}

func (f *fixture) seedPlan(t *testing.T, name string, price int64, model plandomain.PricingModel) plandomain.Plan {
	t.Helper()
	plan, err := f.plans.Create(context.Background(), plandomain.CreatePlanRequest{
		Name:         name,
		Price:        price,
		PricingModel: model,
	})
	require.NoError(t, err)
	return plan
}

func TestSubscribeOpensMonthlyPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, "Studio Flat", 90000, plandomain.PricingFlat)
	coachID := snowflake.ID(11)

	resolved, err := f.subs.Subscribe(ctx, coachID, plan.Code)
	require.NoError(t, err)

	assert.Equal(t, plan.ID, resolved.Plan.ID)
	assert.Equal(t, domain.StatusActive, resolved.Subscription.Status)
	assert.Equal(t, f.clock.Now(), resolved.Subscription.PeriodStart.UTC())
	assert.Equal(t, f.clock.Now().AddDate(0, 1, 0), resolved.Subscription.PeriodEnd.UTC())
}

func TestSubscribeReplacesExistingSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flat := f.seedPlan(t, "Studio Flat", 90000, plandomain.PricingFlat)
	perSeat := f.seedPlan(t, "Per Client", 20000, plandomain.PricingPerSeat)
	coachID := snowflake.ID(12)

	first, err := f.subs.Subscribe(ctx, coachID, flat.Code)
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)

	second, err := f.subs.Subscribe(ctx, coachID, perSeat.Code)
	require.NoError(t, err)

	// Same row, new plan and period.
	assert.Equal(t, first.Subscription.ID, second.Subscription.ID)
	assert.Equal(t, perSeat.ID, second.Subscription.PlanID)
	assert.Equal(t, f.clock.Now(), second.Subscription.PeriodStart.UTC())

	var count int64
	require.NoError(t, f.db.Model(&domain.Subscription{}).Where("coach_id = ?", coachID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubscribeUnknownPlan(t *testing.T) {
	f := newFixture(t)

	_, err := f.subs.Subscribe(context.Background(), snowflake.ID(13), "nope")
	assert.ErrorIs(t, err, plandomain.ErrNotFound)
}

func TestResolveWithoutSubscription(t *testing.T) {
	f := newFixture(t)

	_, err := f.subs.Resolve(context.Background(), snowflake.ID(14))
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
}
