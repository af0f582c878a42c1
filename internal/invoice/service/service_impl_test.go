package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	clientdomain "github.com/nutrikit/nutrikit/internal/client/domain"
	clientservice "github.com/nutrikit/nutrikit/internal/client/service"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/invoice/domain"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	planservice "github.com/nutrikit/nutrikit/internal/plan/service"
	subdomain "github.com/nutrikit/nutrikit/internal/subscription/domain"
	subservice "github.com/nutrikit/nutrikit/internal/subscription/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type captureEmail struct {
	sent []string
}

func (c *captureEmail) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	c.sent = append(c.sent, subject)
	return nil
}

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	node     *snowflake.Node
	email    *captureEmail
	plans    plandomain.Service
	subs     subdomain.Service
	clients  clientdomain.Service
	invoices domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&authdomain.User{},
		&plandomain.Plan{},
		&subdomain.Subscription{},
		&clientdomain.Client{},
		&clientdomain.ChatMessage{},
		&clientdomain.ProgressRecord{},
		&domain.Invoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := &config.Config{DefaultPerClientRate: 250}

	plans := planservice.NewService(planservice.ServiceParam{DB: db, Log: log, GenID: node})
	subs := subservice.NewService(subservice.ServiceParam{DB: db, Log: log, Clock: fc, GenID: node, Plans: plans})
	clients := clientservice.NewService(clientservice.ServiceParam{DB: db, Log: log, Clock: fc, GenID: node})
	mail := &captureEmail{}
	invoices := NewService(ServiceParam{
		DB: db, Log: log, Clock: fc, GenID: node,
		Config: cfg, Subs: subs, Clients: clients, Email: mail,
	})

	return &fixture{db: db, clock: fc, node: node, email: mail, plans: plans, subs: subs, clients: clients, invoices: invoices}
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

func (f *fixture) seedClients(t *testing.T, coachID snowflake.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.clients.Create(context.Background(), coachID, clientdomain.CreateClientRequest{
			Name: fmt.Sprintf("client-%d", i),
		})
		require.NoError(t, err)
	}
}

func TestGetOrCreateFlatThenPerSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()

	flat := f.seedPlan(t, "Studio Flat", 900, plandomain.PricingFlat)
	perSeat := f.seedPlan(t, "Per Client", 200, plandomain.PricingPerSeat)
	f.seedClients(t, coachID, 3)

	_, err := f.subs.Subscribe(ctx, coachID, flat.Code)
	require.NoError(t, err)

	inv, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), inv.Amount)
	assert.Equal(t, int64(3), inv.ClientCount)
	assert.Equal(t, "2026-08", inv.Period)
	assert.Equal(t, domain.StatusDue, inv.Status)
	assert.Contains(t, inv.Reference, "INV-202608-")

	// Switching plans while due recomputes amount but keeps the reference.
	_, err = f.subs.Subscribe(ctx, coachID, perSeat.Code)
	require.NoError(t, err)

	again, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, again.ID)
	assert.Equal(t, inv.Reference, again.Reference)
	assert.Equal(t, int64(600), again.Amount)
}

func TestGetOrCreateNoSubscriptionFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()
	f.seedClients(t, coachID, 4)

	inv, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), inv.Amount)
	assert.Nil(t, inv.PlanID)
}

func TestGetOrCreateIdempotentPerPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()
	plan := f.seedPlan(t, "Per Client", 200, plandomain.PricingPerSeat)
	f.seedClients(t, coachID, 2)

	_, err := f.subs.Subscribe(ctx, coachID, plan.Code)
	require.NoError(t, err)

	first, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)

	f.seedClients(t, coachID, 1)
	second, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)

	assert.Equal(t, first.Reference, second.Reference)
	assert.Equal(t, int64(600), second.Amount)

	var count int64
	require.NoError(t, f.db.Model(&domain.Invoice{}).Where("coach_id = ?", coachID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A new period opens a new invoice with a fresh reference.
	f.clock.Advance(31 * 24 * time.Hour)
	next, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, "2026-09", next.Period)
	assert.NotEqual(t, first.Reference, next.Reference)
}

func TestVerifyFreezesInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()
	plan := f.seedPlan(t, "Per Client", 200, plandomain.PricingPerSeat)
	f.seedClients(t, coachID, 2)

	_, err := f.subs.Subscribe(ctx, coachID, plan.Code)
	require.NoError(t, err)

	inv, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), inv.Amount)

	paid, err := f.invoices.Verify(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)

	// Verify is idempotent.
	paid, err = f.invoices.Verify(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)

	// Roster growth no longer moves the settled amount or snapshot.
	f.seedClients(t, coachID, 5)
	frozen, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), frozen.Amount)
	assert.Equal(t, int64(2), frozen.ClientCount)
	assert.Equal(t, domain.StatusPaid, frozen.Status)
}

func TestInvoiceCreationEmailsCoach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()

	require.NoError(t, f.db.Create(&authdomain.User{
		ID:          coachID,
		Email:       "coach@example.com",
		DisplayName: "Coach",
		Roles:       []string{authdomain.RoleCoach},
	}).Error)

	plan := f.seedPlan(t, "Studio Flat", 900, plandomain.PricingFlat)
	f.seedClients(t, coachID, 1)
	_, err := f.subs.Subscribe(ctx, coachID, plan.Code)
	require.NoError(t, err)

	inv, err := f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	require.Len(t, f.email.sent, 1)
	assert.Contains(t, f.email.sent[0], inv.Reference)

	// Refreshing the same period does not resend.
	_, err = f.invoices.GetOrCreate(ctx, coachID)
	require.NoError(t, err)
	assert.Len(t, f.email.sent, 1)
}

func TestVerifyUnknownInvoice(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoices.Verify(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOpenExcludesPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.seedPlan(t, "Studio Flat", 900, plandomain.PricingFlat)

	coachA := f.node.Generate()
	coachB := f.node.Generate()
	for _, id := range []snowflake.ID{coachA, coachB} {
		_, err := f.subs.Subscribe(ctx, id, plan.Code)
		require.NoError(t, err)
		_, err = f.invoices.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	invA, err := f.invoices.GetOrCreate(ctx, coachA)
	require.NoError(t, err)
	_, err = f.invoices.Verify(ctx, invA.ID)
	require.NoError(t, err)

	open, err := f.invoices.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, coachB, open[0].CoachID)
}
