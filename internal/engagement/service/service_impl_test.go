package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clientdomain "github.com/nutrikit/nutrikit/internal/client/domain"
	clientservice "github.com/nutrikit/nutrikit/internal/client/service"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/engagement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSender struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeSender) SendText(ctx context.Context, to, body string) error {
	if f.failFor[to] {
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, to)
	return nil
}

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	node    *snowflake.Node
	clients clientdomain.Service
	sender  *fakeSender
	svc     domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&clientdomain.ChatMessage{},
		&clientdomain.ProgressRecord{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	sender := &fakeSender{failFor: map[string]bool{}}

	clients := clientservice.NewService(clientservice.ServiceParam{DB: db, Log: log, Clock: fc, GenID: node})
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      log,
		Clock:    fc,
		Holder:   config.NewStaticIntelligenceHolder(config.DefaultIntelligenceConfig()),
		WhatsApp: sender,
	})

	return &fixture{db: db, clock: fc, node: node, clients: clients, sender: sender, svc: svc}
}

func (f *fixture) addClient(t *testing.T, coachID snowflake.ID, name string, phone *string) clientdomain.Client {
	t.Helper()
	c, err := f.clients.Create(context.Background(), coachID, clientdomain.CreateClientRequest{Name: name, Phone: phone})
	require.NoError(t, err)
	return c
}

func (f *fixture) logActivity(t *testing.T, clientID snowflake.ID, daysAgo float64) {
	t.Helper()
	at := f.clock.Now().Add(-time.Duration(daysAgo * 24 * float64(time.Hour)))
	_, err := f.clients.RecordMessage(context.Background(), clientID, clientdomain.DirectionInbound, "hi", at)
	require.NoError(t, err)
}

func strptr(s string) *string { return &s }

func TestScoreClientsBands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()

	fresh := f.addClient(t, coachID, "fresh", nil)
	greenEdge := f.addClient(t, coachID, "green-edge", nil)
	drifting := f.addClient(t, coachID, "drifting", nil)
	yellowEdge := f.addClient(t, coachID, "yellow-edge", nil)
	gone := f.addClient(t, coachID, "gone", nil)
	f.addClient(t, coachID, "ghost", nil)

	f.logActivity(t, fresh.ID, 1)
	f.logActivity(t, greenEdge.ID, 2)
	f.logActivity(t, drifting.ID, 3)
	f.logActivity(t, yellowEdge.ID, 5)
	f.logActivity(t, gone.ID, 7)

	risks, err := f.svc.ScoreClients(ctx, coachID)
	require.NoError(t, err)
	require.Len(t, risks, 6)

	byName := map[string]domain.ClientRisk{}
	for _, r := range risks {
		byName[r.ClientName] = r
	}
	assert.Equal(t, domain.BandGreen, byName["fresh"].Band)
	// Breakpoints are inclusive: exactly 2 days is still green, exactly
	// 5 days is still yellow.
	assert.Equal(t, domain.BandGreen, byName["green-edge"].Band)
	assert.Equal(t, domain.BandYellow, byName["drifting"].Band)
	assert.Equal(t, domain.BandYellow, byName["yellow-edge"].Band)
	assert.Equal(t, domain.BandRed, byName["gone"].Band)
	assert.Equal(t, domain.BandRed, byName["ghost"].Band)
	assert.Nil(t, byName["ghost"].LastActivity)
}

func TestScoreClientsUsesLatestOfMessageAndProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()
	c := f.addClient(t, coachID, "mixed", nil)

	// Old message, recent progress record. The progress log wins.
	f.logActivity(t, c.ID, 10)
	_, err := f.clients.RecordProgress(ctx, c.ID, "weigh-in", f.clock.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	risks, err := f.svc.ScoreClients(ctx, coachID)
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, domain.BandGreen, risks[0].Band)
}

func TestScoreClientsRespectsThresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()
	c := f.addClient(t, coachID, "edge", nil)
	f.logActivity(t, c.ID, 3)

	// Default thresholds put 3 days in yellow.
	risks, err := f.svc.ScoreClients(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, domain.BandYellow, risks[0].Band)

	// Looser thresholds move the same client back to green.
	loose := NewService(ServiceParam{
		DB:       f.db,
		Log:      zap.NewNop(),
		Clock:    f.clock,
		Holder:   config.NewStaticIntelligenceHolder(config.IntelligenceConfig{GreenMaxDays: 4, YellowMaxDays: 8}),
		WhatsApp: f.sender,
	})
	risks, err = loose.ScoreClients(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, domain.BandGreen, risks[0].Band)
}

func TestBuildAlertsPriorityOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()

	yellowFirst := f.addClient(t, coachID, "yellow-first", nil)
	red := f.addClient(t, coachID, "red", nil)
	green := f.addClient(t, coachID, "green", nil)
	yellowSecond := f.addClient(t, coachID, "yellow-second", nil)

	f.logActivity(t, yellowFirst.ID, 3)
	f.logActivity(t, red.ID, 9)
	f.logActivity(t, green.ID, 1)
	f.logActivity(t, yellowSecond.ID, 4)

	alerts, err := f.svc.BuildAlerts(ctx, coachID)
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	assert.Equal(t, domain.PriorityHigh, alerts[0].Priority)
	assert.Equal(t, "red", alerts[0].ClientName)
	assert.Equal(t, domain.PriorityMedium, alerts[1].Priority)
	assert.Equal(t, "yellow-first", alerts[1].ClientName)
	assert.Equal(t, "yellow-second", alerts[2].ClientName)
}

func TestNudgeAllRedBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	coachID := f.node.Generate()

	reachable := f.addClient(t, coachID, "reachable", strptr("+919900000001"))
	broken := f.addClient(t, coachID, "broken", strptr("+919900000002"))
	noPhone := f.addClient(t, coachID, "no-phone", nil)
	green := f.addClient(t, coachID, "green", strptr("+919900000003"))

	f.logActivity(t, reachable.ID, 8)
	f.logActivity(t, broken.ID, 8)
	f.logActivity(t, noPhone.ID, 8)
	f.logActivity(t, green.ID, 1)

	f.sender.failFor["+919900000002"] = true

	result, err := f.svc.NudgeAllRed(ctx, coachID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []string{"+919900000001"}, f.sender.sent)
}
