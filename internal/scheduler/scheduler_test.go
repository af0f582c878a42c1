package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clientdomain "github.com/nutrikit/nutrikit/internal/client/domain"
	clientservice "github.com/nutrikit/nutrikit/internal/client/service"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	engagementservice "github.com/nutrikit/nutrikit/internal/engagement/service"
	"github.com/nutrikit/nutrikit/internal/providers/whatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRunOnceCountsRedClients(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&clientdomain.ChatMessage{},
		&clientdomain.ProgressRecord{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	clients := clientservice.NewService(clientservice.ServiceParam{DB: db, Log: log, Clock: fc, GenID: node})
	engagement := engagementservice.NewService(engagementservice.ServiceParam{
		DB:       db,
		Log:      log,
		Clock:    fc,
		Holder:   config.NewStaticIntelligenceHolder(config.DefaultIntelligenceConfig()),
		WhatsApp: whatsapp.NoOpProvider{},
	})

	coachID := node.Generate()
	active, err := clients.Create(context.Background(), coachID, clientdomain.CreateClientRequest{Name: "active"})
	require.NoError(t, err)
	_, err = clients.Create(context.Background(), coachID, clientdomain.CreateClientRequest{Name: "silent"})
	require.NoError(t, err)
	_, err = clients.RecordMessage(context.Background(), active.ID, clientdomain.DirectionInbound, "hi", fc.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	sched, err := New(Params{DB: db, Log: log, Clock: fc, EngagementSvc: engagement})
	require.NoError(t, err)

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
