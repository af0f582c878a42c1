package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/invite/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
	svc   domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Invite{}, &authdomain.User{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), Clock: fc, GenID: node})
	return &fixture{db: db, clock: fc, node: node, svc: svc}
}

func TestRedeemOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invite, err := f.svc.Create(ctx, domain.CreateInviteRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, invite.Code)

	userA := f.node.Generate()
	userB := f.node.Generate()

	redeemed, err := f.svc.Redeem(ctx, invite.Code, userA)
	require.NoError(t, err)
	require.NotNil(t, redeemed.UsedBy)
	assert.Equal(t, userA, *redeemed.UsedBy)

	_, err = f.svc.Redeem(ctx, invite.Code, userB)
	assert.ErrorIs(t, err, domain.ErrAlreadyUsed)
}

func TestRedeemUnknownCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Redeem(context.Background(), "NOPE", f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedeemExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expires := f.clock.Now().Add(time.Hour)
	invite, err := f.svc.Create(ctx, domain.CreateInviteRequest{ExpiresAt: &expires})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.Redeem(ctx, invite.Code, f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestRedeemBindsCoach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	coachID := f.node.Generate()
	user := authdomain.User{ID: f.node.Generate(), Email: "client@example.com", DisplayName: "Client"}
	require.NoError(t, f.db.Create(&user).Error)

	invite, err := f.svc.Create(ctx, domain.CreateInviteRequest{CoachID: &coachID})
	require.NoError(t, err)

	_, err = f.svc.Redeem(ctx, invite.Code, user.ID)
	require.NoError(t, err)

	var got authdomain.User
	require.NoError(t, f.db.First(&got, "id = ?", user.ID).Error)
	require.NotNil(t, got.CoachID)
	assert.Equal(t, coachID, *got.CoachID)
}
