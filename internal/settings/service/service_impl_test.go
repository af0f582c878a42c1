package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T, cfg config.Config) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Setting{}))

	return NewService(ServiceParam{DB: db, Log: zap.NewNop(), Cfg: cfg})
}

func TestGetFallsBackToEnvironment(t *testing.T) {
	svc := newService(t, config.Config{UPIVPAFallback: "env@upi", UPINameFallback: "Env Coach"})
	ctx := context.Background()

	val, err := svc.Get(ctx, domain.KeyUPIVPA)
	require.NoError(t, err)
	assert.Equal(t, "env@upi", val)

	// A stored row wins over the environment default.
	require.NoError(t, svc.Upsert(ctx, domain.KeyUPIVPA, "db@upi"))
	val, err = svc.Get(ctx, domain.KeyUPIVPA)
	require.NoError(t, err)
	assert.Equal(t, "db@upi", val)
}

func TestUpsertOverwrites(t *testing.T) {
	svc := newService(t, config.Config{})
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, domain.KeyUPIName, "First"))
	require.NoError(t, svc.Upsert(ctx, domain.KeyUPIName, "  Second  "))

	val, err := svc.Get(ctx, domain.KeyUPIName)
	require.NoError(t, err)
	assert.Equal(t, "Second", val)
}

func TestGetUnknownKeyUnsetEverywhere(t *testing.T) {
	svc := newService(t, config.Config{})

	val, err := svc.Get(context.Background(), "smtp_banner")
	require.NoError(t, err)
	assert.Empty(t, val)

	_, err = svc.Get(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestUPICollection(t *testing.T) {
	svc := newService(t, config.Config{})
	ctx := context.Background()

	collection, err := svc.UPICollection(ctx)
	require.NoError(t, err)
	assert.Empty(t, collection.VPA)
	assert.Empty(t, collection.PayeeName)

	require.NoError(t, svc.Upsert(ctx, domain.KeyUPIVPA, "coach@okhdfc"))
	require.NoError(t, svc.Upsert(ctx, domain.KeyUPIName, "Nutrikit Studio"))

	collection, err = svc.UPICollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UPICollection{VPA: "coach@okhdfc", PayeeName: "Nutrikit Studio"}, collection)
}
