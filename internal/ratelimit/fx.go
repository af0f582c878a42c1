package ratelimit

import (
	"time"

	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultLimit  = 30
	defaultPeriod = time.Minute
)

func NewLimiter(cfg *config.Config, clk clock.Clock, log *zap.Logger) Limiter {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Named("ratelimit").Info("using redis token bucket", zap.String("addr", cfg.RedisAddr))
		return NewTokenBucket(client, defaultLimit, defaultPeriod)
	}
	return NewFixedWindow(defaultLimit, defaultPeriod, clk)
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewLimiter),
)
