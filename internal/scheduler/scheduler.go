// Package scheduler runs periodic background sweeps over engagement data.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nutrikit/nutrikit/internal/clock"
	engagementdomain "github.com/nutrikit/nutrikit/internal/engagement/domain"
	"github.com/nutrikit/nutrikit/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler dependencies missing")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	EngagementSvc engagementdomain.Service
	Metrics       *metrics.Metrics `optional:"true"`
}

type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	engagementSvc engagementdomain.Service
	metrics       *metrics.Metrics
	interval      time.Duration
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.EngagementSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:            p.DB,
		log:           p.Log.Named("scheduler"),
		clock:         p.Clock,
		engagementSvc: p.EngagementSvc,
		metrics:       p.Metrics,
		interval:      15 * time.Minute,
	}, nil
}

// RunOnce recomputes red-risk counts for every coach with an active
// roster and publishes them as gauges.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var coachIDs []snowflake.ID
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT coach_id FROM clients WHERE active = ?
	`, true).Scan(&coachIDs).Error
	if err != nil {
		return err
	}

	var errs error
	for _, coachID := range coachIDs {
		risks, err := s.engagementSvc.ScoreClients(ctx, coachID)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		red := 0
		for _, r := range risks {
			if r.Band == engagementdomain.BandRed {
				red++
			}
		}
		if s.metrics != nil {
			s.metrics.SetRedRiskClients(coachID.String(), red)
		}
		if red > 0 {
			s.log.Debug("risk sweep",
				zap.String("coach_id", coachID.String()),
				zap.Int("red_clients", red),
			)
		}
	}
	return errs
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("risk sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
