package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/nutrikit/nutrikit/internal/client/domain"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/engagement/domain"
	"github.com/nutrikit/nutrikit/internal/observability/metrics"
	"github.com/nutrikit/nutrikit/internal/providers/whatsapp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Holder   *config.IntelligenceConfigHolder
	WhatsApp whatsapp.Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	holder   *config.IntelligenceConfigHolder
	whatsapp whatsapp.Provider
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("engagement.service"),
		clock:    p.Clock,
		holder:   p.Holder,
		whatsapp: p.WhatsApp,
		metrics:  p.Metrics,
	}
}

func (s *Service) ScoreClients(ctx context.Context, coachID snowflake.ID) ([]domain.ClientRisk, error) {
	var roster []clientdomain.Client
	err := s.db.WithContext(ctx).
		Where("coach_id = ? AND active = ?", coachID, true).
		Order("created_at ASC, id ASC").
		Find(&roster).Error
	if err != nil {
		return nil, err
	}

	cfg := s.holder.Get()
	now := s.clock.Now().UTC()

	risks := make([]domain.ClientRisk, 0, len(roster))
	for _, c := range roster {
		lastMessage, err := s.lastMessageAt(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		lastProgress, err := s.lastProgressAt(ctx, c.ID)
		if err != nil {
			return nil, err
		}

		last := latest(lastMessage, lastProgress)
		risk := domain.ClientRisk{
			ClientID:   c.ID,
			ClientName: c.Name,
			Phone:      c.Phone,
		}
		if last == nil {
			// Never active counts as maximally stale.
			risk.Band = domain.BandRed
			risk.ElapsedDays = -1
		} else {
			t := last.UTC()
			risk.LastActivity = &t
			risk.ElapsedDays = now.Sub(t).Hours() / 24
			risk.Band = band(risk.ElapsedDays, cfg)
		}
		risks = append(risks, risk)
	}
	return risks, nil
}

// Timestamps are read through the typed models so time decoding works on
// every dialect the connector supports.
func (s *Service) lastMessageAt(ctx context.Context, clientID snowflake.ID) (*time.Time, error) {
	var msg clientdomain.ChatMessage
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("sent_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg.SentAt, nil
}

func (s *Service) lastProgressAt(ctx context.Context, clientID snowflake.ID) (*time.Time, error) {
	var rec clientdomain.ProgressRecord
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("recorded_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec.RecordedAt, nil
}

func (s *Service) BuildAlerts(ctx context.Context, coachID snowflake.ID) ([]domain.Alert, error) {
	risks, err := s.ScoreClients(ctx, coachID)
	if err != nil {
		return nil, err
	}

	// Two passes keep high-priority alerts first while preserving the
	// roster evaluation order within each priority.
	alerts := make([]domain.Alert, 0, len(risks))
	for _, r := range risks {
		if r.Band == domain.BandRed {
			alerts = append(alerts, domain.Alert{
				ClientID:   r.ClientID,
				ClientName: r.ClientName,
				Priority:   domain.PriorityHigh,
				Message:    alertMessage(r),
			})
		}
	}
	for _, r := range risks {
		if r.Band == domain.BandYellow {
			alerts = append(alerts, domain.Alert{
				ClientID:   r.ClientID,
				ClientName: r.ClientName,
				Priority:   domain.PriorityMedium,
				Message:    alertMessage(r),
			})
		}
	}
	return alerts, nil
}

func (s *Service) NudgeAllRed(ctx context.Context, coachID snowflake.ID) (domain.NudgeResult, error) {
	risks, err := s.ScoreClients(ctx, coachID)
	if err != nil {
		return domain.NudgeResult{}, err
	}

	var result domain.NudgeResult
	for _, r := range risks {
		if r.Band != domain.BandRed || r.Phone == nil || *r.Phone == "" {
			continue
		}
		result.Attempted++

		body := fmt.Sprintf("Hi %s! We miss you. Log a quick check-in or drop your coach a message to stay on track.", r.ClientName)
		if err := s.whatsapp.SendText(ctx, *r.Phone, body); err != nil {
			// Best effort. A failed send never fails the batch.
			s.log.Warn("nudge send failed",
				zap.String("client_id", r.ClientID.String()),
				zap.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordNudgeSend(false)
			}
			continue
		}
		result.Sent++
		if s.metrics != nil {
			s.metrics.RecordNudgeSend(true)
		}
	}

	s.log.Info("nudge fan-out complete",
		zap.String("coach_id", coachID.String()),
		zap.Int("attempted", result.Attempted),
		zap.Int("sent", result.Sent),
	)
	return result, nil
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.After(*b):
		return a
	default:
		return b
	}
}

func band(elapsedDays float64, cfg config.IntelligenceConfig) domain.Band {
	switch {
	case elapsedDays <= float64(cfg.GreenMaxDays):
		return domain.BandGreen
	case elapsedDays <= float64(cfg.YellowMaxDays):
		return domain.BandYellow
	default:
		return domain.BandRed
	}
}

func alertMessage(r domain.ClientRisk) string {
	if r.LastActivity == nil {
		return fmt.Sprintf("%s has never logged any activity", r.ClientName)
	}
	return fmt.Sprintf("%s has been inactive for %.0f days", r.ClientName, r.ElapsedDays)
}
