package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nutrikit/nutrikit/internal/client/domain"
	"github.com/nutrikit/nutrikit/internal/clock"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		clock: p.Clock,
		genID: p.GenID,
	}
}

func (s *Service) List(ctx context.Context, coachID snowflake.ID) ([]domain.Client, error) {
	var clients []domain.Client
	err := s.db.WithContext(ctx).
		Where("coach_id = ?", coachID).
		Order("created_at ASC").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Service) Create(ctx context.Context, coachID snowflake.ID, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	client := domain.Client{
		ID:      s.genID.Generate(),
		CoachID: coachID,
		Name:    name,
		Phone:   req.Phone,
		Active:  true,
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

func (s *Service) CountActive(ctx context.Context, coachID snowflake.ID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("coach_id = ? AND active = ?", coachID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) RecordMessage(ctx context.Context, clientID snowflake.ID, direction domain.Direction, body string, sentAt time.Time) (domain.ChatMessage, error) {
	if err := s.ensureClient(ctx, clientID); err != nil {
		return domain.ChatMessage{}, err
	}
	if sentAt.IsZero() {
		sentAt = s.clock.Now().UTC()
	}
	msg := domain.ChatMessage{
		ID:        s.genID.Generate(),
		ClientID:  clientID,
		Direction: direction,
		Body:      body,
		SentAt:    sentAt,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

func (s *Service) RecordProgress(ctx context.Context, clientID snowflake.ID, kind string, recordedAt time.Time) (domain.ProgressRecord, error) {
	if err := s.ensureClient(ctx, clientID); err != nil {
		return domain.ProgressRecord{}, err
	}
	if recordedAt.IsZero() {
		recordedAt = s.clock.Now().UTC()
	}
	rec := domain.ProgressRecord{
		ID:         s.genID.Generate(),
		ClientID:   clientID,
		Kind:       kind,
		RecordedAt: recordedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.ProgressRecord{}, err
	}
	return rec, nil
}

func (s *Service) ensureClient(ctx context.Context, clientID snowflake.ID) error {
	var client domain.Client
	err := s.db.WithContext(ctx).Select("id").First(&client, "id = ?", clientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}
