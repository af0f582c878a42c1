package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/invite/domain"
	"github.com/oklog/ulid/v2"
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
		log:   p.Log.Named("invite.service"),
		clock: p.Clock,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInviteRequest) (domain.Invite, error) {
	now := s.clock.Now().UTC()
	code, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return domain.Invite{}, err
	}

	invite := domain.Invite{
		ID:        s.genID.Generate(),
		Code:      code.String(),
		CoachID:   req.CoachID,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		return domain.Invite{}, err
	}
	return invite, nil
}

func (s *Service) Redeem(ctx context.Context, code string, userID snowflake.ID) (domain.Invite, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Invite{}, domain.ErrNotFound
	}

	var invite domain.Invite
	err := s.db.WithContext(ctx).First(&invite, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invite{}, domain.ErrNotFound
		}
		return domain.Invite{}, err
	}

	now := s.clock.Now().UTC()
	if invite.UsedBy != nil {
		return domain.Invite{}, domain.ErrAlreadyUsed
	}
	if invite.ExpiresAt != nil && invite.ExpiresAt.Before(now) {
		return domain.Invite{}, domain.ErrExpired
	}

	// The used_by guard makes redemption first-writer-wins under
	// concurrent attempts.
	res := s.db.WithContext(ctx).Exec(`
		UPDATE invites SET used_by = ?, used_at = ? WHERE id = ? AND used_by IS NULL
	`, userID, now, invite.ID)
	if res.Error != nil {
		return domain.Invite{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Invite{}, domain.ErrAlreadyUsed
	}

	if invite.CoachID != nil {
		err := s.db.WithContext(ctx).Exec(`
			UPDATE users SET coach_id = ? WHERE id = ?
		`, *invite.CoachID, userID).Error
		if err != nil {
			return domain.Invite{}, err
		}
	}

	invite.UsedBy = &userID
	invite.UsedAt = &now
	s.log.Info("invite redeemed",
		zap.String("code", invite.Code),
		zap.String("user_id", userID.String()),
	)
	return invite, nil
}
