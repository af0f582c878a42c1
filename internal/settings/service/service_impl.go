package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nutrikit/nutrikit/internal/config"
	settingsdomain "github.com/nutrikit/nutrikit/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg config.Config
}

func NewService(p ServiceParam) settingsdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("settings.service"),
		cfg: p.Cfg,
	}
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", settingsdomain.ErrInvalidKey
	}

	var setting settingsdomain.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	return s.envFallback(key), nil
}

func (s *Service) Upsert(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return settingsdomain.ErrInvalidKey
	}

	return s.db.WithContext(ctx).Exec(
		`INSERT INTO settings (key, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key,
		strings.TrimSpace(value),
	).Error
}

func (s *Service) UPICollection(ctx context.Context) (settingsdomain.UPICollection, error) {
	vpa, err := s.Get(ctx, settingsdomain.KeyUPIVPA)
	if err != nil {
		return settingsdomain.UPICollection{}, err
	}
	name, err := s.Get(ctx, settingsdomain.KeyUPIName)
	if err != nil {
		return settingsdomain.UPICollection{}, err
	}
	return settingsdomain.UPICollection{VPA: vpa, PayeeName: name}, nil
}

func (s *Service) envFallback(key string) string {
	switch key {
	case settingsdomain.KeyUPIVPA:
		return s.cfg.UPIVPAFallback
	case settingsdomain.KeyUPIName:
		return s.cfg.UPINameFallback
	default:
		return ""
	}
}
