package whatsapp

import (
	"github.com/nutrikit/nutrikit/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewProvider(cfg *config.Config, log *zap.Logger) Provider {
	if !cfg.WhatsApp.Enabled {
		return NoOpProvider{}
	}
	return NewCloudAPIProvider(cfg.WhatsApp.BaseURL, cfg.WhatsApp.PhoneID, cfg.WhatsApp.AccessToken, log)
}

var Module = fx.Module("providers.whatsapp",
	fx.Provide(NewProvider),
)
