package settings

import (
	"github.com/nutrikit/nutrikit/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(service.NewService),
)
