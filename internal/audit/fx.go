package audit

import (
	"github.com/nutrikit/nutrikit/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(service.NewService),
)
