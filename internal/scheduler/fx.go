package scheduler

import (
	"context"

	"github.com/nutrikit/nutrikit/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Start),
)

func Start(lc fx.Lifecycle, cfg *config.Config, sched *Scheduler) {
	if !cfg.SchedulerEnabled {
		return
	}
	if cfg.SchedulerInterval > 0 {
		sched.interval = cfg.SchedulerInterval
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(runCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
