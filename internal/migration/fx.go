package migration

import (
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg *config.Config) error {
		// Embedded migrations are written for postgres. Other dialects
		// (sqlite in tests, mysql) rely on out-of-band schema management.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}
		return seed.EnsureDefaults(conn)
	}),
)
