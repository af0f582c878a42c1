package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/migration"
	"github.com/nutrikit/nutrikit/internal/observability"
	"github.com/nutrikit/nutrikit/internal/scheduler"
	"github.com/nutrikit/nutrikit/internal/server"
	"github.com/nutrikit/nutrikit/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)

	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
