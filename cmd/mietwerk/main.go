package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/mietwerk/mietwerk/internal/config"
	"github.com/mietwerk/mietwerk/internal/migration"
	"github.com/mietwerk/mietwerk/internal/observability"
	"github.com/mietwerk/mietwerk/internal/server"
	"github.com/mietwerk/mietwerk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
