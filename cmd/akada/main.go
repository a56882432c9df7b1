package main

import (
	"github.com/akadahq/akada/internal/config"
	"github.com/akadahq/akada/internal/migration"
	"github.com/akadahq/akada/internal/observability"
	"github.com/akadahq/akada/internal/server"
	"github.com/akadahq/akada/pkg/db"
	"github.com/bwmarrin/snowflake"
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
