package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/archive"
	"github.com/smallbiznis/messledger/internal/clock"
	"github.com/smallbiznis/messledger/internal/config"
	"github.com/smallbiznis/messledger/internal/ledger"
	"github.com/smallbiznis/messledger/internal/meal"
	"github.com/smallbiznis/messledger/internal/mess"
	"github.com/smallbiznis/messledger/internal/observability"
	"github.com/smallbiznis/messledger/internal/ratelimit"
	"github.com/smallbiznis/messledger/internal/server"
	"github.com/smallbiznis/messledger/internal/subscription"
	"github.com/smallbiznis/messledger/internal/summary"
	"github.com/smallbiznis/messledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Meal taps are throttled through redis when configured
		ratelimit.Module,

		mess.Module,
		subscription.Module,
		meal.Module,
		ledger.Module,
		summary.Module,
		archive.Module,

		// Schema is owned by the monolith or a migration job; no scheduler here
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
