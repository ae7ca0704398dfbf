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
	"github.com/smallbiznis/messledger/internal/scheduler"
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

		// Redis lease so replicas do not run the same job twice
		ratelimit.Module,

		// Domain services required by scheduler
		mess.Module,
		subscription.Module,
		summary.Module,
		archive.Module,

		// Transitive dependencies (summary loads meal and ledger rows)
		meal.Module,
		ledger.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

// RegisterSnowflake uses a node id distinct from the API so archive ids
// generated by both processes never collide.
func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
