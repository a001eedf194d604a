package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/dineflow/ordersync/internal/checkpoint"
	"github.com/dineflow/ordersync/internal/clock"
	"github.com/dineflow/ordersync/internal/config"
	"github.com/dineflow/ordersync/internal/datetimegrid"
	"github.com/dineflow/ordersync/internal/dimension"
	"github.com/dineflow/ordersync/internal/etl"
	"github.com/dineflow/ordersync/internal/events"
	"github.com/dineflow/ordersync/internal/fact"
	"github.com/dineflow/ordersync/internal/holiday"
	"github.com/dineflow/ordersync/internal/migration"
	"github.com/dineflow/ordersync/internal/observability"
	"github.com/dineflow/ordersync/internal/order"
	"github.com/dineflow/ordersync/internal/pos"
	"github.com/dineflow/ordersync/internal/restmetrics"
	"github.com/dineflow/ordersync/internal/schedule"
	"github.com/dineflow/ordersync/internal/server"
	"github.com/dineflow/ordersync/internal/syncer"
	"github.com/dineflow/ordersync/internal/warehouse"
	"github.com/dineflow/ordersync/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Storage
		order.Module,
		warehouse.Module,

		// Warehouse services
		holiday.Module,
		datetimegrid.Module,
		dimension.Module,
		fact.Module,
		restmetrics.Module,

		// Sync pipeline
		checkpoint.Module,
		pos.Module,
		etl.Module,
		events.Module,
		schedule.Module,
		syncer.Module,

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
