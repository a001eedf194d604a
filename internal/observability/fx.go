package observability

import (
	"go.uber.org/fx"

	"github.com/dineflow/ordersync/internal/observability/logger"
	"github.com/dineflow/ordersync/internal/observability/metrics"
)

var Module = fx.Module("observability",
	fx.Provide(logger.New),
	fx.Invoke(ensureSyncMetrics),
)

func ensureSyncMetrics(cfg metrics.Config) {
	metrics.SyncWithConfig(cfg)
}
