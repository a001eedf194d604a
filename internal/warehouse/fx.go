package warehouse

import (
	"go.uber.org/fx"

	"github.com/dineflow/ordersync/internal/warehouse/repository"
)

var Module = fx.Module("warehouse",
	fx.Provide(repository.Provide),
)
