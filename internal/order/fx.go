package order

import (
	"go.uber.org/fx"

	"github.com/dineflow/ordersync/internal/order/repository"
)

var Module = fx.Module("order",
	fx.Provide(repository.Provide),
)
