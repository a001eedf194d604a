package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/config"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	warehousedomain "github.com/dineflow/ordersync/internal/warehouse/domain"
)

// Module applies the schema at startup. Postgres gets the versioned SQL
// migrations; other dialects (sqlite for local runs, mysql) fall back to
// AutoMigrate from the models.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DB.Type == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		return AutoMigrate(conn)
	}),
)

// AutoMigrate builds the schema from the gorm models.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&orderdomain.Restaurant{},
		&orderdomain.Customer{},
		&orderdomain.CustomerAddress{},
		&orderdomain.Promotion{},
		&orderdomain.Order{},
		&orderdomain.Payment{},
		&orderdomain.SyncCheckpoint{},
		&warehousedomain.DimDateTime{},
		&warehousedomain.DimRestaurant{},
		&warehousedomain.DimCustomer{},
		&warehousedomain.DimPromotion{},
		&warehousedomain.DimPaymentMethod{},
		&warehousedomain.FactOrder{},
		&warehousedomain.FactPayment{},
		&warehousedomain.FactCustomerMetrics{},
		&warehousedomain.FactRestaurantMetrics{},
		&warehousedomain.ProcessedOrder{},
	)
}
