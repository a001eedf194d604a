package config

import (
	"go.uber.org/fx"

	"github.com/dineflow/ordersync/internal/observability/logger"
	"github.com/dineflow/ordersync/internal/observability/metrics"
	"github.com/dineflow/ordersync/pkg/db"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(provideDBConfig),
	fx.Provide(provideLoggerConfig),
	fx.Provide(provideMetricsConfig),
)

func provideDBConfig(cfg Config) db.Config {
	return cfg.DB
}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Environment != "production",
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	}
}
