// Package server exposes the operational HTTP surface: liveness, Prometheus
// metrics and a sync status report.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/config"
	orderdomain "github.com/dineflow/ordersync/internal/order/domain"
	"github.com/dineflow/ordersync/internal/syncer"
)

// Module wires the ops HTTP server.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

type Params struct {
	fx.In

	Engine *gin.Engine
	DB     *gorm.DB
	Stats  *syncer.StatsStore
	Config config.Config
	Logger *zap.Logger
}

// Server holds the handler dependencies.
type Server struct {
	db    *gorm.DB
	stats *syncer.StatsStore
	cfg   config.Config
	log   *zap.Logger
}

func NewServer(p Params) *Server {
	s := &Server{
		db:    p.DB,
		stats: p.Stats,
		cfg:   p.Config,
		log:   p.Logger.Named("server"),
	}

	p.Engine.GET("/healthz", s.Health)
	p.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	p.Engine.GET("/status", s.Status)
	return s
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports each restaurant's checkpoint row plus the in-memory stats of
// its latest sync run.
func (s *Server) Status(c *gin.Context) {
	var checkpoints []orderdomain.SyncCheckpoint
	if err := s.db.WithContext(c.Request.Context()).
		Order("restaurant_id").
		Find(&checkpoints).Error; err != nil {
		s.log.Error("load checkpoints", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service":     s.cfg.AppName,
		"version":     s.cfg.AppVersion,
		"environment": s.cfg.Environment,
		"checkpoints": checkpoints,
		"last_runs":   s.stats.Snapshot(),
	})
}

func run(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddress(),
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
