package syncer

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dineflow/ordersync/internal/clock"
	"github.com/dineflow/ordersync/internal/config"
	"github.com/dineflow/ordersync/internal/observability/metrics"
	"github.com/dineflow/ordersync/internal/schedule"
)

type RunnerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Manager   *Manager
	Window    *schedule.Window
	Config    config.Config
	Clock     clock.Clock
	Logger    *zap.Logger
}

// Runner loops sync cycles over the configured restaurants whenever the
// schedule window is open, sleeping until it reopens otherwise.
type Runner struct {
	manager *Manager
	window  *schedule.Window
	cfg     config.Config
	clock   clock.Clock
	log     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(p RunnerParams) *Runner {
	r := &Runner{
		manager: p.Manager,
		window:  p.Window,
		cfg:     p.Config,
		clock:   p.Clock,
		log:     p.Logger.Named("runner"),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			r.cancel = cancel
			r.done = make(chan struct{})
			go r.loop(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.cancel()
			select {
			case <-r.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return r
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	if len(r.cfg.Restaurants) == 0 {
		r.log.Warn("no restaurants configured, sync loop idle")
	}

	for {
		if ctx.Err() != nil {
			return
		}

		now := r.clock.Now()
		if !r.window.IsWithin(now) {
			wait := r.window.UntilNext(now)
			r.log.Info("outside schedule window, sleeping", zap.Duration("until_open", wait))
			if sleep(ctx, wait) != nil {
				return
			}
			continue
		}

		r.runCycle(ctx)

		interval := time.Duration(r.cfg.Sync.PollingInterval) * time.Second
		r.log.Info("sync cycle complete, waiting before next cycle", zap.Duration("interval", interval))
		if sleep(ctx, interval) != nil {
			return
		}
	}
}

// runCycle syncs every restaurant once, sequentially. A failing restaurant
// never blocks the rest of the roster.
func (r *Runner) runCycle(ctx context.Context) {
	for _, rc := range r.cfg.Restaurants {
		if ctx.Err() != nil {
			return
		}

		start := r.clock.Now()
		if _, err := r.manager.SyncRestaurant(ctx, rc); err != nil {
			r.log.Error("restaurant sync failed", zap.String("restaurant", rc.Name), zap.Error(err))
		}
		metrics.Sync().ObserveCycleDuration(rc.Name, r.clock.Now().Sub(start))
	}
}
