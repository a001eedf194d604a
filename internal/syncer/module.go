package syncer

import "go.uber.org/fx"

// Module wires the sync manager, the run-loop and the stats store.
var Module = fx.Module("syncer",
	fx.Provide(
		NewStatsStore,
		NewManager,
		NewRunner,
	),
	fx.Invoke(func(*Runner) {}),
)
