package holiday

import "go.uber.org/fx"

var Module = fx.Module("holiday",
	fx.Provide(NewEnglandCalendar),
)
