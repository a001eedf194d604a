// Package schedule decides when the sync loop is allowed to run: a daily time
// window on a set of active weekdays.
package schedule

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/dineflow/ordersync/internal/config"
)

// ErrNoActiveDays means the configured window can never open.
var ErrNoActiveDays = errors.New("schedule: no active days configured")

// Module wires the schedule window.
var Module = fx.Module("schedule",
	fx.Provide(NewWindow),
)

// Window is the configured run window. Windows whose end lies before their
// start wrap past midnight; the active-day check applies to the day the
// window opens.
type Window struct {
	days        map[time.Weekday]bool
	startMinute int // minutes since midnight
	endMinute   int
}

func NewWindow(cfg config.Config) (*Window, error) {
	s := cfg.Schedule
	days := make(map[time.Weekday]bool, len(s.ActiveDays))
	for _, name := range s.ActiveDays {
		day, ok := parseWeekday(name)
		if !ok {
			return nil, errors.New("schedule: unknown day name " + name)
		}
		days[day] = true
	}
	if len(days) == 0 {
		return nil, ErrNoActiveDays
	}
	return &Window{
		days:        days,
		startMinute: s.StartHour*60 + s.StartMinute,
		endMinute:   s.EndHour*60 + s.EndMinute,
	}, nil
}

// IsWithin reports whether the window is open at now.
func (w *Window) IsWithin(now time.Time) bool {
	minute := now.Hour()*60 + now.Minute()

	if w.startMinute <= w.endMinute {
		return w.days[now.Weekday()] && minute >= w.startMinute && minute <= w.endMinute
	}

	// Wrapped window: open late on an active day, or early on the day after
	// an active one.
	if minute >= w.startMinute {
		return w.days[now.Weekday()]
	}
	if minute <= w.endMinute {
		return w.days[now.AddDate(0, 0, -1).Weekday()]
	}
	return false
}

// UntilNext returns how long until the window next opens; zero when it is
// already open.
func (w *Window) UntilNext(now time.Time) time.Duration {
	if w.IsWithin(now) {
		return 0
	}
	for offset := 0; offset <= 7; offset++ {
		day := now.AddDate(0, 0, offset)
		if !w.days[day.Weekday()] {
			continue
		}
		opens := time.Date(day.Year(), day.Month(), day.Day(),
			w.startMinute/60, w.startMinute%60, 0, 0, now.Location())
		if opens.After(now) {
			return opens.Sub(now)
		}
	}
	// Unreachable with at least one active day.
	return 24 * time.Hour
}

func parseWeekday(name string) (time.Weekday, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "MONDAY":
		return time.Monday, true
	case "TUESDAY":
		return time.Tuesday, true
	case "WEDNESDAY":
		return time.Wednesday, true
	case "THURSDAY":
		return time.Thursday, true
	case "FRIDAY":
		return time.Friday, true
	case "SATURDAY":
		return time.Saturday, true
	case "SUNDAY":
		return time.Sunday, true
	}
	return 0, false
}
