// Package datetimegrid maintains the half-hour time dimension. Rows are
// pre-generated in contiguous ranges so fact writers can resolve a surrogate
// key with a single indexed lookup.
package datetimegrid

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dineflow/ordersync/internal/config"
	"github.com/dineflow/ordersync/internal/holiday"
	"github.com/dineflow/ordersync/internal/warehouse/domain"
)

const (
	// Interval is the grid resolution.
	Interval = 30 * time.Minute

	// extendHorizon is how far past a missing timestamp the grid is grown,
	// so one extension covers a month of subsequent lookups.
	extendHorizon = 30 * 24 * time.Hour
)

// Module wires the grid service.
var Module = fx.Module("datetimegrid",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Repo   domain.Repository
	Config config.Config
	Cal    holiday.Calendar
	Logger *zap.Logger
}

// Grid resolves and extends the time dimension.
type Grid struct {
	repo             domain.Repository
	cal              holiday.Calendar
	fiscalStartMonth int
	log              *zap.Logger
}

func New(p Params) *Grid {
	return &Grid{
		repo:             p.Repo,
		cal:              p.Cal,
		fiscalStartMonth: p.Config.FiscalYearStartMonth,
		log:              p.Logger.Named("datetimegrid"),
	}
}

// Normalize floors a timestamp to its grid slot in UTC.
func Normalize(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()/30*30, 0, 0, time.UTC)
}

// Key returns the surrogate key for the slot containing t, extending the grid
// first when the slot falls outside the generated range. Two calls with
// timestamps in the same slot always return the same key.
func (g *Grid) Key(ctx context.Context, db *gorm.DB, t time.Time) (int64, error) {
	slot := Normalize(t)

	key, err := g.repo.GridKeyAt(ctx, db, slot)
	if err == nil {
		return key, nil
	}
	if err != domain.ErrGridKeyMissing {
		return 0, err
	}

	if err := g.extendTo(ctx, db, slot); err != nil {
		return 0, err
	}
	return g.repo.GridKeyAt(ctx, db, slot)
}

// Generate fills the grid for [start, end) at the 30-minute resolution,
// skipping nothing: callers pass ranges that do not overlap existing rows.
func (g *Grid) Generate(ctx context.Context, db *gorm.DB, start, end time.Time) error {
	start = Normalize(start)
	end = Normalize(end)
	if !end.After(start) {
		return nil
	}

	n := int(end.Sub(start) / Interval)
	rows := make([]domain.DimDateTime, 0, n)
	for at := start; at.Before(end); at = at.Add(Interval) {
		rows = append(rows, g.buildRow(at))
	}

	g.log.Info("generating datetime grid rows",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("rows", len(rows)),
	)
	return g.repo.CreateGridRows(ctx, db, rows)
}

// extendTo grows the grid so it covers slot, adding a horizon on the missing
// side. On first use the grid is seeded around the slot in both directions.
func (g *Grid) extendTo(ctx context.Context, db *gorm.DB, slot time.Time) error {
	min, max, err := g.repo.GridRange(ctx, db)
	if err != nil {
		return err
	}

	if min == nil || max == nil {
		return g.Generate(ctx, db, slot.Add(-extendHorizon), slot.Add(extendHorizon))
	}

	if slot.Before(*min) {
		if err := g.Generate(ctx, db, slot.Add(-extendHorizon), *min); err != nil {
			return err
		}
	}
	if !slot.Before(max.Add(Interval)) {
		if err := g.Generate(ctx, db, max.Add(Interval), slot.Add(extendHorizon)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grid) buildRow(at time.Time) domain.DimDateTime {
	date := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	_, week := at.ISOWeek()
	dow := isoWeekday(at.Weekday())
	fy, fq, fm := g.fiscal(at)

	return domain.DimDateTime{
		DateTime:  at,
		Date:      date,
		Year:      at.Year(),
		Quarter:   (int(at.Month())-1)/3 + 1,
		Month:     int(at.Month()),
		Week:      week,
		Day:       at.Day(),
		Hour:      at.Hour(),
		Minute:    at.Minute(),
		DayOfWeek: dow,
		IsWeekend: dow >= 6,
		IsHoliday: g.cal.IsHoliday(at),

		DayPart:        DayPart(at.Hour()),
		IsPeakHour:     IsPeakHour(at.Hour()),
		IsBusinessHour: IsBusinessHour(at.Hour()),

		FiscalYear:    fy,
		FiscalQuarter: fq,
		FiscalMonth:   fm,

		YearMonth:      at.Year()*100 + int(at.Month()),
		MonthName:      at.Month().String(),
		DayName:        at.Weekday().String(),
		YearMonthLabel: fmt.Sprintf("%04d-%02d", at.Year(), int(at.Month())),
	}
}

// fiscal maps a calendar date into the fiscal year starting at the configured
// month. The fiscal year is labelled by the calendar year it starts in.
func (g *Grid) fiscal(at time.Time) (year, quarter, month int) {
	start := g.fiscalStartMonth
	month = int(at.Month()) - start + 1
	if month <= 0 {
		month += 12
	}
	year = at.Year()
	if int(at.Month()) < start {
		year--
	}
	quarter = (month-1)/3 + 1
	return year, quarter, month
}

// DayPart buckets an hour into the service periods used for reporting.
func DayPart(hour int) string {
	switch {
	case hour >= 6 && hour < 11:
		return "breakfast"
	case hour >= 11 && hour < 15:
		return "lunch"
	case hour >= 15 && hour < 23:
		return "dinner"
	default:
		return "off_hours"
	}
}

// IsPeakHour reports whether the hour falls in a morning, midday or evening
// rush window. Windows are half-open, so the end hour is outside the rush.
func IsPeakHour(hour int) bool {
	return (hour >= 7 && hour < 9) || (hour >= 12 && hour < 14) || (hour >= 18 && hour < 20)
}

// IsBusinessHour reports whether the hour is within the trading day [6, 23).
func IsBusinessHour(hour int) bool {
	return hour >= 6 && hour < 23
}

// isoWeekday maps Go's Sunday-first weekday onto ISO numbering, 1=Monday.
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}
