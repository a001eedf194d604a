// Package holiday provides the calendar collaborator consulted by the
// datetime grid when flagging holiday rows.
package holiday

import "time"

// Calendar reports whether a given date is a public holiday.
type Calendar interface {
	IsHoliday(t time.Time) bool
}

// EnglandCalendar implements the England & Wales bank-holiday rules: the three
// fixed-date holidays, the two Easter-derived ones, and the three Monday bank
// holidays in May and August.
type EnglandCalendar struct{}

func NewEnglandCalendar() Calendar {
	return EnglandCalendar{}
}

func (EnglandCalendar) IsHoliday(t time.Time) bool {
	year, month, day := t.Date()
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	switch {
	case month == time.January && day == 1:
		return true
	case month == time.December && (day == 25 || day == 26):
		return true
	}

	easter := easterSunday(year)
	if d.Equal(easter.AddDate(0, 0, -2)) || d.Equal(easter.AddDate(0, 0, 1)) {
		return true
	}

	return d.Equal(firstMondayOnOrAfter(year, time.May, 1)) ||
		d.Equal(lastMondayOnOrBefore(year, time.May, 31)) ||
		d.Equal(lastMondayOnOrBefore(year, time.August, 31))
}

// easterSunday computes Easter for a year with the Computus algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func firstMondayOnOrAfter(year int, month time.Month, day int) time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func lastMondayOnOrBefore(year int, month time.Month, day int) time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
