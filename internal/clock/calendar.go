package clock

import (
	"fmt"
	"strings"
	"time"
)

// Window is a same-day open/close interval, in minutes from local midnight.
type Window struct {
	OpenMinute  int
	CloseMinute int
}

// ParseWindow parses "HH:MM-HH:MM" into a Window.
func ParseWindow(s string) (Window, error) {
	var w Window
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return w, fmt.Errorf("invalid window %q, expected HH:MM-HH:MM", s)
	}
	open, err := parseMinute(parts[0])
	if err != nil {
		return w, err
	}
	closeAt, err := parseMinute(parts[1])
	if err != nil {
		return w, err
	}
	if closeAt <= open {
		return w, fmt.Errorf("invalid window %q, close must be after open", s)
	}
	return Window{OpenMinute: open, CloseMinute: closeAt}, nil
}

func parseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DayInfo is the classification of an instant against the calendar.
type DayInfo struct {
	Weekday   time.Weekday
	LocalTime time.Time
	IsHoliday bool
}

// Calendar classifies instants against business hours and a holiday set.
// Holidays are month-day pairs recurring every year.
type Calendar struct {
	loc      *time.Location
	windows  map[time.Weekday]Window
	holidays map[string]struct{}
}

// NewCalendar builds a calendar for the given location. Weekdays missing
// from windows are closed.
func NewCalendar(loc *time.Location, windows map[time.Weekday]Window, holidays []string) *Calendar {
	hs := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		hs[strings.TrimSpace(h)] = struct{}{}
	}
	return &Calendar{loc: loc, windows: windows, holidays: hs}
}

// DefaultWindows is the institutional schedule: weekdays 07:00-22:00,
// Saturday 08:00-18:00, Sunday closed.
func DefaultWindows() map[time.Weekday]Window {
	w := map[time.Weekday]Window{
		time.Saturday: {OpenMinute: 8 * 60, CloseMinute: 18 * 60},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		w[d] = Window{OpenMinute: 7 * 60, CloseMinute: 22 * 60}
	}
	return w
}

// BrazilianFederalHolidays lists the fixed-date federal holidays as
// month-day pairs.
func BrazilianFederalHolidays() []string {
	return []string{
		"01-01", // Confraternização Universal
		"04-21", // Tiradentes
		"05-01", // Dia do Trabalho
		"09-07", // Independência
		"10-12", // Nossa Senhora Aparecida
		"11-02", // Finados
		"11-15", // Proclamação da República
		"11-20", // Consciência Negra
		"12-25", // Natal
	}
}

// Location returns the calendar's local time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Classify returns the weekday, local time and holiday flag for an instant.
func (c *Calendar) Classify(t time.Time) DayInfo {
	lt := t.In(c.loc)
	return DayInfo{
		Weekday:   lt.Weekday(),
		LocalTime: lt,
		IsHoliday: c.IsHoliday(t),
	}
}

// IsHoliday reports whether the instant falls on a configured holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	lt := t.In(c.loc)
	key := fmt.Sprintf("%02d-%02d", int(lt.Month()), lt.Day())
	_, ok := c.holidays[key]
	return ok
}

// WindowFor returns the open window for the weekday, false when closed.
func (c *Calendar) WindowFor(d time.Weekday) (Window, bool) {
	w, ok := c.windows[d]
	return w, ok
}

// Open reports whether the calendar day of t is a working day at all.
func (c *Calendar) Open(t time.Time) bool {
	if c.IsHoliday(t) {
		return false
	}
	_, ok := c.windows[t.In(c.loc).Weekday()]
	return ok
}

// WithinWindow reports whether [start, end] fits inside the open window of
// start's weekday. Callers must have checked that start and end share a
// local date.
func (c *Calendar) WithinWindow(start, end time.Time) bool {
	lt := start.In(c.loc)
	w, ok := c.windows[lt.Weekday()]
	if !ok {
		return false
	}
	startMin := lt.Hour()*60 + lt.Minute()
	le := end.In(c.loc)
	endMin := le.Hour()*60 + le.Minute()
	if le.Second() > 0 || le.Nanosecond() > 0 {
		endMin++
	}
	return startMin >= w.OpenMinute && endMin <= w.CloseMinute
}

// BusinessMinutesOn returns the length of the open window on the day of t,
// zero on holidays and closed days.
func (c *Calendar) BusinessMinutesOn(t time.Time) int {
	if c.IsHoliday(t) {
		return 0
	}
	w, ok := c.windows[t.In(c.loc).Weekday()]
	if !ok {
		return 0
	}
	return w.CloseMinute - w.OpenMinute
}

// BusinessMinutesBetween sums open-window minutes over the calendar days in
// [from, to]. Used by occupancy reports as the capacity denominator.
func (c *Calendar) BusinessMinutesBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	total := 0
	day := time.Date(from.In(c.loc).Year(), from.In(c.loc).Month(), from.In(c.loc).Day(), 0, 0, 0, 0, c.loc)
	for !day.After(to.In(c.loc)) {
		total += c.BusinessMinutesOn(day)
		day = day.AddDate(0, 0, 1)
	}
	return total
}
