// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package clock is the canonical wall-clock and shift calendar.
// All scheduling math in this module routes through here; no other
// package is permitted to do raw arithmetic on local wall-clock time.
package clock

import "time"

// Shift is one of the two fixed daily windows.
type Shift struct {
	Number    int
	StartHour int
	StartMin  int
	EndHour   int
	EndMin    int
}

// Wraps reports whether the shift's end time falls on the following
// calendar day (true for the night shift).
func (s Shift) Wraps() bool { return s.EndHour < s.StartHour }

// Shift1 runs 06:00-16:00. Shift2 runs 16:00-02:00 the next day.
var (
	Shift1 = Shift{Number: 1, StartHour: 6, StartMin: 0, EndHour: 16, EndMin: 0}
	Shift2 = Shift{Number: 2, StartHour: 16, StartMin: 0, EndHour: 2, EndMin: 0}
)

var Shifts = []Shift{Shift1, Shift2}

// SetShifts replaces the process-wide shift table, letting the config
// loader seed shift windows the shop floor has revised instead of the
// hard-coded 06:00-16:00 / 16:00-02:00 default. Must be called before
// any scheduling work starts; it is not safe for concurrent use.
func SetShifts(shifts []Shift) {
	if len(shifts) > 0 {
		Shifts = shifts
	}
}

// Calendar interprets wall-clock instants in a single fixed time zone.
type Calendar struct {
	Location *time.Location
}

// NewCalendar builds a Calendar in the named IANA zone, defaulting to
// America/Chicago when name is empty or cannot be loaded, and to UTC
// only when the America/Chicago zone data is itself unavailable.
func NewCalendar(name string) Calendar {
	if name == "" {
		name = "America/Chicago"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation("America/Chicago")
		if err != nil {
			loc = time.UTC
		}
	}
	return Calendar{Location: loc}
}

// startOf returns the instant on t's calendar day at hour:min in the
// calendar's location.
func (c Calendar) startOf(t time.Time, hour, min int) time.Time {
	t = t.In(c.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, min, 0, 0, c.Location)
}

// shiftWindow returns the concrete [start, end) window for shift s on
// the calendar day containing t.
func (c Calendar) shiftWindow(s Shift, t time.Time) (start, end time.Time) {
	start = c.startOf(t, s.StartHour, s.StartMin)
	end = c.startOf(t, s.EndHour, s.EndMin)
	if s.Wraps() {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// ShiftNumberAt returns the shift number containing t, or 0 if t falls
// in the gap between shifts (02:00-06:00).
func (c Calendar) ShiftNumberAt(t time.Time) int {
	t = t.In(c.Location)
	for _, s := range Shifts {
		// A wrapping shift may have started the previous calendar day.
		for _, dayOffset := range []int{0, -1} {
			anchor := t.AddDate(0, 0, dayOffset)
			start, end := c.shiftWindow(s, anchor)
			if !t.Before(start) && t.Before(end) {
				return s.Number
			}
		}
	}
	return 0
}

// RoundToShiftStart advances t to the start of the next shift if t
// falls outside every shift window; otherwise returns t unchanged.
func (c Calendar) RoundToShiftStart(t time.Time) time.Time {
	if c.ShiftNumberAt(t) != 0 {
		return t
	}
	t = t.In(c.Location)
	best := time.Time{}
	for _, dayOffset := range []int{0, 1} {
		anchor := t.AddDate(0, 0, dayOffset)
		for _, s := range Shifts {
			start, _ := c.shiftWindow(s, anchor)
			if !start.After(t) {
				continue
			}
			if best.IsZero() || start.Before(best) {
				best = start
			}
		}
	}
	return best
}

// AdvancePastShiftEnd returns the end instant of the shift containing
// t. If t is not inside any shift, t is returned unchanged.
func (c Calendar) AdvancePastShiftEnd(t time.Time) time.Time {
	num := c.ShiftNumberAt(t)
	if num == 0 {
		return t
	}
	t = t.In(c.Location)
	for _, dayOffset := range []int{0, -1} {
		anchor := t.AddDate(0, 0, dayOffset)
		for _, s := range Shifts {
			if s.Number != num {
				continue
			}
			start, end := c.shiftWindow(s, anchor)
			if !t.Before(start) && t.Before(end) {
				return end
			}
		}
	}
	return t
}

// StartOfNextDay returns 00:00 on the calendar day following t.
func (c Calendar) StartOfNextDay(t time.Time) time.Time {
	t = t.In(c.Location)
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, c.Location)
}

// WindowFor returns the concrete working window for shift number on
// the calendar day containing t.
func (c Calendar) WindowFor(shiftNumber int, t time.Time) (start, end time.Time, ok bool) {
	for _, s := range Shifts {
		if s.Number == shiftNumber {
			start, end = c.shiftWindow(s, t)
			return start, end, true
		}
	}
	return time.Time{}, time.Time{}, false
}
