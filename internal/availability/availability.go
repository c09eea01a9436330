// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package availability implements the operator availability manager:
// a cached, explicitly constructed snapshot of resources and their
// unavailability windows, answering pure synchronous reads. There is
// no package-level singleton; callers construct a Manager and replace
// its snapshot wholesale via UpdateData when backing data changes.
package availability

import (
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/clock"
	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// Window is a concrete wall-clock working window on one calendar day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Manager answers availability questions against a cached snapshot.
type Manager struct {
	cal          clock.Calendar
	resources    map[string]model.Resource
	unavailByRes map[string][]model.ResourceUnavailability
}

// NewManager builds a Manager from the current resource and
// unavailability snapshot.
func NewManager(cal clock.Calendar, resources []model.Resource, unavail []model.ResourceUnavailability) *Manager {
	m := &Manager{cal: cal}
	m.UpdateData(resources, unavail)
	return m
}

// UpdateData atomically replaces the cached snapshot.
func (m *Manager) UpdateData(resources []model.Resource, unavail []model.ResourceUnavailability) {
	resByID := make(map[string]model.Resource, len(resources))
	for _, r := range resources {
		resByID[r.ID] = r
	}
	byRes := make(map[string][]model.ResourceUnavailability, len(unavail))
	for _, u := range unavail {
		byRes[u.ResourceID] = append(byRes[u.ResourceID], u)
	}
	m.resources = resByID
	m.unavailByRes = byRes
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func sameOrBetween(day, start, end time.Time) bool {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	s := start.Truncate(24 * time.Hour)
	e := end.Truncate(24 * time.Hour)
	return !d.Before(s) && !d.After(e)
}

// coversDay reports whether u covers the calendar day containing date
// (for the given shift, if shift != 0).
func coversDay(u model.ResourceUnavailability, date time.Time, shift int) bool {
	start, ok1 := parseDate(u.StartDate)
	end, ok2 := parseDate(u.EndDate)
	if !ok1 || !ok2 {
		return false
	}
	if !sameOrBetween(date, start, end) {
		return false
	}
	if shift != 0 && len(u.AffectedShift) > 0 {
		found := false
		for _, s := range u.AffectedShift {
			if s == shift {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// coversInstant reports whether u covers a specific wall-clock instant,
// honoring the partial-day time bounds when set.
func coversInstant(u model.ResourceUnavailability, t time.Time, shift int) bool {
	if !coversDay(u, t, shift) {
		return false
	}
	if !u.IsPartialDay {
		return true
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	start := parseClockOnDay(day, u.StartTime)
	end := parseClockOnDay(day, u.EndTime)
	if start.IsZero() || end.IsZero() {
		return true
	}
	return !t.Before(start) && t.Before(end)
}

func parseClockOnDay(day time.Time, hhmm string) time.Time {
	if hhmm == "" {
		return time.Time{}
	}
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location())
}

func weekdayName(t time.Time) string {
	return t.Weekday().String()
}

// WorkingWindow builds the concrete wall-clock window from the
// resource's weekly WorkSchedule for the calendar day containing date.
// If the parsed end is not after start, the window wraps to the next
// calendar day (the Shift 2 case).
func (m *Manager) WorkingWindow(resourceID string, date time.Time) (Window, bool) {
	r, ok := m.resources[resourceID]
	if !ok {
		return Window{}, false
	}
	day := date.In(m.cal.Location)
	sched, ok := r.WorkSchedule[weekdayName(day)]
	if !ok || !sched.Enabled {
		return Window{}, false
	}
	start := parseClockOnDay(day, sched.StartTime)
	end := parseClockOnDay(day, sched.EndTime)
	if start.IsZero() || end.IsZero() {
		return Window{}, false
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return Window{Start: start, End: end}, true
}

// IsAvailable reports whether resourceID is active, scheduled for
// shift (if shift != 0), not covered by any unavailability window at
// date, and enabled in its weekly WorkSchedule for that weekday.
func (m *Manager) IsAvailable(resourceID string, date time.Time, shift int) bool {
	r, ok := m.resources[resourceID]
	if !ok || !r.Active {
		return false
	}
	if shift != 0 && !r.InShift(shift) {
		return false
	}
	for _, u := range m.unavailByRes[resourceID] {
		if coversInstant(u, date, shift) {
			return false
		}
	}
	sched, ok := r.WorkSchedule[weekdayName(date.In(m.cal.Location))]
	return ok && sched.Enabled
}

// AvailableOperators filters the resource set by role and work-center
// qualification for the given date/shift. requiredWorkCenters, when
// non-empty, requires the resource be qualified on at least one of the
// listed machine ids.
func (m *Manager) AvailableOperators(date time.Time, shift int, requiredRole *model.Role, requiredWorkCenters []string) []model.Resource {
	var out []model.Resource
	for _, r := range m.resources {
		if requiredRole != nil && r.Role != *requiredRole {
			continue
		}
		if len(requiredWorkCenters) > 0 && !intersects(r.WorkCenters, requiredWorkCenters) {
			continue
		}
		if !m.IsAvailable(r.ID, date, shift) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	for _, y := range b {
		if set[y] {
			return true
		}
	}
	return false
}

// UnavailableUntil reports whether a partial-day unavailability window
// covers resourceID at the instant at, and when it ends. Whole-day
// windows are IsAvailable's job; this answers the mid-window question
// so the scheduler can resume work after a partial absence instead of
// writing the day off.
func (m *Manager) UnavailableUntil(resourceID string, at time.Time) (time.Time, bool) {
	local := at.In(m.cal.Location)
	anchor := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.cal.Location)
	for _, u := range m.unavailByRes[resourceID] {
		if !u.IsPartialDay || !coversDay(u, local, 0) {
			continue
		}
		start := parseClockOnDay(anchor, u.StartTime)
		end := parseClockOnDay(anchor, u.EndTime)
		if start.IsZero() || end.IsZero() {
			continue
		}
		if !local.Before(start) && local.Before(end) {
			return end, true
		}
	}
	return time.Time{}, false
}

// NextUnavailableInstant returns the earliest start of a partial-day
// unavailability window for resourceID inside [from, until), letting a
// caller clip a work chunk so it ends before the absence begins.
func (m *Manager) NextUnavailableInstant(resourceID string, from, until time.Time) (time.Time, bool) {
	if !from.Before(until) {
		return time.Time{}, false
	}
	var best time.Time
	found := false
	local := from.In(m.cal.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.cal.Location)
	lastLocal := until.In(m.cal.Location)
	last := time.Date(lastLocal.Year(), lastLocal.Month(), lastLocal.Day(), 0, 0, 0, 0, m.cal.Location)
	for !day.After(last) {
		for _, u := range m.unavailByRes[resourceID] {
			if !u.IsPartialDay || !coversDay(u, day, 0) {
				continue
			}
			start := parseClockOnDay(day, u.StartTime)
			end := parseClockOnDay(day, u.EndTime)
			if start.IsZero() || end.IsZero() {
				continue
			}
			if !end.After(from) || !start.Before(until) {
				continue
			}
			if start.Before(from) {
				start = from
			}
			if !found || start.Before(best) {
				best = start
				found = true
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return best, found
}

// QualifiedOperators returns every active resource holding one of the
// allowed roles and qualified on machineID, ignoring dates entirely.
// The scheduler uses it to tell "no such operator exists" apart from
// "every qualified operator is booked or off" when reporting failures.
func (m *Manager) QualifiedOperators(machineID string, roles ...model.Role) []model.Resource {
	var out []model.Resource
	for _, r := range m.resources {
		if r.Active && r.QualifiedFor(machineID, roles...) {
			out = append(out, r)
		}
	}
	return out
}

// NextAvailableDay scans forward up to 365 days (inclusive of after)
// for the first day on which resourceID is available at all.
func (m *Manager) NextAvailableDay(resourceID string, after time.Time) (time.Time, bool) {
	for i := 0; i <= 365; i++ {
		day := after.AddDate(0, 0, i)
		if m.IsAvailable(resourceID, day, 0) {
			return day, true
		}
	}
	return time.Time{}, false
}

// AvailableHours sums the working-window durations on days where
// IsAvailable holds, restricted to the [start, end] range.
func (m *Manager) AvailableHours(resourceID string, start, end time.Time) float64 {
	var total time.Duration
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, m.cal.Location)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, m.cal.Location)
	for !day.After(last) {
		if m.IsAvailable(resourceID, day, 0) {
			if w, ok := m.WorkingWindow(resourceID, day); ok {
				total += overlapDuration(w.Start, w.End, start, end)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return total.Hours()
}

func overlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// IsAvailableInWindow reports whether every calendar day windowStart..
// windowEnd touches is available during its overlap with the window.
func (m *Manager) IsAvailableInWindow(resourceID string, windowStart, windowEnd time.Time) bool {
	day := time.Date(windowStart.Year(), windowStart.Month(), windowStart.Day(), 0, 0, 0, 0, m.cal.Location)
	last := time.Date(windowEnd.Year(), windowEnd.Month(), windowEnd.Day(), 0, 0, 0, 0, m.cal.Location)
	for !day.After(last) {
		if !m.IsAvailable(resourceID, day, 0) {
			return false
		}
		w, ok := m.WorkingWindow(resourceID, day)
		if !ok {
			return false
		}
		if overlapDuration(w.Start, w.End, windowStart, windowEnd) <= 0 {
			return false
		}
		day = day.AddDate(0, 0, 1)
	}
	return true
}

// Resource returns the cached resource by id.
func (m *Manager) Resource(id string) (model.Resource, bool) {
	r, ok := m.resources[id]
	return r, ok
}
