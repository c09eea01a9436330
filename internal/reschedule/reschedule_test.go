// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package reschedule

import (
	"context"
	"testing"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/availability"
	"github.com/shopfloor-dev/jobscheduler/internal/capacity"
	"github.com/shopfloor-dev/jobscheduler/internal/clock"
	"github.com/shopfloor-dev/jobscheduler/internal/machines"
	"github.com/shopfloor-dev/jobscheduler/internal/model"
	"github.com/shopfloor-dev/jobscheduler/internal/scheduler"
)

func TestDetectConflicts_OverlapOnAffectedMachineAndShift(t *testing.T) {
	now := time.Date(2026, 8, 3, 7, 0, 0, 0, time.UTC)
	entries := []model.ScheduleEntry{
		{ID: "e1", JobID: "J1", MachineID: "M1", Start: now.Add(1 * time.Hour), End: now.Add(3 * time.Hour), Shift: 1},
		{ID: "e2", JobID: "J2", MachineID: "M2", Start: now.Add(1 * time.Hour), End: now.Add(3 * time.Hour), Shift: 1},
		{ID: "e3", JobID: "J1", MachineID: "M1", Start: now.AddDate(0, 0, 5), End: now.AddDate(0, 0, 5).Add(2 * time.Hour), Shift: 1},
	}
	req := Request{
		AffectedMachineIDs: []string{"M1"},
		UnavailabilityStart: now,
		UnavailabilityEnd:   now.Add(4 * time.Hour),
		Shifts:              []int{1},
	}
	byEntry := func(e model.ScheduleEntry) string { return e.JobID }

	conflicts := DetectConflicts(req, entries, byEntry, now)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict (e1 only), got %d: %+v", len(conflicts), conflicts)
	}
	if conflicts[0].Entry.ID != "e1" {
		t.Errorf("expected conflict on e1, got %s", conflicts[0].Entry.ID)
	}
	if conflicts[0].Severity != SeverityCritical {
		t.Errorf("expected critical severity (starts within 8h), got %v", conflicts[0].Severity)
	}
}

func TestSeverityFor(t *testing.T) {
	now := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   time.Duration
		want Severity
	}{
		{1 * time.Hour, SeverityCritical},
		{8 * time.Hour, SeverityCritical},
		{20 * time.Hour, SeverityHigh},
		{48 * time.Hour, SeverityMedium},
		{96 * time.Hour, SeverityLow},
	}
	for _, c := range cases {
		if got := severityFor(now, now.Add(c.in)); got != c.want {
			t.Errorf("severityFor(+%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestResolve_NoConflictsIsNoOp(t *testing.T) {
	eng := &Engine{}
	result := eng.Resolve(context.Background(), Request{}, nil, nil, time.Now(), nil)
	if result.ConflictsResolved != 0 || result.JobsRescheduled != 0 {
		t.Errorf("expected a no-op result, got %+v", result)
	}
}

func testSchedulerSnapshot(t *testing.T) scheduler.Snapshot {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	machine := model.Machine{
		ID: "M1", Type: model.MachineTypeMill, Category: "VMC", Tier: model.TierStandard,
		Capabilities: []model.Capability{model.CapVMCMilling}, Shifts: []int{1}, EfficiencyFactor: 1.0,
	}
	sched := map[string]model.DaySchedule{}
	for _, day := range []string{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday} {
		sched[day] = model.DaySchedule{Enabled: true, StartTime: "06:00", EndTime: "16:00"}
	}
	resource := model.Resource{
		ID: "R1", Active: true, Role: model.RoleOperator, ShiftSchedule: []int{1},
		WorkCenters: []string{"M1"}, WorkSchedule: sched,
	}
	cal := clock.Calendar{Location: loc}
	return scheduler.Snapshot{
		Cal: cal, Machines: machines.NewRegistry([]model.Machine{machine}),
		Avail: availability.NewManager(cal, []model.Resource{resource}, nil), Capacity: capacity.NewManager(),
	}
}

func TestResolve_ReplacesConflictingJobTail(t *testing.T) {
	snap := testSchedulerSnapshot(t)
	monday8am := time.Date(2026, 8, 3, 8, 0, 0, 0, snap.Cal.Location)
	job := model.Job{
		ID: "J1", CreatedDate: monday8am.AddDate(0, 0, -30), PromisedDate: monday8am.AddDate(0, 0, 60),
		Routing: []model.RoutingOperation{
			{JobID: "J1", Sequence: 10, MachineType: model.MachineTypeMill, RequiredCapability: model.CapVMCMilling, EstimatedHours: 2},
		},
	}
	s := scheduler.New(snap, nil)
	placed, err := s.ScheduleJob(context.Background(), job, monday8am, scheduler.Options{ScheduleAfter: monday8am})
	if err != nil {
		t.Fatalf("setup: unexpected scheduling error: %v", err)
	}

	req := Request{
		AffectedMachineIDs:  []string{"M1"},
		UnavailabilityStart: monday8am,
		UnavailabilityEnd:   monday8am.Add(4 * time.Hour),
		Shifts:              []int{1},
	}
	byEntry := func(e model.ScheduleEntry) string { return e.JobID }
	conflicts := DetectConflicts(req, placed.Entries, byEntry, monday8am)
	if len(conflicts) == 0 {
		t.Fatal("expected the setup entry to conflict with the unavailability window")
	}

	eng := NewEngine(s)
	result := eng.Resolve(context.Background(), req,
		conflicts,
		map[string]model.Job{"J1": job},
		monday8am, nil)

	if result.JobsRescheduled != 1 {
		t.Fatalf("expected 1 job rescheduled, got %d (warnings: %v, unresolvable: %v)", result.JobsRescheduled, result.Warnings, result.UnresolvableConflicts)
	}
	if result.ConflictsResolved != len(conflicts) {
		t.Errorf("expected %d conflicts resolved, got %d", len(conflicts), result.ConflictsResolved)
	}
	for _, e := range s.Entries() {
		if e.JobID == "J1" && e.Start.Before(req.UnavailabilityEnd) {
			t.Errorf("expected the machine-down tail to restart after the window closes, got entry at %v", e.Start)
		}
	}
}

// A vacation posted for one operator should not push the work past the
// unavailability window when a second qualified operator is on shift
// that same day; the tail re-places at the conflict time with the
// substitute.
func TestResolve_OperatorVacationSubstitutesSameDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	cal := clock.Calendar{Location: loc}
	machine := model.Machine{
		ID: "M1", Type: model.MachineTypeMill, Category: "VMC", Tier: model.TierStandard,
		Capabilities: []model.Capability{model.CapVMCMilling}, Shifts: []int{1}, EfficiencyFactor: 1.0,
	}
	sched := map[string]model.DaySchedule{}
	for _, day := range []string{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday} {
		sched[day] = model.DaySchedule{Enabled: true, StartTime: "06:00", EndTime: "16:00"}
	}
	r1 := model.Resource{
		ID: "R1", Active: true, Role: model.RoleOperator, ShiftSchedule: []int{1},
		WorkCenters: []string{"M1"}, WorkSchedule: sched,
	}
	r2 := model.Resource{
		ID: "R2", Active: true, Role: model.RoleOperator, ShiftSchedule: []int{1},
		WorkCenters: []string{"M1"}, WorkSchedule: sched,
	}

	tuesday := time.Date(2026, 8, 4, 0, 0, 0, 0, loc)
	entry := model.ScheduleEntry{
		ID: "e1", JobID: "J6", MachineID: "M1", AssignedResourceID: "R1",
		Sequence: 10, Start: tuesday.Add(6 * time.Hour), End: tuesday.Add(10 * time.Hour), Shift: 1,
	}

	// Snapshot rebuilt after the vacation was posted: R1 is out all Tuesday.
	vacation := model.ResourceUnavailability{
		ID: "u1", ResourceID: "R1", StartDate: "2026-08-04", EndDate: "2026-08-04",
	}
	snap := scheduler.Snapshot{
		Cal:      cal,
		Machines: machines.NewRegistry([]model.Machine{machine}),
		Avail:    availability.NewManager(cal, []model.Resource{r1, r2}, []model.ResourceUnavailability{vacation}),
		Capacity: capacity.NewManager(),
	}
	s := scheduler.New(snap, []model.ScheduleEntry{entry})

	job := model.Job{
		ID: "J6", JobNumber: "J-6", CreatedDate: tuesday.AddDate(0, 0, -30),
		PromisedDate: tuesday.AddDate(0, 0, 60), HasMaterial: true,
		Routing: []model.RoutingOperation{
			{JobID: "J6", Sequence: 10, MachineType: model.MachineTypeMill, RequiredCapability: model.CapVMCMilling, EstimatedHours: 4},
		},
	}

	now := tuesday.Add(-18 * time.Hour)
	req := Request{
		AffectedResourceIDs: []string{"R1"},
		UnavailabilityStart: tuesday,
		UnavailabilityEnd:   tuesday.AddDate(0, 0, 1),
		Shifts:              []int{1},
	}
	conflicts := DetectConflicts(req, []model.ScheduleEntry{entry}, func(e model.ScheduleEntry) string { return e.JobID }, now)
	if len(conflicts) != 1 {
		t.Fatalf("expected the vacation to conflict with the placed entry, got %d", len(conflicts))
	}

	eng := NewEngine(s)
	result := eng.Resolve(context.Background(), req, conflicts, map[string]model.Job{"J6": job}, now, nil)
	if result.JobsRescheduled != 1 {
		t.Fatalf("expected the job to reschedule, got %+v", result)
	}
	for _, e := range s.Entries() {
		if e.JobID != "J6" {
			continue
		}
		if e.AssignedResourceID != "R2" {
			t.Errorf("expected the substitute operator R2, got %q", e.AssignedResourceID)
		}
		if e.Start.YearDay() != tuesday.YearDay() {
			t.Errorf("expected the work to stay on Tuesday with the substitute, got start %v", e.Start)
		}
	}
}
