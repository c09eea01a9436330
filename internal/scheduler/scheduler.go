// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package scheduler implements the job scheduler, the heart of the
// system: it places one job's routing across machines and
// operators, chunking work across shift boundaries, and the batch
// driver that runs it over a priority-ordered set of jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/availability"
	"github.com/shopfloor-dev/jobscheduler/internal/campaign"
	"github.com/shopfloor-dev/jobscheduler/internal/capacity"
	"github.com/shopfloor-dev/jobscheduler/internal/clock"
	"github.com/shopfloor-dev/jobscheduler/internal/machines"
	"github.com/shopfloor-dev/jobscheduler/internal/model"
	"github.com/shopfloor-dev/jobscheduler/internal/schedulerrors"
	"github.com/shopfloor-dev/jobscheduler/internal/telemetry"
)

// maxScanDays bounds findNextAvailableChunk's forward scan.
const maxScanDays = 30

// planningHorizonDays is the default lead time before a newly created
// job's first operation may start, absent an explicit scheduleAfter.
const planningHorizonDays = 7

// Snapshot bundles the read-only fleet/operator state a batch runs
// against. It is loaded once at batch start and never mutated
// mid-batch; persistence reads and writes happen at batch boundaries.
type Snapshot struct {
	Cal      clock.Calendar
	Machines *machines.Registry
	Avail    *availability.Manager
	Capacity *capacity.Manager
}

// Pin fixes the machine and start timestamp for drag/manual
// scheduling.
type Pin struct {
	MachineID string
	Start     time.Time
}

// ProgressStage is one of the stages reported on a job's progress events.
type ProgressStage string

const (
	StageInitializing ProgressStage = "initializing"
	StagePlacing      ProgressStage = "placing"
	StageCompleted    ProgressStage = "completed"
	StageError        ProgressStage = "error"
)

// ProgressEvent mirrors the websocket schedule_progress envelope
// shape; the core never speaks websocket itself, it only
// calls back through ProgressFunc so a transport layer can fan it out.
type ProgressEvent struct {
	JobID            string
	Progress         int
	Status           string
	Stage            ProgressStage
	OperationName    string
	CurrentOperation int
	TotalOperations  int
	FailureDetails   []schedulerrors.FailureDetail
}

// ProgressFunc receives progress events during ScheduleJob. Callers
// that do not care about progress may pass nil.
type ProgressFunc func(ProgressEvent)

// Options carries the per-call inputs ScheduleJob needs beyond the
// job itself.
type Options struct {
	// ScheduleAfter, when non-zero, overrides the default planning
	// horizon boundary.
	ScheduleAfter time.Time
	// Pin fixes machine/start for drag/manual scheduling; nil for the
	// ordinary auto-schedule path.
	Pin *Pin
	// Outsourced maps a routing sequence number to its outsourced
	// operation record, joined in by the caller from its side table
	// (outsourced operations are not embedded in the routing).
	Outsourced map[int]model.OutsourcedOperation
	// MaterialOrders are the job's material order records, consulted
	// for the readiness check: material-only issues are warnings,
	// outsource-blocked jobs fail with MaterialMissing.
	MaterialOrders []model.MaterialOrder
	// Campaigns, when set, is consulted for the outsource ship-date
	// floor and as the hard latest-finish on the final internal
	// operation preceding the outsource.
	Campaigns *campaign.Manager
	Progress  ProgressFunc
}

// Result is the outcome of placing one job.
type Result struct {
	Entries        []model.ScheduleEntry
	Warnings       []string
	FailureReason  error
	FailureDetails []schedulerrors.FailureDetail
}

// Scheduler runs a single logical batch against a fixed Snapshot,
// maintaining the in-batch double-booking locks that keep two jobs
// from claiming the same machine minute. It is not safe for concurrent
// use by multiple goroutines; batches are serialized by the caller
// (see internal/scheduler/driver.go).
type Scheduler struct {
	snap               Snapshot
	monitor            *telemetry.Monitor
	entries            []model.ScheduleEntry
	entriesByMachine   map[string][]model.ScheduleEntry
	machineLocksUntil  map[string]time.Time
	resourceLocksUntil map[string]time.Time
}

// New builds a Scheduler over snap, seeded with the schedule entries
// already committed for other jobs in this batch (or loaded from
// storage at batch start).
func New(snap Snapshot, existing []model.ScheduleEntry) *Scheduler {
	s := &Scheduler{
		snap:               snap,
		machineLocksUntil:  map[string]time.Time{},
		resourceLocksUntil: map[string]time.Time{},
		entriesByMachine:   map[string][]model.ScheduleEntry{},
	}
	for _, e := range existing {
		s.adopt(e)
	}
	return s
}

// WithMonitor attaches the telemetry monitor so step placements and
// chunk scans report their durations. Passing nil leaves telemetry
// off, which is what tests want.
func (s *Scheduler) WithMonitor(m *telemetry.Monitor) *Scheduler {
	s.monitor = m
	return s
}

// Entries returns every schedule entry committed into this scheduler
// so far, across all jobs placed in the batch.
func (s *Scheduler) Entries() []model.ScheduleEntry {
	return append([]model.ScheduleEntry(nil), s.entries...)
}

func (s *Scheduler) adopt(e model.ScheduleEntry) {
	s.entries = append(s.entries, e)
	s.entriesByMachine[e.MachineID] = append(s.entriesByMachine[e.MachineID], e)
	if until, ok := s.machineLocksUntil[e.MachineID]; !ok || e.End.After(until) {
		s.machineLocksUntil[e.MachineID] = e.End
	}
	if e.AssignedResourceID != "" {
		if until, ok := s.resourceLocksUntil[e.AssignedResourceID]; !ok || e.End.After(until) {
			s.resourceLocksUntil[e.AssignedResourceID] = e.End
		}
	}
}

// DiscardFrom removes every committed entry belonging to jobID whose
// start is at or after from, returning the discarded entries with the
// remaining scheduler locks recomputed from the surviving set.
func (s *Scheduler) DiscardFrom(jobID string, from time.Time) []model.ScheduleEntry {
	var kept, discarded []model.ScheduleEntry
	for _, e := range s.entries {
		if e.JobID == jobID && !e.Start.Before(from) {
			discarded = append(discarded, e)
			continue
		}
		kept = append(kept, e)
	}
	s.entries = nil
	s.entriesByMachine = map[string][]model.ScheduleEntry{}
	s.machineLocksUntil = map[string]time.Time{}
	s.resourceLocksUntil = map[string]time.Time{}
	for _, e := range kept {
		s.adopt(e)
	}
	return discarded
}

// DiscardSequencesFrom removes every committed entry of jobID whose
// operation sequence is >= fromSeq, returning the discarded entries.
// The rescheduling engine uses it to sweep away the surviving partial
// chunks of a conflicted operation so the whole operation re-places on
// one machine with one resource.
func (s *Scheduler) DiscardSequencesFrom(jobID string, fromSeq int) []model.ScheduleEntry {
	var kept, discarded []model.ScheduleEntry
	for _, e := range s.entries {
		if e.JobID == jobID && e.Sequence >= fromSeq {
			discarded = append(discarded, e)
			continue
		}
		kept = append(kept, e)
	}
	s.entries = nil
	s.entriesByMachine = map[string][]model.ScheduleEntry{}
	s.machineLocksUntil = map[string]time.Time{}
	s.resourceLocksUntil = map[string]time.Time{}
	for _, e := range kept {
		s.adopt(e)
	}
	return discarded
}

// LatestEndForJob returns the latest end time among jobID's committed
// entries, if any survive.
func (s *Scheduler) LatestEndForJob(jobID string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, e := range s.entries {
		if e.JobID == jobID && e.End.After(latest) {
			latest = e.End
			found = true
		}
	}
	return latest, found
}

func (s *Scheduler) nextEntryStart(machineID string, after time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, e := range s.entriesByMachine[machineID] {
		if e.Start.Before(after) {
			continue
		}
		if !found || e.Start.Before(best) {
			best = e.Start
			found = true
		}
	}
	return best, found
}

// ScheduleJob places job's full routing starting no earlier than the
// planning boundary. On success every
// produced entry is committed into the scheduler's state atomically;
// on failure nothing about this job is retained.
func (s *Scheduler) ScheduleJob(ctx context.Context, job model.Job, now time.Time, opts Options) (Result, error) {
	report := func(ev ProgressEvent) {
		if opts.Progress != nil {
			opts.Progress(ev)
		}
	}
	report(ProgressEvent{JobID: job.ID, Stage: StageInitializing, Status: "initializing"})

	routing := job.SortedRouting()
	if len(routing) == 0 {
		report(ProgressEvent{JobID: job.ID, Stage: StageError, Status: "failed"})
		return Result{FailureReason: schedulerrors.ErrRoutingEmpty}, schedulerrors.ErrRoutingEmpty
	}

	warnings, err := checkReadiness(job, routing, opts)
	if err != nil {
		report(ProgressEvent{JobID: job.ID, Stage: StageError, Status: "failed"})
		return Result{Warnings: warnings, FailureReason: err}, err
	}

	boundary := opts.ScheduleAfter
	if boundary.IsZero() {
		boundary = now
		horizon := job.CreatedDate.AddDate(0, 0, planningHorizonDays)
		if horizon.After(boundary) {
			boundary = horizon
		}
	}

	var produced []model.ScheduleEntry
	machineLocks := map[string]time.Time{}
	resourceLocks := map[string]time.Time{}
	for k, v := range s.machineLocksUntil {
		machineLocks[k] = v
	}
	for k, v := range s.resourceLocksUntil {
		resourceLocks[k] = v
	}
	byMachine := map[string][]model.ScheduleEntry{}
	for k, v := range s.entriesByMachine {
		byMachine[k] = append([]model.ScheduleEntry(nil), v...)
	}

	scratch := &Scheduler{snap: s.snap, monitor: s.monitor, machineLocksUntil: machineLocks, resourceLocksUntil: resourceLocks, entriesByMachine: byMachine}

	for i, op := range routing {
		select {
		case <-ctx.Done():
			return Result{FailureReason: schedulerrors.ErrTimeout}, schedulerrors.ErrTimeout
		default:
		}

		report(ProgressEvent{
			JobID: job.ID, Stage: StagePlacing, Status: "placing",
			OperationName: op.Name, CurrentOperation: i + 1, TotalOperations: len(routing),
			Progress: i * 100 / len(routing),
		})

		var (
			chunks []model.ScheduleEntry
			fail   *schedulerrors.FailureDetail
		)

		opStart := time.Now()
		switch op.Kind() {
		case model.KindOutsource:
			// A zero-duration outsource window leaves nothing to record;
			// the boundary simply does not move.
			next := outsourceBoundary(boundary, op, opts)
			if next.After(boundary) {
				chunks = []model.ScheduleEntry{{
					ID: model.NewID(), JobID: job.ID, Sequence: op.Sequence,
					Start: boundary, End: next, Status: model.ScheduleEntryPlanned,
				}}
			}
			boundary = next
		default:
			var pin *Pin
			if opts.Pin != nil && i == 0 {
				pin = opts.Pin
			}
			chunks, fail = scratch.placeOperation(routing, op, boundary, pin)
			if fail == nil {
				if latest := latestFinishFor(routing, i, opts); latest != nil && maxEnd(chunks).After(*latest) {
					fail = &schedulerrors.FailureDetail{
						Sequence: op.Sequence, OperationName: op.Name, MachineType: string(op.MachineType),
						CompatibleMachines: op.CompatibleMachines, Reason: schedulerrors.ErrLatestFinishExceeded,
					}
				}
			}
			if fail != nil {
				report(ProgressEvent{JobID: job.ID, Stage: StageError, Status: "failed", FailureDetails: []schedulerrors.FailureDetail{*fail}})
				return Result{Warnings: warnings, FailureReason: fail, FailureDetails: []schedulerrors.FailureDetail{*fail}}, fail
			}
			boundary = maxEnd(chunks)
			if op.IsPostLagOp() {
				boundary = s.snap.Cal.StartOfNextDay(boundary)
			}
		}

		if s.monitor != nil {
			s.monitor.ObserveStep(string(op.MachineType), time.Since(opStart))
		}

		for _, c := range chunks {
			scratch.adopt(c)
		}
		produced = append(produced, chunks...)
	}

	for _, e := range produced {
		s.adopt(e)
		if e.MachineID != "" {
			hours := e.End.Sub(e.Start).Hours()
			s.snap.Capacity.RecordHours(e.Shift, hours)
		}
	}

	report(ProgressEvent{JobID: job.ID, Stage: StageCompleted, Status: "scheduled", Progress: 100})
	return Result{Entries: produced, Warnings: warnings}, nil
}

// checkReadiness answers the isJobReadyForScheduling question from the
// job's material-order and outsourced-operation side records. An
// outsourced prerequisite already at the vendor (shipped, not the
// job's final operation) blocks scheduling outright; missing material
// is only a warning.
func checkReadiness(job model.Job, routing []model.RoutingOperation, opts Options) ([]string, error) {
	var warnings []string

	if !job.HasMaterial {
		received := false
		for _, o := range opts.MaterialOrders {
			if o.Received {
				received = true
				break
			}
		}
		if !received {
			warnings = append(warnings, "job "+job.JobNumber+": material not on hand or received yet")
		}
	}

	finalSeq := routing[len(routing)-1].Sequence
	for _, oo := range opts.Outsourced {
		if oo.Shipped && oo.Sequence < finalSeq {
			return warnings, schedulerrors.ErrMaterialMissing
		}
	}
	return warnings, nil
}

// latestFinishFor resolves the hard latest-finish bound for routing[i]:
// the operation's own LatestFinishDate, tightened by the campaign ship
// date when the very next operation outsources into a campaign. Work
// that would finish after the pooled shipment leaves is refused, not
// placed late.
func latestFinishFor(routing []model.RoutingOperation, i int, opts Options) *time.Time {
	latest := routing[i].LatestFinishDate
	if i+1 >= len(routing) || routing[i+1].Kind() != model.KindOutsource {
		return latest
	}
	oo, ok := opts.Outsourced[routing[i+1].Sequence]
	if !ok || opts.Campaigns == nil {
		return latest
	}
	if c, ok := opts.Campaigns.For(oo.Vendor, oo.Description); ok {
		if latest == nil || c.ShipDate.Before(*latest) {
			ship := c.ShipDate
			latest = &ship
		}
	}
	return latest
}

func outsourceBoundary(boundary time.Time, op model.RoutingOperation, opts Options) time.Time {
	next := boundary
	if oo, ok := opts.Outsourced[op.Sequence]; ok {
		withLead := boundary.AddDate(0, 0, oo.LeadDays)
		if withLead.After(next) {
			next = withLead
		}
		if opts.Campaigns != nil {
			if c, ok := opts.Campaigns.For(oo.Vendor, oo.Description); ok && c.ShipDate.After(next) {
				next = c.ShipDate
			}
		}
	}
	return next
}

func maxEnd(entries []model.ScheduleEntry) time.Time {
	var max time.Time
	for _, e := range entries {
		if e.End.After(max) {
			max = e.End
		}
	}
	return max
}

func allowedRolesFor(op model.RoutingOperation) []model.Role {
	if op.Kind() == model.KindInspection {
		return []model.Role{model.RoleQualityInspector}
	}
	return []model.Role{model.RoleOperator, model.RoleShiftLead}
}
