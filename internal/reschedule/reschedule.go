// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package reschedule implements the rescheduling engine: it detects
// schedule conflicts created by a new resource or machine
// unavailability window and replaces the affected jobs' tails via the
// job scheduler.
package reschedule

import (
	"context"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
	"github.com/shopfloor-dev/jobscheduler/internal/priority"
	"github.com/shopfloor-dev/jobscheduler/internal/scheduler"
)

// Severity classifies how urgently a conflict needs resolving, based
// on how soon the conflicting entry was due to start.
type Severity string

const (
	SeverityCritical Severity = "critical" // starts within 8h of now
	SeverityHigh     Severity = "high"     // within 24h
	SeverityMedium   Severity = "medium"   // within 72h
	SeverityLow      Severity = "low"
)

func severityFor(now, entryStart time.Time) Severity {
	until := entryStart.Sub(now)
	switch {
	case until <= 8*time.Hour:
		return SeverityCritical
	case until <= 24*time.Hour:
		return SeverityHigh
	case until <= 72*time.Hour:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Request describes a newly posted unavailability window that may
// invalidate existing schedule entries.
type Request struct {
	Reason              string
	AffectedResourceIDs []string
	AffectedMachineIDs  []string
	UnavailabilityStart time.Time
	UnavailabilityEnd   time.Time
	Shifts              []int
	ForceReschedule     bool
}

// rescheduleAfter picks the planning boundary for a displaced job's
// tail. When only operators are affected, the machines are still up
// and the refreshed availability snapshot already steers placement
// around the absent operators, so the tail may re-place inside the
// unavailability window with a different qualified operator. When a
// machine is down there is no substitute state in the snapshot, so
// nothing can restart before the window closes.
func (req Request) rescheduleAfter(earliestConflict time.Time) time.Time {
	if len(req.AffectedMachineIDs) == 0 && len(req.AffectedResourceIDs) > 0 {
		return earliestConflict
	}
	return req.UnavailabilityEnd
}

// Conflict is one existing schedule entry invalidated by a Request.
type Conflict struct {
	Entry    model.ScheduleEntry
	JobID    string
	Severity Severity
}

// Result is the outcome of processing a Request.
type Result struct {
	ConflictsResolved     int
	JobsRescheduled       int
	OperationsRescheduled int
	UnresolvableConflicts []Conflict
	Warnings              []string
	Summary               string
}

func contains(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

func shiftMatches(shifts []int, shift int) bool {
	if len(shifts) == 0 {
		return true
	}
	for _, s := range shifts {
		if s == shift {
			return true
		}
	}
	return false
}

// DetectConflicts scans entries for ones overlapping the request's
// unavailability window on an affected machine or resource and in an
// affected shift.
func DetectConflicts(req Request, entries []model.ScheduleEntry, jobByEntry func(model.ScheduleEntry) string, now time.Time) []Conflict {
	window := model.ScheduleEntry{Start: req.UnavailabilityStart, End: req.UnavailabilityEnd}
	var conflicts []Conflict
	for _, e := range entries {
		if !e.Overlaps(window) {
			continue
		}
		affected := contains(req.AffectedMachineIDs, e.MachineID) || contains(req.AffectedResourceIDs, e.AssignedResourceID)
		if !affected {
			continue
		}
		if !shiftMatches(req.Shifts, e.Shift) {
			continue
		}
		conflicts = append(conflicts, Conflict{Entry: e, JobID: jobByEntry(e), Severity: severityFor(now, e.Start)})
	}
	return conflicts
}

// Engine resolves conflicts by discarding each affected job's tail and
// re-placing it through the scheduler.
type Engine struct {
	Scheduler *scheduler.Scheduler
}

// NewEngine builds an Engine backed by s.
func NewEngine(s *scheduler.Scheduler) *Engine {
	return &Engine{Scheduler: s}
}

// Resolve groups conflicts by job, processes jobs in priority order,
// and for each job discards its schedule from the earliest
// conflicting operation onward and re-places that tail through the
// scheduler. The engine assumes the
// scheduler's availability snapshot already includes the unavailability
// that triggered req; the caller rebuilds the snapshot before invoking.
func (eng *Engine) Resolve(
	ctx context.Context,
	req Request,
	conflicts []Conflict,
	jobsByID map[string]model.Job,
	now time.Time,
	optsFor func(model.Job) scheduler.Options,
) Result {
	if len(conflicts) == 0 {
		return Result{Summary: "no conflicts: nothing to reschedule"}
	}

	earliestByJob := map[string]time.Time{}
	for _, c := range conflicts {
		if t, ok := earliestByJob[c.JobID]; !ok || c.Entry.Start.Before(t) {
			earliestByJob[c.JobID] = c.Entry.Start
		}
	}

	var affectedJobs []model.Job
	for jobID := range earliestByJob {
		if job, ok := jobsByID[jobID]; ok {
			affectedJobs = append(affectedJobs, job)
		}
	}
	priority.Sort(affectedJobs, now)

	result := Result{}
	for _, job := range affectedJobs {
		earliest := earliestByJob[job.ID]

		// Discard everything at or after the earliest conflict, then
		// sweep the surviving partial chunks of the same operations so
		// each re-placed operation keeps one machine and one resource.
		discarded := eng.Scheduler.DiscardFrom(job.ID, earliest)
		if len(discarded) == 0 {
			continue
		}
		fromSeq := discarded[0].Sequence
		for _, e := range discarded[1:] {
			if e.Sequence < fromSeq {
				fromSeq = e.Sequence
			}
		}
		discarded = append(discarded, eng.Scheduler.DiscardSequencesFrom(job.ID, fromSeq)...)
		result.OperationsRescheduled += distinctSequences(discarded)

		tail := job
		tail.Routing = nil
		for _, op := range job.SortedRouting() {
			if op.Sequence >= fromSeq {
				tail.Routing = append(tail.Routing, op)
			}
		}

		opts := scheduler.Options{}
		if optsFor != nil {
			opts = optsFor(job)
		}
		after := req.rescheduleAfter(earliest)
		if end, ok := eng.Scheduler.LatestEndForJob(job.ID); ok && end.After(after) {
			after = end
		}
		opts.ScheduleAfter = after

		placement, err := eng.Scheduler.ScheduleJob(ctx, tail, now, opts)
		if err != nil {
			if !req.ForceReschedule {
				for _, c := range conflicts {
					if c.JobID == job.ID {
						result.UnresolvableConflicts = append(result.UnresolvableConflicts, c)
					}
				}
				continue
			}
			result.Warnings = append(result.Warnings, "job "+job.ID+" could not be fully replaced: "+err.Error())
			continue
		}

		if violatesPromisedDate(job, placement) {
			result.Warnings = append(result.Warnings, "job "+job.ID+" reschedules past its promised date")
		}

		result.JobsRescheduled++
		result.ConflictsResolved += resolvedForJob(conflicts, job.ID)
	}

	result.Summary = summarize(result)
	return result
}

func distinctSequences(entries []model.ScheduleEntry) int {
	seen := map[int]bool{}
	for _, e := range entries {
		seen[e.Sequence] = true
	}
	return len(seen)
}

func resolvedForJob(conflicts []Conflict, jobID string) int {
	n := 0
	for _, c := range conflicts {
		if c.JobID == jobID {
			n++
		}
	}
	return n
}

func violatesPromisedDate(job model.Job, placement scheduler.Result) bool {
	if job.PromisedDate.IsZero() {
		return false
	}
	for _, e := range placement.Entries {
		if e.End.After(job.PromisedDate) {
			return true
		}
	}
	return false
}

func summarize(r Result) string {
	if r.JobsRescheduled == 0 && len(r.UnresolvableConflicts) == 0 {
		return "no jobs required rescheduling"
	}
	return "rescheduled jobs with resolved/unresolvable conflicts tallied"
}
