// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/barfeeder"
	"github.com/shopfloor-dev/jobscheduler/internal/capacity"
	"github.com/shopfloor-dev/jobscheduler/internal/machines"
	"github.com/shopfloor-dev/jobscheduler/internal/model"
	"github.com/shopfloor-dev/jobscheduler/internal/schedulerrors"
)

// noRemaining is the sentinel passed to findNextAvailableChunk before
// a machine has been chosen, signaling "compute the required hours
// from whichever candidate wins this chunk"; adjusted hours are a
// function of the chosen machine's efficiency factor.
const noRemaining = -1

// placeOperation runs the full chunking loop for one production or
// inspection routing operation, returning the concrete entries it
// produced or a FailureDetail describing why none could be placed.
func (s *Scheduler) placeOperation(routing []model.RoutingOperation, op model.RoutingOperation, boundary time.Time, pin *Pin) ([]model.ScheduleEntry, *schedulerrors.FailureDetail) {
	candidates := s.candidateMachines(routing, op)
	if len(candidates) == 0 {
		return nil, &schedulerrors.FailureDetail{
			Sequence: op.Sequence, OperationName: op.Name, MachineType: string(op.MachineType),
			CompatibleMachines: op.CompatibleMachines, Reason: schedulerrors.ErrNoCompatibleMachine,
		}
	}

	cursor := boundary
	if op.EarliestStartDate != nil && op.EarliestStartDate.After(cursor) {
		cursor = *op.EarliestStartDate
	}

	var (
		chunks           []model.ScheduleEntry
		remaining        = float64(noRemaining)
		lockedMachineID  string
		lockedResourceID string
		maxDaysScanned   int
	)

	if pin != nil {
		lockedMachineID = pin.MachineID
		if cursor.Before(pin.Start) {
			cursor = pin.Start
		}
		pinned := false
		for _, m := range candidates {
			if m.ID == pin.MachineID {
				pinned = true
				break
			}
		}
		if !pinned {
			return nil, &schedulerrors.FailureDetail{
				Sequence: op.Sequence, OperationName: op.Name, MachineType: string(op.MachineType),
				CompatibleMachines: op.CompatibleMachines, Reason: schedulerrors.ErrNoCompatibleMachine,
			}
		}
	}

	for remaining == noRemaining || remaining > 1e-6 {
		chunk, err := s.findNextAvailableChunk(op, cursor, candidates, lockedMachineID, lockedResourceID, remaining)
		if err != nil {
			detail, _ := err.(*schedulerrors.FailureDetail)
			if detail != nil {
				detail.CandidatesTried = len(candidates)
				if detail.DaysScanned < maxDaysScanned {
					detail.DaysScanned = maxDaysScanned
				}
			}
			return nil, detail
		}
		chunks = append(chunks, chunk.entry)
		remaining = chunk.remainingHours
		cursor = chunk.entry.End
		lockedMachineID = chunk.entry.MachineID
		lockedResourceID = chunk.entry.AssignedResourceID
		if chunk.daysScanned > maxDaysScanned {
			maxDaysScanned = chunk.daysScanned
		}
	}
	return chunks, nil
}

// candidateMachines computes the registry's compatible set for op,
// narrowed by the bar-feeder policy when the operation runs on a
// lathe.
func (s *Scheduler) candidateMachines(routing []model.RoutingOperation, op model.RoutingOperation) []model.Machine {
	all := s.snap.Machines.CompatibleWithList(op.RequiredCapability, op.CompatibleMachines, op.PreferredCategory, op.PreferredTier)
	if op.MachineType != model.MachineTypeLathe {
		return all
	}
	allLathes := s.snap.Machines.MachinesOfType(model.MachineTypeLathe)
	var out []model.Machine
	for _, m := range all {
		if barfeeder.Evaluate(routing, m, allLathes).Allowed {
			out = append(out, m)
		}
	}
	return out
}

type chunkResult struct {
	entry          model.ScheduleEntry
	remainingHours float64
	daysScanned    int
}

type candidateChoice struct {
	machine       model.Machine
	resourceID    string
	start, end    time.Time
	hoursConsumed float64
	hoursNeeded   float64
	score         float64
}

// findNextAvailableChunk scans forward from cursor, event-driven on
// shift-window and existing-entry boundaries, for the best-scoring
// machine/operator pair able to start work immediately.
// remainingHours == noRemaining means no machine has been
// locked yet for this operation; otherwise it is the locked machine's
// already-known remaining duration.
func (s *Scheduler) findNextAvailableChunk(op model.RoutingOperation, cursor time.Time, candidates []model.Machine, lockedMachineID, lockedResourceID string, remainingHours float64) (chunkResult, error) {
	if s.monitor != nil {
		scanStart := time.Now()
		defer func() { s.monitor.ObserveChunkScan(time.Since(scanStart)) }()
	}

	allowedRoles := allowedRolesFor(op)
	preferred := s.snap.Capacity.OptimalShift()
	shiftOrder := []int{preferred, capacity.OtherShift(preferred)}

	day := cursor
	for daysScanned := 0; daysScanned < maxScanDays; daysScanned++ {
		for _, shiftNum := range shiftOrder {
			windowStart, windowEnd, ok := s.snap.Cal.WindowFor(shiftNum, day)
			if !ok || !windowEnd.After(cursor) {
				continue
			}
			start := windowStart
			if start.Before(cursor) {
				start = cursor
			}
			if !start.Before(windowEnd) {
				continue
			}

			if best := s.bestCandidateInWindow(op, candidates, allowedRoles, shiftNum, windowStart, start, windowEnd, lockedMachineID, lockedResourceID, remainingHours); best != nil {
				entry := model.ScheduleEntry{
					ID: model.NewID(), JobID: op.JobID, MachineID: best.machine.ID,
					AssignedResourceID: best.resourceID, Sequence: op.Sequence,
					Start: best.start, End: best.end, Shift: shiftNum, Status: model.ScheduleEntryPlanned,
				}
				return chunkResult{entry: entry, remainingHours: round2(best.hoursNeeded - best.hoursConsumed), daysScanned: daysScanned + 1}, nil
			}
		}
		day = s.snap.Cal.StartOfNextDay(day)
		cursor = day
	}

	reason := schedulerrors.ErrMachineBookedOut
	if lockedResourceID == "" && !hasAnyOperator(s, candidates, allowedRoles) {
		reason = schedulerrors.ErrNoQualifiedOperator
	}
	return chunkResult{}, &schedulerrors.FailureDetail{
		Sequence: op.Sequence, OperationName: op.Name, MachineType: string(op.MachineType),
		CompatibleMachines: op.CompatibleMachines, DaysScanned: maxScanDays, Reason: reason,
	}
}

func hasAnyOperator(s *Scheduler, candidates []model.Machine, allowedRoles []model.Role) bool {
	for _, m := range candidates {
		if len(s.snap.Avail.QualifiedOperators(m.ID, allowedRoles...)) > 0 {
			return true
		}
	}
	return false
}

func (s *Scheduler) bestCandidateInWindow(
	op model.RoutingOperation, candidates []model.Machine, allowedRoles []model.Role,
	shiftNum int, anchor, start, windowEnd time.Time, lockedMachineID, lockedResourceID string, remainingHours float64,
) *candidateChoice {
	var best *candidateChoice
	for _, m := range candidates {
		if lockedMachineID != "" && m.ID != lockedMachineID {
			continue
		}
		if !m.InShift(shiftNum) {
			continue
		}
		machineFreeFrom := start
		if until, ok := s.machineLocksUntil[m.ID]; ok && until.After(machineFreeFrom) {
			machineFreeFrom = until
		}
		if !machineFreeFrom.Before(windowEnd) {
			continue
		}

		hoursNeeded := remainingHours
		if hoursNeeded == noRemaining {
			hoursNeeded = op.EstimatedHours/m.EfficiencyFactor + op.SetupHours
		}

		resourceID, chunkStart, chunkLimit, ok := s.pickResource(m, allowedRoles, lockedResourceID, shiftNum, anchor, machineFreeFrom, windowEnd)
		if !ok {
			continue
		}

		availableHours := chunkLimit.Sub(chunkStart).Hours()
		if nextStart, ok := s.nextEntryStart(m.ID, chunkStart); ok && nextStart.Before(chunkLimit) {
			if h := nextStart.Sub(chunkStart).Hours(); h < availableHours {
				availableHours = h
			}
		}
		if availableHours <= 0 {
			continue
		}

		hoursConsumed := math.Min(availableHours, hoursNeeded)
		chunkEnd := chunkStart.Add(time.Duration(hoursConsumed * float64(time.Hour)))

		choice := candidateChoice{
			machine: m, resourceID: resourceID, start: chunkStart, end: chunkEnd,
			hoursConsumed: hoursConsumed, hoursNeeded: hoursNeeded,
			score: scoreCandidate(m, op),
		}
		if best == nil || better(choice, *best) {
			best = &choice
		}
	}
	return best
}

// pickResource resolves the operator for a chunk: the locked resource
// if one is already assigned for this operation, otherwise the least
// loaded qualified operator (earliest resourceLocksUntil, then lowest
// id for determinism). The returned start/limit pair is the shift
// window intersected with the chosen operator's personal working
// window on the anchor day and clipped against any partial-day
// unavailability: a chunk never runs past the hour the operator goes
// home and never through a mid-day absence; work resumes once the
// absence ends.
func (s *Scheduler) pickResource(m model.Machine, allowedRoles []model.Role, lockedResourceID string, shiftNum int, anchor, at, windowEnd time.Time) (string, time.Time, time.Time, bool) {
	clamp := func(resourceID string) (time.Time, time.Time, bool) {
		freeFrom := at
		if until, ok := s.resourceLocksUntil[resourceID]; ok && until.After(freeFrom) {
			freeFrom = until
		}
		w, ok := s.snap.Avail.WorkingWindow(resourceID, anchor)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		if w.Start.After(freeFrom) {
			freeFrom = w.Start
		}
		limit := windowEnd
		if w.End.Before(limit) {
			limit = w.End
		}
		for {
			end, ok := s.snap.Avail.UnavailableUntil(resourceID, freeFrom)
			if !ok {
				break
			}
			freeFrom = end
		}
		if next, ok := s.snap.Avail.NextUnavailableInstant(resourceID, freeFrom, limit); ok {
			limit = next
		}
		if !freeFrom.Before(limit) {
			return time.Time{}, time.Time{}, false
		}
		if !s.snap.Avail.IsAvailable(resourceID, freeFrom, shiftNum) {
			return time.Time{}, time.Time{}, false
		}
		return freeFrom, limit, true
	}

	if lockedResourceID != "" {
		freeFrom, limit, ok := clamp(lockedResourceID)
		if !ok {
			return "", time.Time{}, time.Time{}, false
		}
		return lockedResourceID, freeFrom, limit, true
	}

	candidates := s.snap.Avail.QualifiedOperators(m.ID, allowedRoles...)
	if len(candidates) == 0 {
		return "", time.Time{}, time.Time{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		li, lj := s.resourceLocksUntil[candidates[i].ID], s.resourceLocksUntil[candidates[j].ID]
		if !li.Equal(lj) {
			return li.Before(lj)
		}
		return candidates[i].ID < candidates[j].ID
	})
	for _, r := range candidates {
		if freeFrom, limit, ok := clamp(r.ID); ok {
			return r.ID, freeFrom, limit, true
		}
	}
	return "", time.Time{}, time.Time{}, false
}

// scoreCandidate implements the machine-selection scoring formula:
// score = (100 - utilization) + tierScore + 20*efficiency +
// 15*exactMatchBonus.
func scoreCandidate(m model.Machine, op model.RoutingOperation) float64 {
	score := (100 - m.Utilization) + m.TierScore() + 20*m.EfficiencyFactor
	if machines.ExactMatch(op.CompatibleMachines, m.ID) {
		score += 15
	}
	return score
}

// better reports whether a scores higher than b, ties broken by
// ascending machine id.
func better(a, b candidateChoice) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.machine.ID < b.machine.ID
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
