// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
	"github.com/shopfloor-dev/jobscheduler/internal/priority"
)

// defaultBatchTimeout is the per-batch wall-clock budget.
const defaultBatchTimeout = 30 * time.Second

// maxJobsPerBatch is the hard ceiling on a single schedule-all call.
const maxJobsPerBatch = 100

// defaultBatchSize is schedule-all's default maxJobs.
const defaultBatchSize = 50

// Driver serializes batches onto a single-slot channel semaphore: at
// most one batch runs at a time process-wide, and the semaphore
// composes with context cancellation the way a mutex cannot.
type Driver struct {
	slot chan struct{}
}

// NewDriver builds a Driver with its single-flight slot free.
func NewDriver() *Driver {
	d := &Driver{slot: make(chan struct{}, 1)}
	d.slot <- struct{}{}
	return d
}

// BatchResult summarizes one scheduleAll run.
type BatchResult struct {
	Scheduled []model.Job
	Failed    map[string]Result // jobID -> failure
}

// ScheduleAll runs the batch driver over jobs, processed in strict
// priority order then by job id, up to maxJobs (a non-positive
// maxJobs means defaultBatchSize; larger values are capped at
// maxJobsPerBatch).
// Acquiring the single-flight slot blocks until any in-flight batch
// finishes or ctx is cancelled.
func (d *Driver) ScheduleAll(ctx context.Context, s *Scheduler, jobs []model.Job, now time.Time, maxJobs int, optsFor func(model.Job) Options) (BatchResult, error) {
	select {
	case <-d.slot:
	case <-ctx.Done():
		return BatchResult{}, ctx.Err()
	}
	defer func() { d.slot <- struct{}{} }()

	batchCtx, cancel := context.WithTimeout(ctx, defaultBatchTimeout)
	defer cancel()

	if maxJobs <= 0 {
		maxJobs = defaultBatchSize
	}
	if maxJobs > maxJobsPerBatch {
		maxJobs = maxJobsPerBatch
	}

	ordered := append([]model.Job(nil), jobs...)
	priority.Sort(ordered, now)
	if len(ordered) > maxJobs {
		ordered = ordered[:maxJobs]
	}

	result := BatchResult{Failed: map[string]Result{}}
	for _, job := range ordered {
		select {
		case <-batchCtx.Done():
			return result, batchCtx.Err()
		default:
		}
		opts := Options{}
		if optsFor != nil {
			opts = optsFor(job)
		}
		r, err := s.ScheduleJob(batchCtx, job, now, opts)
		if err != nil {
			result.Failed[job.ID] = r
			continue
		}
		job.Status = model.JobStatusScheduled
		result.Scheduled = append(result.Scheduled, job)
	}
	return result, nil
}
