// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package priority implements the priority manager: assigning
// each job one of five priority scores and providing the deterministic
// ordering the batch driver iterates jobs in.
package priority

import (
	"strings"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// Assign computes job's priority bucket as of now. The Stock rule is
// evaluated first: a job number starting with 'S' is always Stock,
// even if it is also late.
func Assign(job model.Job, now time.Time) model.PriorityBucket {
	if strings.HasPrefix(job.JobNumber, "S") {
		return model.PriorityStock
	}
	if now.After(job.PromisedDate) {
		return model.PriorityLateToCustomer
	}
	if now.After(job.DueDate) {
		return model.PriorityLateToUs
	}
	nearingShipBy := job.OrderDate.AddDate(0, 0, 21)
	if nearingShipBy.Sub(now) <= 7*24*time.Hour {
		return model.PriorityNearingShip
	}
	return model.PriorityNormal
}

// Less orders two jobs for batch processing: higher priority bucket
// first, then earlier promised date, then lexically smaller job id,
// so the order is deterministic within a run even when buckets and
// dates tie.
func Less(a, b model.Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.PromisedDate.Equal(b.PromisedDate) {
		return a.PromisedDate.Before(b.PromisedDate)
	}
	return a.ID < b.ID
}

// Sort orders jobs in place by Less, after (re)computing each job's
// Priority field as of now.
func Sort(jobs []model.Job, now time.Time) {
	for i := range jobs {
		jobs[i].Priority = Assign(jobs[i], now)
	}
	insertionSort(jobs)
}

// insertionSort keeps the implementation obviously stable and
// dependency-free for the small batch sizes this scheduler handles
// (a schedule-all call is capped at 100 jobs).
func insertionSort(jobs []model.Job) {
	for i := 1; i < len(jobs); i++ {
		for k := i; k > 0 && Less(jobs[k], jobs[k-1]); k-- {
			jobs[k-1], jobs[k] = jobs[k], jobs[k-1]
		}
	}
}
