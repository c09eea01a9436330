// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package priority

import (
	"testing"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

func TestAssign_StockOverridesLateToCustomer(t *testing.T) {
	now := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	job := model.Job{
		JobNumber:    "S-44210",
		OrderDate:    now.AddDate(0, 0, -60),
		DueDate:      now.AddDate(0, 0, -10),
		PromisedDate: now.AddDate(0, 0, -5),
	}
	if got := Assign(job, now); got != model.PriorityStock {
		t.Errorf("expected a Stock job number to win over lateness, got %v", got)
	}
}

func TestAssign_LateToCustomer(t *testing.T) {
	now := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	job := model.Job{
		JobNumber:    "J-1001",
		OrderDate:    now.AddDate(0, 0, -60),
		DueDate:      now.AddDate(0, 0, -5),
		PromisedDate: now.AddDate(0, 0, -1),
	}
	if got := Assign(job, now); got != model.PriorityLateToCustomer {
		t.Errorf("expected LateToCustomer, got %v", got)
	}
}

func TestAssign_LateToUsNotYetToCustomer(t *testing.T) {
	now := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	job := model.Job{
		JobNumber:    "J-1002",
		OrderDate:    now.AddDate(0, 0, -60),
		DueDate:      now.AddDate(0, 0, -1),
		PromisedDate: now.AddDate(0, 0, 5),
	}
	if got := Assign(job, now); got != model.PriorityLateToUs {
		t.Errorf("expected LateToUs, got %v", got)
	}
}

func TestAssign_NearingShip(t *testing.T) {
	now := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	job := model.Job{
		JobNumber:    "J-1003",
		OrderDate:    now.AddDate(0, 0, -16), // order+21 = now+5, within 7d window
		DueDate:      now.AddDate(0, 0, 30),
		PromisedDate: now.AddDate(0, 0, 35),
	}
	if got := Assign(job, now); got != model.PriorityNearingShip {
		t.Errorf("expected NearingShip, got %v", got)
	}
}

func TestAssign_NormalDefault(t *testing.T) {
	now := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	job := model.Job{
		JobNumber:    "J-1004",
		OrderDate:    now,
		DueDate:      now.AddDate(0, 0, 60),
		PromisedDate: now.AddDate(0, 0, 65),
	}
	if got := Assign(job, now); got != model.PriorityNormal {
		t.Errorf("expected Normal, got %v", got)
	}
}

func TestSort_OrdersByPriorityThenPromisedDateThenID(t *testing.T) {
	now := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	jobs := []model.Job{
		{ID: "b", JobNumber: "J-2", OrderDate: now, DueDate: now.AddDate(0, 0, 60), PromisedDate: now.AddDate(0, 0, 65)},
		{ID: "a", JobNumber: "J-1", OrderDate: now.AddDate(0, 0, -60), DueDate: now.AddDate(0, 0, -5), PromisedDate: now.AddDate(0, 0, -1)},
		{ID: "c", JobNumber: "S-9", OrderDate: now, DueDate: now.AddDate(0, 0, 60), PromisedDate: now.AddDate(0, 0, 65)},
		{ID: "d", JobNumber: "J-3", OrderDate: now, DueDate: now.AddDate(0, 0, 60), PromisedDate: now.AddDate(0, 0, 10)},
	}
	Sort(jobs, now)

	// a is LateToCustomer (500, most urgent); b and d are both Normal
	// (200) and tie-break by earlier promised date, so d (promised +10d)
	// sorts before b (promised +65d); c is Stock (100), least urgent,
	// last even though its dates match b's.
	want := []string{"a", "d", "b", "c"}
	for i, id := range want {
		if jobs[i].ID != id {
			t.Fatalf("position %d: expected job %q, got %q (order: %v)", i, id, jobs[i].ID, ids(jobs))
		}
	}
}

func ids(jobs []model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func TestLess_TieBreaksByJobID(t *testing.T) {
	now := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)
	a := model.Job{ID: "aaa", Priority: model.PriorityNormal, PromisedDate: now}
	b := model.Job{ID: "bbb", Priority: model.PriorityNormal, PromisedDate: now}
	if !Less(a, b) {
		t.Error("expected a before b when priority and promised date tie")
	}
	if Less(b, a) {
		t.Error("expected b not before a")
	}
}
