// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package campaign

import (
	"testing"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

func TestAdmit_SecondJobJoinsExistingCampaign(t *testing.T) {
	m := NewManager()
	promised1 := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	promised2 := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	job1 := model.Job{ID: "j1", PromisedDate: promised1}
	job2 := model.Job{ID: "j2", PromisedDate: promised2}
	op := model.OutsourcedOperation{Vendor: "Acme Plating", Description: "Black oxide", LeadDays: 5}

	c1, err := m.Admit(job1, op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c2, err := m.Admit(job2, op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatal("expected the second job to join the same campaign as the first")
	}
	if len(c2.JobIDs) != 2 {
		t.Fatalf("expected 2 jobs in campaign, got %d", len(c2.JobIDs))
	}
}

func TestAdmit_TighterSecondJobIsRefused(t *testing.T) {
	// Admission is strict. A second job only joins if
	// its own last-safe-ship-date is on or after the campaign's
	// already-established date; a tighter deadline cannot pull the
	// whole group's commitment earlier.
	m := NewManager()
	op := model.OutsourcedOperation{Vendor: "Acme Plating", Description: "Black oxide", LeadDays: 5}

	loose := model.Job{ID: "loose", PromisedDate: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)}
	tight := model.Job{ID: "tight", PromisedDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)}

	c1, err := m.Admit(loose, op)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Admit(tight, op); err == nil {
		t.Fatal("expected a tighter second job to be refused, not admitted")
	}
	if len(c1.JobIDs) != 1 {
		t.Errorf("campaign should still have only the founding job, got %v", c1.JobIDs)
	}
}

func TestAdmit_LaterOrEqualDeadlineJoinsWithoutMovingShipDate(t *testing.T) {
	m := NewManager()
	op := model.OutsourcedOperation{Vendor: "Acme Plating", Description: "Black oxide", LeadDays: 5}

	first := model.Job{ID: "first", PromisedDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)}
	later := model.Job{ID: "later", PromisedDate: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)}

	c1, err := m.Admit(first, op)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := m.Admit(later, op)
	if err != nil {
		t.Fatal(err)
	}
	if !c2.ShipDate.Equal(c1.ShipDate) {
		t.Errorf("campaign ship date should stay at the founding job's date %v, got %v", c1.ShipDate, c2.ShipDate)
	}
	if len(c2.JobIDs) != 2 {
		t.Fatalf("expected 2 jobs in campaign, got %d", len(c2.JobIDs))
	}
}

func TestLastSafeShipDate(t *testing.T) {
	promised := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	got := LastSafeShipDate(promised, 5)
	want := promised.AddDate(0, 0, -12) // 5 lead + 7 buffer
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAdmit_LockedCampaignRejectsTighterJob(t *testing.T) {
	m := NewManager()
	op := model.OutsourcedOperation{Vendor: "Acme Plating", Description: "Black oxide", LeadDays: 5}

	job1 := model.Job{ID: "j1", PromisedDate: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)}
	c, err := m.Admit(job1, op)
	if err != nil {
		t.Fatal(err)
	}
	m.Lock(c.ID)

	tighter := model.Job{ID: "j2", PromisedDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)}
	if _, err := m.Admit(tighter, op); err == nil {
		t.Error("expected admitting a tighter job into a locked campaign to fail")
	}
}

func TestAdmit_DistinctVendorOrOpOpensNewCampaign(t *testing.T) {
	m := NewManager()
	promised := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	job1 := model.Job{ID: "j1", PromisedDate: promised}
	job2 := model.Job{ID: "j2", PromisedDate: promised}

	c1, _ := m.Admit(job1, model.OutsourcedOperation{Vendor: "Acme Plating", Description: "Black oxide", LeadDays: 5})
	c2, _ := m.Admit(job2, model.OutsourcedOperation{Vendor: "Acme Plating", Description: "Anodize", LeadDays: 5})
	if c1.ID == c2.ID {
		t.Error("expected a different outsource description to open a distinct campaign")
	}
}
