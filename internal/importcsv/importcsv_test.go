// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package importcsv

import (
	"strings"
	"testing"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

const header = "Job,Customer,Est_Required_Qty,WC_Vendor,Lead_Days,Order_Date,Promised_Date,Est Total Hours,Link_Material,Status,Material,Sequence,AMT Workcenter & Vendor,Vendor,Part Description\n"

func TestImportGroupsRowsByJob(t *testing.T) {
	csv := header +
		"J1001,Acme Corp,10,,0,01/05/2026,02/15/2026,4,,Open,yes,10,Mill Work,,Bracket\n" +
		"J1001,Acme Corp,10,PlatingCo,10,01/05/2026,02/15/2026,0,,Open,yes,20,Outsource Plating,PlatingCo,Bracket\n" +
		"J1002,Widgets Inc,5,,0,01/06/2026,02/20/2026,2,,Open,no,10,Lathe Turning,,Pin\n"

	results, err := Import(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d jobs, want 2", len(results))
	}

	j1 := results[0]
	if j1.Job.JobNumber != "J1001" {
		t.Fatalf("first job = %q, want J1001", j1.Job.JobNumber)
	}
	if len(j1.Job.Routing) != 2 {
		t.Fatalf("J1001 routing = %d ops, want 2", len(j1.Job.Routing))
	}
	if j1.Job.Routing[1].MachineType != model.MachineTypeOutsource {
		t.Errorf("seq 20 machine type = %v, want OUTSOURCE", j1.Job.Routing[1].MachineType)
	}
	if len(j1.Outsourced) != 1 || j1.Outsourced[0].Vendor != "PlatingCo" {
		t.Errorf("unexpected outsourced records: %+v", j1.Outsourced)
	}
	if !j1.Job.HasMaterial {
		t.Error("HasMaterial should be true for Material=yes")
	}

	j2 := results[1]
	if j2.Job.Routing[0].MachineType != model.MachineTypeLathe {
		t.Errorf("J1002 seq 10 machine type = %v, want LATHE", j2.Job.Routing[0].MachineType)
	}
}

// Imported operations must come out placeable: the export has no
// capability column, so each op carries the baseline capability of its
// classified machine type.
func TestImportDerivesBaselineCapabilities(t *testing.T) {
	csv := header +
		"J2001,Acme Corp,10,,0,01/05/2026,02/15/2026,1,,Open,yes,10,Saw Cutoff,,Shaft\n" +
		"J2001,Acme Corp,10,,0,01/05/2026,02/15/2026,4,,Open,yes,20,Mill Work,,Shaft\n" +
		"J2001,Acme Corp,10,,0,01/05/2026,02/15/2026,2,,Open,yes,30,Lathe Turning,,Shaft\n"

	results, err := Import(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	routing := results[0].Job.Routing
	want := []model.Capability{model.CapSawCutting, model.CapVMCMilling, model.CapSingleSpindleTurning}
	for i, cap := range want {
		if routing[i].RequiredCapability != cap {
			t.Errorf("seq %d capability = %q, want %q", routing[i].Sequence, routing[i].RequiredCapability, cap)
		}
	}
	if routing[0].OperationType != model.OperationTypeSaw {
		t.Errorf("saw row operation type = %q, want SAW", routing[0].OperationType)
	}
}

func TestImportRejectsMissingColumns(t *testing.T) {
	_, err := Import(strings.NewReader("Job,Customer\nJ1,Acme\n"))
	if err == nil {
		t.Fatal("expected error for missing required columns")
	}
}

func TestImportRejectsMalformedNumber(t *testing.T) {
	csv := header + "J1001,Acme Corp,not-a-number,,0,01/05/2026,02/15/2026,4,,Open,yes,10,Mill Work,,Bracket\n"
	if _, err := Import(strings.NewReader(csv)); err == nil {
		t.Fatal("expected error for malformed Est_Required_Qty")
	}
}
