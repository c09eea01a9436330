// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package machines

import (
	"testing"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

func vmc(id string, caps ...model.Capability) model.Machine {
	return model.Machine{
		ID: id, Type: model.MachineTypeMill, Category: "Mill",
		Tier: model.TierStandard, EfficiencyFactor: 1.0, Capabilities: caps,
	}
}

func TestCompatibleMachines_MillSubstitutionFlow(t *testing.T) {
	basicVMC := vmc("VMC-BASIC", model.CapVMCMilling)
	pseudo := vmc("VMC-PSEUDO", model.CapVMCMilling, model.CapPseudo4thAxisMilling)
	trueAxis := vmc("VMC-TRUE4", model.CapVMCMilling, model.CapPseudo4thAxisMilling, model.CapTrue4thAxisMilling)

	reg := NewRegistry([]model.Machine{basicVMC, pseudo, trueAxis})

	// A pseudo_4th_axis job may not fall back to a basic VMC.
	got := reg.CompatibleMachines(model.CapPseudo4thAxisMilling, "", "")
	if containsID(got, "VMC-BASIC") {
		t.Errorf("pseudo_4th_axis job should not be compatible with basic VMC")
	}
	if !containsID(got, "VMC-PSEUDO") || !containsID(got, "VMC-TRUE4") {
		t.Errorf("pseudo_4th_axis job should be compatible with pseudo and true-4th machines, got %v", got)
	}

	// A true_4th_axis job may not fall back to pseudo.
	got = reg.CompatibleMachines(model.CapTrue4thAxisMilling, "", "")
	if containsID(got, "VMC-PSEUDO") {
		t.Errorf("true_4th_axis job should not be compatible with pseudo machine")
	}
	if !containsID(got, "VMC-TRUE4") {
		t.Errorf("true_4th_axis job should be compatible with true-4th machine")
	}
}

func TestCompatibleMachines_BarFedRequiresFlag(t *testing.T) {
	barFed := model.Machine{
		ID: "LATHE-BF", Type: model.MachineTypeLathe, Tier: model.TierStandard,
		EfficiencyFactor: 1.0, Lathe: &model.LatheSpec{BarFeeder: true, BarLengthFt: 12},
	}
	noBar := model.Machine{
		ID: "LATHE-NB", Type: model.MachineTypeLathe, Tier: model.TierStandard,
		EfficiencyFactor: 1.0, Lathe: &model.LatheSpec{BarFeeder: false},
	}
	reg := NewRegistry([]model.Machine{barFed, noBar})

	got := reg.CompatibleMachines(model.CapBarFedTurning, "", "")
	if len(got) != 1 || got[0].ID != "LATHE-BF" {
		t.Errorf("expected only bar-fed lathe to be compatible, got %v", got)
	}
}

func TestCompatibleMachines_DualSpindleRequiresSubcategory(t *testing.T) {
	wrongSub := model.Machine{
		ID: "LATHE-A", Type: model.MachineTypeLathe, Subcategory: "Standard Lathes",
		Tier: model.TierStandard, EfficiencyFactor: 1.0,
		Capabilities: []model.Capability{model.CapSingleSpindleTurning, model.CapLiveToolingTurning, model.CapDualSpindleTurning},
	}
	rightSub := model.Machine{
		ID: "LATHE-B", Type: model.MachineTypeLathe, Subcategory: "Live Tooling Lathes",
		Tier: model.TierStandard, EfficiencyFactor: 1.0,
		Capabilities: []model.Capability{model.CapSingleSpindleTurning, model.CapLiveToolingTurning, model.CapDualSpindleTurning},
	}
	reg := NewRegistry([]model.Machine{wrongSub, rightSub})

	got := reg.CompatibleMachines(model.CapDualSpindleTurning, "", "")
	if len(got) != 1 || got[0].ID != "LATHE-B" {
		t.Errorf("expected only Live Tooling Lathes subcategory, got %v", got)
	}
}

func TestCompatibleMachines_Ordering(t *testing.T) {
	exactLowEff := model.Machine{ID: "A", Type: model.MachineTypeMill, Category: "Mill", EfficiencyFactor: 0.9, Capabilities: []model.Capability{model.CapVMCMilling}}
	exactHighEff := model.Machine{ID: "B", Type: model.MachineTypeMill, Category: "Mill", EfficiencyFactor: 1.2, Capabilities: []model.Capability{model.CapVMCMilling}}
	other := model.Machine{ID: "C", Type: model.MachineTypeMill, Category: "Other", EfficiencyFactor: 1.5, Capabilities: []model.Capability{model.CapVMCMilling}}

	reg := NewRegistry([]model.Machine{exactLowEff, other, exactHighEff})
	got := reg.CompatibleMachines(model.CapVMCMilling, "Mill", "")
	want := []string{"B", "A", "C"}
	if len(got) != len(want) {
		t.Fatalf("expected %d machines, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func containsID(ms []model.Machine, id string) bool {
	for _, m := range ms {
		if m.ID == id {
			return true
		}
	}
	return false
}
