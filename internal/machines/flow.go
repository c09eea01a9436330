// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package machines is the machine registry: the typed machine
// set, substitution groups, and the capability-flow rules that decide
// which machines may substitute for which routing requirements.
package machines

import "github.com/shopfloor-dev/jobscheduler/internal/model"

// flowChain is one ascending substitution ladder: a job requiring the
// capability at index i may run on any machine whose highest declared
// capability in this chain is at index >= i (upward-only
// substitution). The chains are deliberately data, not branching
// logic: business rules that change over time are edited here.
type flowChain struct {
	machineType model.MachineType
	order       []model.Capability
}

var flowChains = []flowChain{
	{
		machineType: model.MachineTypeLathe,
		order: []model.Capability{
			model.CapSingleSpindleTurning,
			model.CapLiveToolingTurning,
			model.CapDualSpindleTurning,
		},
	},
	{
		machineType: model.MachineTypeMill,
		order: []model.Capability{
			model.CapVMCMilling,
			model.CapPseudo4thAxisMilling,
			model.CapTrue4thAxisMilling,
			model.Cap5AxisMilling,
		},
	},
}

func chainFor(cap model.Capability) (flowChain, int, bool) {
	for _, fc := range flowChains {
		for i, c := range fc.order {
			if c == cap {
				return fc, i, true
			}
		}
	}
	return flowChain{}, 0, false
}

// machineRank returns the highest index in chain that m declares, or
// -1 if m declares none of the chain's capabilities.
func machineRank(fc flowChain, m model.Machine) int {
	rank := -1
	for i, c := range fc.order {
		if m.HasCapability(c) {
			rank = i
		}
	}
	return rank
}

// satisfies reports whether machine m can serve a requirement for
// capability required, applying the capability-flow rules:
//   - bar_fed_turning requires the machine's Lathe.BarFeeder flag, with
//     no chain substitution (the bar-feeder policy further
//     constrains bar length and saw interaction).
//   - dual_spindle_turning additionally requires Subcategory == "Live
//     Tooling Lathes".
//   - capabilities found in a flow chain substitute upward only.
//   - every other capability matches only by explicit membership.
func satisfies(required model.Capability, m model.Machine) bool {
	if required == model.CapBarFedTurning {
		return m.Lathe != nil && m.Lathe.BarFeeder
	}
	if fc, idx, ok := chainFor(required); ok {
		rank := machineRank(fc, m)
		if rank < idx {
			return false
		}
		if required == model.CapDualSpindleTurning && m.Subcategory != "Live Tooling Lathes" {
			return false
		}
		return true
	}
	return m.HasCapability(required)
}
