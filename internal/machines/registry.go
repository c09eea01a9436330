// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package machines

import (
	"sort"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// Registry holds the fleet snapshot and answers compatibility queries
// used by the job scheduler. Like the operator availability manager,
// it is an explicitly constructed, passed-around snapshot rather than
// a package-level singleton.
type Registry struct {
	byID    map[string]model.Machine
	byType  map[model.MachineType][]model.Machine
	byGroup map[string][]model.Machine
	ordered []model.Machine
}

// NewRegistry builds a Registry from the current machine snapshot.
func NewRegistry(all []model.Machine) *Registry {
	r := &Registry{
		byID:    make(map[string]model.Machine, len(all)),
		byType:  make(map[model.MachineType][]model.Machine),
		byGroup: make(map[string][]model.Machine),
		ordered: append([]model.Machine(nil), all...),
	}
	for _, m := range all {
		r.byID[m.ID] = m
		r.byType[m.Type] = append(r.byType[m.Type], m)
		if m.SubstitutionGroup != "" {
			r.byGroup[m.SubstitutionGroup] = append(r.byGroup[m.SubstitutionGroup], m)
		}
	}
	return r
}

// ByID returns the machine with the given id.
func (r *Registry) ByID(id string) (model.Machine, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// MachinesOfType returns every machine of the given semantic type.
func (r *Registry) MachinesOfType(t model.MachineType) []model.Machine {
	return append([]model.Machine(nil), r.byType[t]...)
}

// MachinesInGroup returns every machine sharing a substitution group.
func (r *Registry) MachinesInGroup(group string) []model.Machine {
	return append([]model.Machine(nil), r.byGroup[group]...)
}

// CompatibleMachines returns machines able to serve a requirement for
// capability, applying the capability-flow rules. Ordering:
// exact-category matches first, then other compatibles, tied by
// descending efficiency factor then ascending utilization.
func (r *Registry) CompatibleMachines(capability model.Capability, preferredCategory string, tier model.Tier) []model.Machine {
	var exact, other []model.Machine
	for _, m := range r.ordered {
		if !satisfies(capability, m) {
			continue
		}
		if tier != "" && m.Tier != tier {
			continue
		}
		if preferredCategory != "" && m.Category == preferredCategory {
			exact = append(exact, m)
		} else {
			other = append(other, m)
		}
	}
	sortCandidates(exact)
	sortCandidates(other)
	return append(exact, other...)
}

func sortCandidates(ms []model.Machine) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].EfficiencyFactor != ms[j].EfficiencyFactor {
			return ms[i].EfficiencyFactor > ms[j].EfficiencyFactor
		}
		return ms[i].Utilization < ms[j].Utilization
	})
}

// CompatibleWithList intersects CompatibleMachines' result with an
// explicit allow-list of machine ids (a routing operation's
// CompatibleMachines field), preserving the registry's ordering.
func (r *Registry) CompatibleWithList(capability model.Capability, allowed []string, preferredCategory string, tier model.Tier) []model.Machine {
	allowedSet := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}
	all := r.CompatibleMachines(capability, preferredCategory, tier)
	if len(allowedSet) == 0 {
		return all
	}
	out := make([]model.Machine, 0, len(all))
	for _, m := range all {
		if allowedSet[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// ExactMatch reports whether machine id is a member of the operation's
// explicit compatible-machine list (used for the +15 scoring bonus).
func ExactMatch(compatibleMachines []string, machineID string) bool {
	for _, id := range compatibleMachines {
		if id == machineID {
			return true
		}
	}
	return false
}
