// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package model

// MachineType is the semantic bucket a routing operation is placed
// against, e.g. the kind of work a machine performs.
type MachineType string

const (
	MachineTypeMill      MachineType = "MILL"
	MachineTypeLathe     MachineType = "LATHE"
	MachineTypeSaw       MachineType = "SAW"
	MachineTypeWaterjet  MachineType = "WATERJET"
	MachineTypeInspect   MachineType = "INSPECT"
	MachineTypeOutsource MachineType = "OUTSOURCE"
)

// Tier is a coarse quality/cost grouping used for machine-selection
// scoring (see scheduler.scoreCandidate).
type Tier string

const (
	TierPremium  Tier = "Tier 1"
	TierStandard Tier = "Standard"
	TierBudget   Tier = "Budget"
)

// Availability is the current operational state of a machine.
type Availability string

const (
	AvailabilityAvailable   Availability = "Available"
	AvailabilityBusy        Availability = "Busy"
	AvailabilityMaintenance Availability = "Maintenance"
	AvailabilityOffline     Availability = "Offline"
)

// Capability is a fine-grained tag describing one kind of work a
// machine can perform, e.g. "vmc_milling" or "bar_fed_turning". These
// are distinct from MachineType: a MILL machine may carry several
// milling capabilities at different substitution tiers.
type Capability string

const (
	CapSingleSpindleTurning Capability = "single_spindle_turning"
	CapLiveToolingTurning   Capability = "live_tooling_turning"
	CapDualSpindleTurning   Capability = "dual_spindle_turning"
	CapBarFedTurning        Capability = "bar_fed_turning"
	CapVMCMilling           Capability = "vmc_milling"
	CapPseudo4thAxisMilling Capability = "pseudo_4th_axis_milling"
	CapTrue4thAxisMilling   Capability = "true_4th_axis_milling"
	Cap5AxisMilling         Capability = "5_axis_milling"
	CapSawCutting           Capability = "saw_cutting"
	CapWaterjetCutting      Capability = "waterjet_cutting"
	CapInspection           Capability = "inspection"
)

// BaselineCapability returns the lowest-rung capability a machine type
// implies, used when a data source (like the CSV import) names only a
// machine type. Substitution upward from the baseline still applies.
func BaselineCapability(t MachineType) Capability {
	switch t {
	case MachineTypeMill:
		return CapVMCMilling
	case MachineTypeLathe:
		return CapSingleSpindleTurning
	case MachineTypeSaw:
		return CapSawCutting
	case MachineTypeWaterjet:
		return CapWaterjetCutting
	case MachineTypeInspect:
		return CapInspection
	default:
		return ""
	}
}

// LatheSpec carries the lathe-only attributes used by the bar-feeder
// policy and the capability-flow rules.
type LatheSpec struct {
	DualSpindle  bool
	LiveTooling  bool
	BarFeeder    bool
	BarLengthFt  float64
}

// MillSpec carries the mill-only attributes used by the capability
// flow rules.
type MillSpec struct {
	FourthAxis bool
}

// Machine is one physical piece of equipment on the shop floor.
type Machine struct {
	ID                string       `db:"id"`
	HumanID           string       `db:"human_id"`
	Name              string       `db:"name"`
	Type              MachineType  `db:"type"`
	Category          string       `db:"category"`
	Subcategory       string       `db:"subcategory"`
	Tier              Tier         `db:"tier"`
	Capabilities      []Capability `db:"capabilities"` // JSON-encoded, see storage.JSONConverter
	Availability      Availability `db:"availability"`
	Shifts            []int        `db:"shifts"` // JSON-encoded, see storage.JSONConverter
	EfficiencyFactor  float64      `db:"efficiency_factor"` // multiplier against the baseline time of 1.0
	SubstitutionGroup string       `db:"substitution_group"`
	Lathe             *LatheSpec   `db:"lathe_spec"` // JSON-encoded, see storage.JSONConverter
	Mill              *MillSpec    `db:"mill_spec"`  // JSON-encoded, see storage.JSONConverter
	// Utilization is a 0-100 derived load percentage recomputed from the
	// schedule entry set; never authoritative, never persisted as truth.
	Utilization float64 `db:"utilization"`
}

func (Machine) TableName() string { return "machines" }

func (Machine) Indexes() map[string][]string {
	return map[string][]string{
		"idx_machines_type": {"type"},
		"idx_machines_sub":  {"substitution_group"},
	}
}

// HasCapability reports whether the machine explicitly declares cap.
func (m Machine) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// InShift reports whether the machine is staffed/usable on shift n.
func (m Machine) InShift(shift int) bool {
	for _, s := range m.Shifts {
		if s == shift {
			return true
		}
	}
	return false
}

func tierScore(t Tier) float64 {
	switch t {
	case TierPremium:
		return 30
	case TierStandard:
		return 20
	case TierBudget:
		return 10
	default:
		return 0
	}
}

// TierScore returns the fixed point value the machine-selection
// scoring formula adds for this machine's tier.
func (m Machine) TierScore() float64 { return tierScore(m.Tier) }
