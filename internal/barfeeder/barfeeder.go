// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package barfeeder implements the bar-feeder policy: validating
// lathe selection and substitution for bar-fed jobs.
package barfeeder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

var sawNamePattern = regexp.MustCompile(`(?i)saw|cut|cutoff|part off|sawing`)

// isSawOperation reports whether op is a sawing operation, either by
// its explicit OperationType or by a name match. A cut billet
// disqualifies a bar-fed lathe because bar feeding requires
// continuous stock.
func isSawOperation(op model.RoutingOperation) bool {
	if op.OperationType == model.OperationTypeSaw {
		return true
	}
	return sawNamePattern.MatchString(strings.ToLower(op.Name))
}

// JobHasSawOp reports whether any operation in routing is a saw operation.
func JobHasSawOp(routing []model.RoutingOperation) bool {
	for _, op := range routing {
		if isSawOperation(op) {
			return true
		}
	}
	return false
}

// JobBarLength returns the largest declared bar length across the
// routing, and whether any operation declared one at all.
func JobBarLength(routing []model.RoutingOperation) (float64, bool) {
	found := false
	var max float64
	for _, op := range routing {
		if op.RequiredBarLengthFt > 0 {
			found = true
			if op.RequiredBarLengthFt > max {
				max = op.RequiredBarLengthFt
			}
		}
	}
	return max, found
}

// Verdict is the structured result of evaluating a candidate lathe
// against a job's routing.
type Verdict struct {
	Allowed      bool
	Violations   []string
	Alternatives []model.Machine
}

// Evaluate validates candidate against the job's routing, given the
// full set of lathes to draw alternatives from when the candidate is
// rejected.
func Evaluate(routing []model.RoutingOperation, candidate model.Machine, allLathes []model.Machine) Verdict {
	if candidate.Lathe == nil {
		return Verdict{Allowed: true}
	}

	if JobHasSawOp(routing) {
		if candidate.Lathe.BarFeeder {
			return Verdict{
				Allowed:      false,
				Violations:   []string{"job has a saw operation: bar-fed lathes are forbidden, the billet is cut not continuous stock"},
				Alternatives: nonBarFed(allLathes),
			}
		}
		return Verdict{Allowed: true}
	}

	requiredLength, declared := JobBarLength(routing)
	if !declared {
		return Verdict{Allowed: true}
	}

	if !candidate.Lathe.BarFeeder {
		return Verdict{
			Allowed:      false,
			Violations:   []string{"job requires a bar feeder but candidate lathe has none"},
			Alternatives: barFedAtLeast(allLathes, requiredLength),
		}
	}
	if candidate.Lathe.BarLengthFt < requiredLength {
		return Verdict{
			Allowed: false,
			Violations: []string{fmt.Sprintf(
				"bar feeder too short: job requires %.0fft, candidate has %.0fft (no downgrade)",
				requiredLength, candidate.Lathe.BarLengthFt)},
			Alternatives: barFedAtLeast(allLathes, requiredLength),
		}
	}
	return Verdict{Allowed: true}
}

func nonBarFed(lathes []model.Machine) []model.Machine {
	var out []model.Machine
	for _, m := range lathes {
		if m.Lathe != nil && !m.Lathe.BarFeeder {
			out = append(out, m)
		}
	}
	return out
}

func barFedAtLeast(lathes []model.Machine, length float64) []model.Machine {
	var out []model.Machine
	for _, m := range lathes {
		if m.Lathe != nil && m.Lathe.BarFeeder && m.Lathe.BarLengthFt >= length {
			out = append(out, m)
		}
	}
	return out
}
