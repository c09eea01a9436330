// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestShiftNumberAt(t *testing.T) {
	cal := Calendar{Location: mustLoc(t)}
	loc := cal.Location

	tests := []struct {
		name string
		in   time.Time
		want int
	}{
		{"start of shift 1", time.Date(2026, 7, 6, 6, 0, 0, 0, loc), 1},
		{"mid shift 1", time.Date(2026, 7, 6, 10, 0, 0, 0, loc), 1},
		{"start of shift 2", time.Date(2026, 7, 6, 16, 0, 0, 0, loc), 2},
		{"shift 2 after midnight", time.Date(2026, 7, 7, 1, 0, 0, 0, loc), 2},
		{"gap between shifts", time.Date(2026, 7, 6, 3, 0, 0, 0, loc), 0},
		{"shift 1 end exclusive", time.Date(2026, 7, 6, 16, 0, 0, 0, loc), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.ShiftNumberAt(tt.in); got != tt.want {
				t.Errorf("ShiftNumberAt(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoundToShiftStart(t *testing.T) {
	cal := Calendar{Location: mustLoc(t)}
	loc := cal.Location

	in := time.Date(2026, 7, 6, 3, 0, 0, 0, loc)
	want := time.Date(2026, 7, 6, 6, 0, 0, 0, loc)
	if got := cal.RoundToShiftStart(in); !got.Equal(want) {
		t.Errorf("RoundToShiftStart(%v) = %v, want %v", in, got, want)
	}

	inside := time.Date(2026, 7, 6, 10, 0, 0, 0, loc)
	if got := cal.RoundToShiftStart(inside); !got.Equal(inside) {
		t.Errorf("RoundToShiftStart(%v) = %v, want unchanged", inside, got)
	}
}

func TestAdvancePastShiftEnd(t *testing.T) {
	cal := Calendar{Location: mustLoc(t)}
	loc := cal.Location

	in := time.Date(2026, 7, 6, 10, 0, 0, 0, loc)
	want := time.Date(2026, 7, 6, 16, 0, 0, 0, loc)
	if got := cal.AdvancePastShiftEnd(in); !got.Equal(want) {
		t.Errorf("AdvancePastShiftEnd(%v) = %v, want %v", in, got, want)
	}

	// Shift 2 wraps past midnight.
	inShift2 := time.Date(2026, 7, 6, 20, 0, 0, 0, loc)
	wantShift2 := time.Date(2026, 7, 7, 2, 0, 0, 0, loc)
	if got := cal.AdvancePastShiftEnd(inShift2); !got.Equal(wantShift2) {
		t.Errorf("AdvancePastShiftEnd(%v) = %v, want %v", inShift2, got, wantShift2)
	}
}

func TestStartOfNextDay(t *testing.T) {
	cal := Calendar{Location: mustLoc(t)}
	loc := cal.Location

	in := time.Date(2026, 7, 6, 23, 30, 0, 0, loc)
	want := time.Date(2026, 7, 7, 0, 0, 0, 0, loc)
	if got := cal.StartOfNextDay(in); !got.Equal(want) {
		t.Errorf("StartOfNextDay(%v) = %v, want %v", in, got, want)
	}
}
