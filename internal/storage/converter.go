// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/go-gorp/gorp"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// JSONConverter implements gorp.TypeConverter for the handful of
// slice/map-typed model fields that have no native SQL representation
// (Capabilities, Shifts, WorkCenters, and friends). gorp calls ToDb
// before a write and FromDb before a scan.
type JSONConverter struct{}

// ToDb encodes any of the known slice/map/pointer-struct field types as
// a JSON string. Values gorp already knows how to store pass through
// unchanged.
func (JSONConverter) ToDb(val interface{}) (interface{}, error) {
	switch val.(type) {
	case []model.Capability, []int, []string, map[string]model.DaySchedule,
		*model.LatheSpec, *model.MillSpec:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encoding %T for storage: %w", val, err)
		}
		return string(b), nil
	default:
		return val, nil
	}
}

// FromDb returns a scan target for the given field type plus a binder
// that decodes the stored JSON back into it once gorp has scanned the
// raw string.
func (JSONConverter) FromDb(target interface{}) (gorp.CustomScanner, bool) {
	switch target.(type) {
	case *[]model.Capability, *[]int, *[]string, *map[string]model.DaySchedule,
		**model.LatheSpec, **model.MillSpec:
	default:
		return gorp.CustomScanner{}, false
	}

	holder := ""
	binder := func(holder, target interface{}) error {
		raw := holder.(*string)
		if *raw == "" || *raw == "null" {
			return nil
		}
		if err := json.Unmarshal([]byte(*raw), target); err != nil {
			return fmt.Errorf("decoding %T from storage: %w", target, err)
		}
		return nil
	}
	return gorp.CustomScanner{Holder: &holder, Target: target, Binder: binder}, true
}
