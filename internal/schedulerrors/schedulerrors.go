// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package schedulerrors defines the sentinel error kinds the job
// scheduler and rescheduling engine fail with, each checkable via
// errors.Is and wrappable with a per-operation FailureDetail.
package schedulerrors

import (
	"errors"
	"fmt"
)

var (
	ErrRoutingEmpty         = errors.New("job routing is empty")
	ErrNoCompatibleMachine  = errors.New("no compatible machine for operation")
	ErrNoQualifiedOperator  = errors.New("no qualified operator available")
	ErrMachineBookedOut     = errors.New("all candidate machines booked out within the scan horizon")
	ErrMaterialMissing      = errors.New("required material has not been received")
	ErrLatestFinishExceeded = errors.New("operation cannot finish before its latest-finish date")
	ErrConflictUnresolvable = errors.New("schedule conflict has no valid resolution")
	ErrTimeout              = errors.New("batch exceeded its wall-clock timeout")
)

// FailureDetail reports why placement failed for one routing
// operation, surfaced back to the caller when a job fails to place.
type FailureDetail struct {
	Sequence           int
	OperationName      string
	MachineType        string
	CompatibleMachines []string
	CandidatesTried    int
	DaysScanned        int
	Reason             error
}

// Error implements error so a FailureDetail can be returned directly
// or wrapped, while errors.Is(err, schedulerrors.ErrNoCompatibleMachine)
// still matches against Reason.
func (d *FailureDetail) Error() string {
	return fmt.Sprintf("operation %d (%s): %v (tried %d candidates over %d days)",
		d.Sequence, d.MachineType, d.Reason, d.CandidatesTried, d.DaysScanned)
}

// Unwrap exposes the sentinel Reason to errors.Is / errors.As.
func (d *FailureDetail) Unwrap() error { return d.Reason }
