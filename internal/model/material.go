// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package model

import "time"

// MaterialOrder is an external collaborator record the core reads
// only to answer the readiness question for a job.
type MaterialOrder struct {
	ID       string    `db:"id"`
	JobID    string    `db:"job_id"`
	Received bool      `db:"received"`
	DueDate  time.Time `db:"due_date"`
}

func (MaterialOrder) TableName() string { return "material_orders" }

func (MaterialOrder) Indexes() map[string][]string {
	return map[string][]string{"idx_material_job": {"job_id"}}
}

// OutsourcedOperation is an external collaborator record describing a
// job's routing operation sent to an outside vendor.
type OutsourcedOperation struct {
	ID          string `db:"id"`
	JobID       string `db:"job_id"`
	Sequence    int    `db:"sequence"`
	Vendor      string `db:"vendor"`
	Description string `db:"description"`
	LeadDays    int    `db:"lead_days"`
	Shipped     bool   `db:"shipped"`
}

func (OutsourcedOperation) TableName() string { return "outsourced_operations" }

func (OutsourcedOperation) Indexes() map[string][]string {
	return map[string][]string{"idx_outsourced_job": {"job_id"}}
}
