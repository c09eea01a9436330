// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package model

import "time"

// Campaign groups jobs whose final operation outsources to the same
// vendor with the same description into a single shipment.
type Campaign struct {
	ID       string    `db:"id"`
	Vendor   string    `db:"vendor"`
	Op       string    `db:"op"`
	JobIDs   []string  `db:"job_ids"` // JSON-encoded, see storage.JSONConverter
	ShipDate time.Time `db:"ship_date"`
}

func (Campaign) TableName() string { return "campaigns" }

func (Campaign) Indexes() map[string][]string {
	return map[string][]string{"idx_campaigns_vendor": {"vendor"}}
}
