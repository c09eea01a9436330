// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package campaign implements the outsourcing campaign manager:
// grouping jobs that outsource their final operation to the same
// vendor for the same work into a shared shipment, and enforcing the
// shared last-safe-ship-date across the group.
package campaign

import (
	"fmt"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// leadBufferDays is the extra cushion subtracted from a job's promised
// date beyond the vendor's own lead time, covering inbound shipping
// and receiving inspection.
const leadBufferDays = 7

// entry pairs a campaign with its lock state, tracked internally so
// Manager can freeze a ship date without adding fields to the shared
// model.Campaign row type.
type entry struct {
	campaign model.Campaign
	locked   bool
}

// Manager tracks open campaigns keyed by vendor and outsource
// description so a second job for the same (vendor, op) pair joins
// the existing campaign instead of opening a new one.
type Manager struct {
	byKey map[string]*entry
}

// NewManager builds an empty campaign manager.
func NewManager() *Manager {
	return &Manager{byKey: map[string]*entry{}}
}

func key(vendor, op string) string {
	return vendor + "\x00" + op
}

// LastSafeShipDate computes the latest date a job's outsourced
// operation can ship and still make its promised date: promised date
// minus the vendor's lead time minus the buffer.
func LastSafeShipDate(promisedDate time.Time, leadDays int) time.Time {
	return promisedDate.AddDate(0, 0, -(leadDays + leadBufferDays))
}

// Admit adds job's outsourced operation to the campaign for
// (op.Vendor, op.Description), creating one if none exists yet.
// Admission is strict: a second job only joins an existing campaign
// if its own last-safe-ship-date is on or after the campaign's
// already-established ship date. A job with a tighter deadline cannot
// silently pull the whole group's commitment earlier; it is refused
// and must ship on its own. A locked campaign
// (see Lock) refuses every further admission, tighter or not.
func (m *Manager) Admit(job model.Job, op model.OutsourcedOperation) (*model.Campaign, error) {
	k := key(op.Vendor, op.Description)
	safe := LastSafeShipDate(job.PromisedDate, op.LeadDays)

	e, ok := m.byKey[k]
	if !ok {
		e = &entry{campaign: model.Campaign{
			ID:       model.NewID(),
			Vendor:   op.Vendor,
			Op:       op.Description,
			JobIDs:   []string{job.ID},
			ShipDate: safe,
		}}
		m.byKey[k] = e
		c := e.campaign
		return &c, nil
	}

	if e.locked {
		return nil, fmt.Errorf("campaign %s for %s/%s is locked at ship date %s: job %s cannot join",
			e.campaign.ID, op.Vendor, op.Description, e.campaign.ShipDate.Format("2006-01-02"), job.ID)
	}
	if safe.Before(e.campaign.ShipDate) {
		return nil, fmt.Errorf("campaign %s for %s/%s ships %s: job %s's own last-safe-ship-date %s is earlier and cannot join",
			e.campaign.ID, op.Vendor, op.Description, e.campaign.ShipDate.Format("2006-01-02"), job.ID, safe.Format("2006-01-02"))
	}

	e.campaign.JobIDs = append(e.campaign.JobIDs, job.ID)
	c := e.campaign
	return &c, nil
}

// Lock freezes a campaign's ship date once it has gone out for
// quoting or pickup scheduling: every further admission is rejected,
// whether or not it would pull the date earlier, so a commitment
// already made to the vendor never changes silently.
func (m *Manager) Lock(campaignID string) {
	for _, e := range m.byKey {
		if e.campaign.ID == campaignID {
			e.locked = true
			return
		}
	}
}

// Campaigns returns all tracked campaigns.
func (m *Manager) Campaigns() []model.Campaign {
	out := make([]model.Campaign, 0, len(m.byKey))
	for _, e := range m.byKey {
		out = append(out, e.campaign)
	}
	return out
}

// For returns the campaign for (vendor, op), if one has been opened.
func (m *Manager) For(vendor, op string) (model.Campaign, bool) {
	e, ok := m.byKey[key(vendor, op)]
	if !ok {
		return model.Campaign{}, false
	}
	return e.campaign, ok
}
