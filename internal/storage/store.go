// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"
	"time"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// Store is the storage surface the scheduler core consumes: thin CRUD
// wrappers over a gorp DbMap plus a handful of query helpers the
// scheduler needs that don't map to a single-table lookup.
type Store struct {
	db *DB
}

// NewStore wraps an already-migrated DB.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// --- Jobs ---

func (s *Store) CreateJob(job model.Job) error {
	if err := s.db.Insert(&job); err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	return s.replaceRouting(job.ID, job.Routing)
}

func (s *Store) UpdateJob(job model.Job) error {
	if _, err := s.db.Update(&job); err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	return s.replaceRouting(job.ID, job.Routing)
}

func (s *Store) DeleteJob(id string) error {
	if _, err := s.db.Exec("DELETE FROM routing_operations WHERE job_id = ?", id); err != nil {
		return fmt.Errorf("deleting routing for job %s: %w", id, err)
	}
	if _, err := s.db.Exec("DELETE FROM jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting job %s: %w", id, err)
	}
	return nil
}

// GetJob loads a job and its routing, ordered by sequence.
func (s *Store) GetJob(id string) (model.Job, error) {
	var job model.Job
	if err := s.db.SelectOne(&job, "SELECT * FROM jobs WHERE id = ?", id); err != nil {
		return model.Job{}, fmt.Errorf("loading job %s: %w", id, err)
	}
	routing, err := s.routingFor(id)
	if err != nil {
		return model.Job{}, err
	}
	job.Routing = routing
	return job, nil
}

// ListJobs loads every job with its routing attached.
func (s *Store) ListJobs() ([]model.Job, error) {
	var rows []model.Job
	if _, err := s.db.Select(&rows, "SELECT * FROM jobs"); err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	for i := range rows {
		routing, err := s.routingFor(rows[i].ID)
		if err != nil {
			return nil, err
		}
		rows[i].Routing = routing
	}
	return rows, nil
}

func (s *Store) routingFor(jobID string) ([]model.RoutingOperation, error) {
	var ops []model.RoutingOperation
	if _, err := s.db.Select(&ops, "SELECT * FROM routing_operations WHERE job_id = ? ORDER BY sequence", jobID); err != nil {
		return nil, fmt.Errorf("loading routing for job %s: %w", jobID, err)
	}
	return ops, nil
}

// replaceRouting deletes and re-inserts a job's routing rows, the
// simplest correct way to keep a one-to-many child table in sync
// without diffing.
func (s *Store) replaceRouting(jobID string, ops []model.RoutingOperation) error {
	if _, err := s.db.Exec("DELETE FROM routing_operations WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("clearing routing for job %s: %w", jobID, err)
	}
	for i := range ops {
		ops[i].JobID = jobID
		if err := s.db.Insert(&ops[i]); err != nil {
			return fmt.Errorf("inserting routing op %s for job %s: %w", ops[i].ID, jobID, err)
		}
	}
	return nil
}

// --- Machines ---

func (s *Store) CreateMachine(m model.Machine) error {
	if err := s.db.Insert(&m); err != nil {
		return fmt.Errorf("inserting machine %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) UpdateMachine(m model.Machine) error {
	if _, err := s.db.Update(&m); err != nil {
		return fmt.Errorf("updating machine %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) DeleteMachine(id string) error {
	if _, err := s.db.Exec("DELETE FROM machines WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting machine %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetMachine(id string) (model.Machine, error) {
	var m model.Machine
	if err := s.db.SelectOne(&m, "SELECT * FROM machines WHERE id = ?", id); err != nil {
		return model.Machine{}, fmt.Errorf("loading machine %s: %w", id, err)
	}
	return m, nil
}

func (s *Store) ListMachines() ([]model.Machine, error) {
	var rows []model.Machine
	if _, err := s.db.Select(&rows, "SELECT * FROM machines"); err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	return rows, nil
}

// --- Resources ---

func (s *Store) CreateResource(r model.Resource) error {
	if err := s.db.Insert(&r); err != nil {
		return fmt.Errorf("inserting resource %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) UpdateResource(r model.Resource) error {
	if _, err := s.db.Update(&r); err != nil {
		return fmt.Errorf("updating resource %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) DeleteResource(id string) error {
	if _, err := s.db.Exec("DELETE FROM resources WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting resource %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetResource(id string) (model.Resource, error) {
	var r model.Resource
	if err := s.db.SelectOne(&r, "SELECT * FROM resources WHERE id = ?", id); err != nil {
		return model.Resource{}, fmt.Errorf("loading resource %s: %w", id, err)
	}
	return r, nil
}

func (s *Store) ListResources() ([]model.Resource, error) {
	var rows []model.Resource
	if _, err := s.db.Select(&rows, "SELECT * FROM resources"); err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	return rows, nil
}

// --- Resource unavailabilities ---

func (s *Store) CreateResourceUnavailability(u model.ResourceUnavailability) error {
	if err := s.db.Insert(&u); err != nil {
		return fmt.Errorf("inserting unavailability %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) DeleteResourceUnavailability(id string) error {
	if _, err := s.db.Exec("DELETE FROM resource_unavailabilities WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting unavailability %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListResourceUnavailabilities(resourceID string) ([]model.ResourceUnavailability, error) {
	var rows []model.ResourceUnavailability
	if _, err := s.db.Select(&rows, "SELECT * FROM resource_unavailabilities WHERE resource_id = ?", resourceID); err != nil {
		return nil, fmt.Errorf("listing unavailabilities for resource %s: %w", resourceID, err)
	}
	return rows, nil
}

// --- Material orders ---

func (s *Store) CreateMaterialOrder(o model.MaterialOrder) error {
	if err := s.db.Insert(&o); err != nil {
		return fmt.Errorf("inserting material order %s: %w", o.ID, err)
	}
	return nil
}

func (s *Store) UpdateMaterialOrder(o model.MaterialOrder) error {
	if _, err := s.db.Update(&o); err != nil {
		return fmt.Errorf("updating material order %s: %w", o.ID, err)
	}
	return nil
}

func (s *Store) ListMaterialOrders(jobID string) ([]model.MaterialOrder, error) {
	var rows []model.MaterialOrder
	if _, err := s.db.Select(&rows, "SELECT * FROM material_orders WHERE job_id = ?", jobID); err != nil {
		return nil, fmt.Errorf("listing material orders for job %s: %w", jobID, err)
	}
	return rows, nil
}

// --- Outsourced operations ---

func (s *Store) CreateOutsourcedOperation(o model.OutsourcedOperation) error {
	if err := s.db.Insert(&o); err != nil {
		return fmt.Errorf("inserting outsourced operation %s: %w", o.ID, err)
	}
	return nil
}

func (s *Store) UpdateOutsourcedOperation(o model.OutsourcedOperation) error {
	if _, err := s.db.Update(&o); err != nil {
		return fmt.Errorf("updating outsourced operation %s: %w", o.ID, err)
	}
	return nil
}

func (s *Store) ListOutsourcedOperations(jobID string) ([]model.OutsourcedOperation, error) {
	var rows []model.OutsourcedOperation
	if _, err := s.db.Select(&rows, "SELECT * FROM outsourced_operations WHERE job_id = ?", jobID); err != nil {
		return nil, fmt.Errorf("listing outsourced operations for job %s: %w", jobID, err)
	}
	return rows, nil
}

// --- Campaigns ---

func (s *Store) CreateCampaign(c model.Campaign) error {
	if err := s.db.Insert(&c); err != nil {
		return fmt.Errorf("inserting campaign %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) UpdateCampaign(c model.Campaign) error {
	if _, err := s.db.Update(&c); err != nil {
		return fmt.Errorf("updating campaign %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) ListCampaigns() ([]model.Campaign, error) {
	var rows []model.Campaign
	if _, err := s.db.Select(&rows, "SELECT * FROM campaigns"); err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	return rows, nil
}

// --- Schedule entries ---

func (s *Store) CreateScheduleEntries(entries []model.ScheduleEntry) error {
	for i := range entries {
		if err := s.db.Insert(&entries[i]); err != nil {
			return fmt.Errorf("inserting schedule entry %s: %w", entries[i].ID, err)
		}
	}
	return nil
}

// ClearAllScheduleEntries truncates the schedule table, used before a
// full-fleet replan so stale entries can't linger and double-book.
func (s *Store) ClearAllScheduleEntries() error {
	if _, err := s.db.Exec("DELETE FROM schedule_entries"); err != nil {
		return fmt.Errorf("clearing schedule entries: %w", err)
	}
	return nil
}

func (s *Store) GetScheduleEntriesInDateRange(start, end time.Time) ([]model.ScheduleEntry, error) {
	var rows []model.ScheduleEntry
	if _, err := s.db.Select(&rows,
		"SELECT * FROM schedule_entries WHERE start_time < ? AND end_time > ? ORDER BY start_time",
		end, start); err != nil {
		return nil, fmt.Errorf("loading schedule entries in range: %w", err)
	}
	return rows, nil
}

// GetJobsRequiringRescheduling finds every job with a schedule entry
// that overlaps [start, end), is on one of resourceIDs and falls in
// one of shifts (nil when either list is empty), the seed set the
// rescheduling engine expands into conflicts.
func (s *Store) GetJobsRequiringRescheduling(resourceIDs []string, start, end time.Time, shifts []int) ([]string, error) {
	if len(resourceIDs) == 0 || len(shifts) == 0 {
		return nil, nil
	}
	placeholders := make([]interface{}, 0, len(resourceIDs)+len(shifts)+2)
	resourceClause := inClause(len(resourceIDs))
	shiftClause := inClause(len(shifts))
	for _, r := range resourceIDs {
		placeholders = append(placeholders, r)
	}
	placeholders = append(placeholders, end, start)
	for _, sh := range shifts {
		placeholders = append(placeholders, sh)
	}
	query := fmt.Sprintf(`SELECT DISTINCT job_id FROM schedule_entries
		WHERE assigned_resource_id IN (%s) AND start_time < ? AND end_time > ? AND shift IN (%s)`,
		resourceClause, shiftClause)

	var jobIDs []string
	if _, err := s.db.Select(&jobIDs, query, placeholders...); err != nil {
		return nil, fmt.Errorf("finding jobs requiring rescheduling: %w", err)
	}
	return jobIDs, nil
}

func inClause(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += "?"
	}
	return out
}
