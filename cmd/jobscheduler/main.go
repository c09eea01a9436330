// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Command jobscheduler wires the scheduling core to a persistence
// adapter and runs one schedule-all batch: load config, build the
// dependency graph, run. There is no HTTP server here; the
// REST/websocket transport lives in a separate service, and this
// binary is the batch entry point that service shells out to or a
// cron job invokes directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopfloor-dev/jobscheduler/internal/availability"
	"github.com/shopfloor-dev/jobscheduler/internal/campaign"
	"github.com/shopfloor-dev/jobscheduler/internal/capacity"
	"github.com/shopfloor-dev/jobscheduler/internal/clock"
	"github.com/shopfloor-dev/jobscheduler/internal/conf"
	"github.com/shopfloor-dev/jobscheduler/internal/machines"
	"github.com/shopfloor-dev/jobscheduler/internal/model"
	"github.com/shopfloor-dev/jobscheduler/internal/scheduler"
	"github.com/shopfloor-dev/jobscheduler/internal/storage"
	"github.com/shopfloor-dev/jobscheduler/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "/etc/config/conf.yaml", "path to the scheduler YAML config")
	maxJobs := flag.Int("max-jobs", 0, "override the batch's default max job count (0 = config default)")
	flag.Parse()

	if err := run(*configPath, *maxJobs); err != nil {
		slog.Error("jobscheduler: fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, maxJobs int) error {
	cfg, err := conf.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyCalendarConfig(cfg.Calendar)

	db, err := openDB(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, cfg.DB.Driver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	store := storage.NewStore(db)

	reg := prometheus.NewRegistry()
	monitor := telemetry.NewMonitor(reg)
	publisher := telemetry.NewPublisher(cfg.Monitoring.MQTT)
	defer publisher.Disconnect()

	if cfg.Monitoring.MetricsPort != 0 {
		go serveMetrics(cfg.Monitoring.MetricsPort, reg)
	}

	cal := clock.NewCalendar(cfg.Calendar.Timezone)

	jobs, err := store.ListJobs()
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	fleet, err := store.ListMachines()
	if err != nil {
		return fmt.Errorf("listing machines: %w", err)
	}
	if len(fleet) == 0 {
		fleet = seedFleet(cfg.Fleet)
	}
	resources, err := store.ListResources()
	if err != nil {
		return fmt.Errorf("listing resources: %w", err)
	}

	now := time.Now().In(cal.Location)
	unavail, err := loadAllUnavailabilities(store, resources)
	if err != nil {
		return fmt.Errorf("loading unavailabilities: %w", err)
	}
	existing, err := store.GetScheduleEntriesInDateRange(now.AddDate(0, 0, -1), now.AddDate(1, 0, 0))
	if err != nil {
		return fmt.Errorf("loading existing schedule entries: %w", err)
	}

	snap := scheduler.Snapshot{
		Cal:      cal,
		Machines: machines.NewRegistry(fleet),
		Avail:    availability.NewManager(cal, resources, unavail),
		Capacity: capacity.NewManager(),
	}
	sched := scheduler.New(snap, existing).WithMonitor(monitor)
	driver := scheduler.NewDriver()

	optsFor, err := buildJobOptions(store, jobs)
	if err != nil {
		return fmt.Errorf("loading job side records: %w", err)
	}

	effectiveMax := maxJobs
	if effectiveMax == 0 {
		effectiveMax = cfg.Batch.DefaultMaxJobs
	}

	batchStart := time.Now()
	result, err := driver.ScheduleAll(context.Background(), sched, jobs, now, effectiveMax, optsFor)
	monitor.ObserveBatch(time.Since(batchStart))
	if err != nil {
		return fmt.Errorf("running schedule-all batch: %w", err)
	}

	for range result.Scheduled {
		monitor.CountJobScheduled("scheduled")
	}
	for range result.Failed {
		monitor.CountJobScheduled("failed")
	}
	monitor.SetShiftLoad(1, snap.Capacity.Load(1))
	monitor.SetShiftLoad(2, snap.Capacity.Load(2))

	if err := store.CreateScheduleEntries(sched.Entries()); err != nil {
		return fmt.Errorf("committing schedule entries: %w", err)
	}
	for _, job := range result.Scheduled {
		if err := store.UpdateJob(job); err != nil {
			return fmt.Errorf("marking job %s scheduled: %w", job.ID, err)
		}
	}

	topic := cfg.Monitoring.MQTT.Topic
	if topic == "" {
		topic = "jobscheduler/batch"
	}
	publisher.Publish(topic, telemetry.BatchSummary{
		Scheduled: len(result.Scheduled),
		Failed:    len(result.Failed),
		Timestamp: now,
	})

	slog.Info("jobscheduler: batch complete",
		"scheduled", len(result.Scheduled), "failed", len(result.Failed))
	return nil
}

func applyCalendarConfig(cc conf.CalendarConfig) {
	shifts := make([]clock.Shift, 0, len(cc.Shifts))
	for _, s := range cc.Shifts {
		startHour, startMin, err := conf.ParseHHMM(s.Start)
		if err != nil {
			slog.Warn("jobscheduler: skipping malformed shift start", "shift", s.Number, "err", err)
			continue
		}
		endHour, endMin, err := conf.ParseHHMM(s.End)
		if err != nil {
			slog.Warn("jobscheduler: skipping malformed shift end", "shift", s.Number, "err", err)
			continue
		}
		shifts = append(shifts, clock.Shift{
			Number: s.Number, StartHour: startHour, StartMin: startMin,
			EndHour: endHour, EndMin: endMin,
		})
	}
	clock.SetShifts(shifts)
}

func openDB(dbc conf.DBConfig) (*storage.DB, error) {
	switch dbc.Driver {
	case "postgres":
		return storage.NewPostgresDB(storage.Config{
			Host: dbc.Host, Port: dbc.Port, User: dbc.User,
			Password: dbc.Password, Database: dbc.Database, SSLMode: dbc.SSLMode,
		})
	default:
		path := dbc.Path
		if path == "" {
			path = ":memory:"
		}
		return storage.NewSQLiteDB(path)
	}
}

func seedFleet(fc conf.FleetConfig) []model.Machine {
	out := make([]model.Machine, 0, len(fc.Machines))
	for _, seed := range fc.Machines {
		m := model.Machine{
			ID: model.NewID(), HumanID: seed.HumanID, Name: seed.Name,
			Type: model.MachineType(seed.Type), Category: seed.Category,
			Subcategory: seed.Subcategory, Tier: model.Tier(seed.Tier),
			Shifts: seed.Shifts, EfficiencyFactor: seed.EfficiencyFactor,
			SubstitutionGroup: seed.SubstitutionGrp,
			Availability:      model.AvailabilityAvailable,
		}
		for _, c := range seed.Capabilities {
			m.Capabilities = append(m.Capabilities, model.Capability(c))
		}
		if seed.Lathe != nil {
			m.Lathe = &model.LatheSpec{
				DualSpindle: seed.Lathe.DualSpindle, LiveTooling: seed.Lathe.LiveTooling,
				BarFeeder: seed.Lathe.BarFeeder, BarLengthFt: seed.Lathe.BarLengthFt,
			}
		}
		if seed.Mill != nil {
			m.Mill = &model.MillSpec{FourthAxis: seed.Mill.FourthAxis}
		}
		out = append(out, m)
	}
	return out
}

// buildJobOptions joins each job's outsourced-operation and
// material-order side records and admits final-op outsource jobs into
// shipping campaigns, producing the per-job Options the batch driver
// hands the scheduler.
func buildJobOptions(store *storage.Store, jobs []model.Job) (func(model.Job) scheduler.Options, error) {
	outsourcedByJob := map[string]map[int]model.OutsourcedOperation{}
	materialsByJob := map[string][]model.MaterialOrder{}
	campaigns := campaign.NewManager()

	for _, job := range jobs {
		oos, err := store.ListOutsourcedOperations(job.ID)
		if err != nil {
			return nil, err
		}
		mos, err := store.ListMaterialOrders(job.ID)
		if err != nil {
			return nil, err
		}
		bySeq := make(map[int]model.OutsourcedOperation, len(oos))
		for _, oo := range oos {
			bySeq[oo.Sequence] = oo
		}
		outsourcedByJob[job.ID] = bySeq
		materialsByJob[job.ID] = mos

		routing := job.SortedRouting()
		if len(routing) == 0 {
			continue
		}
		last := routing[len(routing)-1]
		if last.Kind() != model.KindOutsource {
			continue
		}
		if oo, ok := bySeq[last.Sequence]; ok {
			if _, err := campaigns.Admit(job, oo); err != nil {
				slog.Warn("jobscheduler: job ships outside its vendor campaign", "job", job.JobNumber, "err", err)
			}
		}
	}

	return func(job model.Job) scheduler.Options {
		return scheduler.Options{
			Outsourced:     outsourcedByJob[job.ID],
			MaterialOrders: materialsByJob[job.ID],
			Campaigns:      campaigns,
		}
	}, nil
}

func loadAllUnavailabilities(store *storage.Store, resources []model.Resource) ([]model.ResourceUnavailability, error) {
	var all []model.ResourceUnavailability
	for _, r := range resources {
		u, err := store.ListResourceUnavailabilities(r.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, u...)
	}
	return all, nil
}

func serveMetrics(port int, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	slog.Info("jobscheduler: serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("jobscheduler: metrics server stopped", "err", err)
	}
}
