// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package conf implements the config loader: a yaml.v2-backed struct
// tree loaded from a single file (not env vars) describing the
// machine fleet seed, shift windows, scheduler step order, and DB
// connection.
package conf

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// DBConfig is the persistence adapter's connection configuration.
type DBConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "sqlite3"
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"`
	Path     string `yaml:"path"` // sqlite file path, ignored for postgres
}

// ShiftConfig is one shift's daily window, expressed as "HH:MM"
// start/end. End may be numerically less than Start to encode a
// window crossing midnight (Shift 2's default 16:00-02:00).
type ShiftConfig struct {
	Number int    `yaml:"number"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
}

// CalendarConfig seeds the clock and shift calendar.
type CalendarConfig struct {
	Timezone string        `yaml:"timezone"` // IANA zone, default America/Chicago
	Shifts   []ShiftConfig `yaml:"shifts"`
}

// LatheSeedConfig and MillSeedConfig mirror model.LatheSpec/MillSpec
// for YAML seeding of the default fleet.
type LatheSeedConfig struct {
	DualSpindle bool    `yaml:"dualSpindle"`
	LiveTooling bool    `yaml:"liveTooling"`
	BarFeeder   bool    `yaml:"barFeeder"`
	BarLengthFt float64 `yaml:"barLengthFt"`
}

type MillSeedConfig struct {
	FourthAxis bool `yaml:"fourthAxis"`
}

// MachineSeedConfig is one fleet entry loaded at startup.
type MachineSeedConfig struct {
	HumanID          string          `yaml:"humanId"`
	Name             string          `yaml:"name"`
	Type             string          `yaml:"type"`
	Category         string          `yaml:"category"`
	Subcategory      string          `yaml:"subcategory"`
	Tier             string          `yaml:"tier"`
	Capabilities     []string        `yaml:"capabilities"`
	Shifts           []int           `yaml:"shifts"`
	EfficiencyFactor float64         `yaml:"efficiencyFactor"`
	SubstitutionGrp  string          `yaml:"substitutionGroup"`
	Lathe            *LatheSeedConfig `yaml:"lathe,omitempty"`
	Mill             *MillSeedConfig  `yaml:"mill,omitempty"`
}

// FleetConfig is the default machine fleet, read from YAML so the
// shop floor can revise it without a redeploy.
type FleetConfig struct {
	Machines []MachineSeedConfig `yaml:"machines"`
}

// SchedulerStepConfig names one step of the scheduler's placement
// pipeline (capability flow, bar-feeder, chunking, ...). The list is
// parsed but nothing reads it: the step order is fixed in code and
// every step always runs.
type SchedulerStepConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

// BatchConfig holds batch-driver settings. Only DefaultMaxJobs is
// read; MaxJobsPerBatch and TimeoutSeconds are parsed but not applied,
// since the job ceiling and the timeout are fixed constants in package
// scheduler.
type BatchConfig struct {
	DefaultMaxJobs   int `yaml:"defaultMaxJobs"`
	MaxJobsPerBatch  int `yaml:"maxJobsPerBatch"`
	TimeoutSeconds   int `yaml:"timeoutSeconds"`
}

// MonitoringConfig is the metrics listen port and MQTT sink.
type MonitoringConfig struct {
	MetricsPort int       `yaml:"metricsPort"`
	MQTT        MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the fire-and-forget batch-summary publisher.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

// Config is the top-level configuration document, rooted at
// /etc/config/conf.yaml in production.
type Config struct {
	DB         DBConfig              `yaml:"db"`
	Calendar   CalendarConfig        `yaml:"calendar"`
	Fleet      FleetConfig           `yaml:"fleet"`
	Scheduler  []SchedulerStepConfig `yaml:"schedulerSteps"`
	Batch      BatchConfig           `yaml:"batch"`
	Monitoring MonitoringConfig      `yaml:"monitoring"`
}

// Load reads and parses the YAML configuration at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()
	bytes, err := io.ReadAll(f)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(bytes)
}

// Parse decodes raw YAML bytes into a Config, applying defaults for
// fields the shop floor commonly leaves unset.
func Parse(raw []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config yaml: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "America/Chicago"
	}
	if len(c.Calendar.Shifts) == 0 {
		c.Calendar.Shifts = []ShiftConfig{
			{Number: 1, Start: "06:00", End: "16:00"},
			{Number: 2, Start: "16:00", End: "02:00"},
		}
	}
	if c.Batch.DefaultMaxJobs == 0 {
		c.Batch.DefaultMaxJobs = 50
	}
	if c.Batch.MaxJobsPerBatch == 0 {
		c.Batch.MaxJobsPerBatch = 100
	}
	if c.Batch.TimeoutSeconds == 0 {
		c.Batch.TimeoutSeconds = 30
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite3"
	}
}

// ParseHHMM splits a "HH:MM" string into its hour and minute parts.
func ParseHHMM(s string) (hour, min int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid HH:MM value %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	return hour, min, nil
}
