// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package storage implements the persistence adapter: a thin
// go-gorp/gorp layer over Postgres or SQLite (real Postgres in
// production, SQLite in single-node deployments).
package storage

import (
	"database/sql"
	"fmt"

	"github.com/go-gorp/gorp"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shopfloor-dev/jobscheduler/internal/model"
)

// Config is the connection configuration for the production Postgres
// backend, loaded from internal/conf.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// DB wraps a gorp DbMap with every domain table registered.
type DB struct {
	*gorp.DbMap
}

// NewPostgresDB opens a Postgres connection and registers all tables.
func NewPostgresDB(c Config) (*DB, error) {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db := &DB{DbMap: &gorp.DbMap{Db: sqlDB, Dialect: gorp.PostgresDialect{}, TypeConverter: JSONConverter{}}}
	registerTables(db.DbMap)
	return db, nil
}

// NewSQLiteDB opens a SQLite file (or ":memory:") and registers all
// tables, used by single-node deployments.
func NewSQLiteDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite connection: %w", err)
	}
	db := &DB{DbMap: &gorp.DbMap{Db: sqlDB, Dialect: gorp.SqliteDialect{}, TypeConverter: JSONConverter{}}}
	registerTables(db.DbMap)
	return db, nil
}

// tableRow is the interface every model row implements so it can be
// registered on the gorp DbMap with its indexes.
type tableRow interface {
	TableName() string
	Indexes() map[string][]string
}

func registerTables(dbmap *gorp.DbMap) {
	rows := []tableRow{
		model.Job{}, model.RoutingOperation{}, model.Machine{}, model.Resource{},
		model.ResourceUnavailability{}, model.ScheduleEntry{}, model.MaterialOrder{},
		model.OutsourcedOperation{}, model.Campaign{},
	}
	for _, r := range rows {
		table := dbmap.AddTableWithName(r, r.TableName()).SetKeys(false, "ID")
		for name, cols := range r.Indexes() {
			table.AddIndex(name, "Btree", cols)
		}
	}
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.Db.Close()
}
