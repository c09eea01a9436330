// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationFiles are the numbered schema migrations run before the
// scheduler is started, embedded in the binary.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending migration to db. dialect selects the
// golang-migrate database driver ("postgres" or "sqlite3").
func Migrate(db *DB, dialect string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	var m *migrate.Migrate
	switch dialect {
	case "postgres":
		pgDriver, err := postgres.WithInstance(db.Db, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("building postgres migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", pgDriver)
		if err != nil {
			return fmt.Errorf("building migrator: %w", err)
		}
	case "sqlite3":
		liteDriver, err := sqlite3.WithInstance(db.Db, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("building sqlite migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite3", liteDriver)
		if err != nil {
			return fmt.Errorf("building migrator: %w", err)
		}
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
