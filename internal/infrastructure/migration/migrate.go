// Package migration wraps golang-migrate for managing the invoicing
// database schema from CLI tooling.
package migration

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator applies SQL migration files to a PostgreSQL database.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// New builds a Migrator on top of an existing database connection,
// reading migration files from migrationsPath.
func New(db *sql.DB, migrationsPath string, log *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return &Migrator{m: m, log: log}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	m.log.Info("Applying pending migrations")

	changed, err := normalize(m.m.Up())
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if !changed {
		m.log.Info("Schema already up to date")
		return nil
	}
	return m.logSchemaVersion()
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	m.log.Info("Rolling back all migrations")

	changed, err := normalize(m.m.Down())
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	if !changed {
		m.log.Info("No migrations to roll back")
		return nil
	}

	m.log.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations, negative n rolls back.
func (m *Migrator) Steps(n int) error {
	m.log.Info("Applying migration steps", zap.Int("steps", n))

	changed, err := normalize(m.m.Steps(n))
	if err != nil {
		return fmt.Errorf("migrate steps: %w", err)
	}
	if !changed {
		m.log.Info("Schema already up to date")
		return nil
	}
	return m.logSchemaVersion()
}

// GoTo migrates up or down until the schema is at the given version.
func (m *Migrator) GoTo(version uint) error {
	m.log.Info("Migrating to version", zap.Uint("target_version", version))

	changed, err := normalize(m.m.Migrate(version))
	if err != nil {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	if !changed {
		m.log.Info("Already at target version")
		return nil
	}

	m.log.Info("Migrated to version", zap.Uint("version", version))
	return nil
}

// Version reports the current schema version. A fresh database with no
// applied migrations reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded schema version without running any
// migrations. Only useful for repairing a dirty state.
func (m *Migrator) Force(version int) error {
	m.log.Warn("Forcing schema version", zap.Int("version", version))

	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}

	m.log.Info("Schema version forced", zap.Int("version", version))
	return nil
}

// Drop removes every object in the database, data included.
func (m *Migrator) Drop() error {
	m.log.Warn("Dropping database, all data will be lost")

	if err := m.m.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}

	m.log.Info("Database dropped")
	return nil
}

// Close releases the migration source and database handles.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database handle: %w", dbErr)
	}
	return nil
}

// normalize folds migrate.ErrNoChange into a "nothing happened" result
// so callers treat it as success.
func normalize(err error) (bool, error) {
	switch err {
	case nil:
		return true, nil
	case migrate.ErrNoChange:
		return false, nil
	default:
		return false, err
	}
}

func (m *Migrator) logSchemaVersion() error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}

	m.log.Info("Schema migrated",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}
