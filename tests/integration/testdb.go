// Package integration tests the invoicing backend against a real PostgreSQL
// instance started through testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// Shared container state for suites that opt into NewSharedTestDB.
var (
	sharedMu        sync.Mutex
	sharedContainer testcontainers.Container
	sharedDSN       string
)

// TestDB is a migrated PostgreSQL database bound to a single test.
type TestDB struct {
	DB *gorm.DB

	sqlDB     *sql.DB
	container testcontainers.Container
	t         *testing.T
}

// NewTestDB starts a dedicated PostgreSQL container, runs all migrations and
// returns a connection to it. The container is torn down with the test.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startPostgres(t, "invoicing_test")

	db, sqlDB := openGorm(t, dsn)
	applyMigrations(t, sqlDB)

	tdb := &TestDB{DB: db, sqlDB: sqlDB, container: container, t: t}
	t.Cleanup(tdb.close)
	return tdb
}

// NewSharedTestDB returns a connection to a PostgreSQL container shared by the
// whole package. The first caller starts the container and migrates it; later
// callers reuse it. Suites using this must truncate between tests via
// CleanTables and call CleanupSharedContainer from TestMain.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedContainer == nil {
		container, dsn := startPostgres(t, "invoicing_shared_test")

		_, sqlDB := openGorm(t, dsn)
		applyMigrations(t, sqlDB)
		sqlDB.Close()

		sharedContainer = container
		sharedDSN = dsn
	}

	db, sqlDB := openGorm(t, sharedDSN)

	tdb := &TestDB{DB: db, sqlDB: sqlDB, container: sharedContainer, t: t}
	t.Cleanup(tdb.close)
	return tdb
}

// startPostgres launches a PostgreSQL container and returns it with its DSN.
func startPostgres(t *testing.T, dbName string) (testcontainers.Container, string) {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "resolve container DSN")

	return container, dsn
}

// close releases the connection and, for dedicated containers, terminates them.
// The shared container stays up until CleanupSharedContainer.
func (tdb *TestDB) close() {
	if tdb.sqlDB != nil {
		tdb.sqlDB.Close()
	}

	if tdb.container != nil && tdb.container != sharedContainer {
		if err := tdb.container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("terminate container: %v", err)
		}
	}
}

// CleanTables truncates every public table except the migration bookkeeping,
// giving tests on a shared database a blank slate.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "list tables")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("truncate %s: %v", table, err)
		}
	}
}

// openGorm connects GORM to the given DSN with a small test-sized pool.
// Set TEST_DB_DEBUG to see the SQL being issued.
func openGorm(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	require.NoError(t, err, "connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "unwrap sql.DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// applyMigrations brings the database schema up to date using the migration
// files shipped with the backend.
func applyMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := locateMigrations()
	require.NotEmpty(t, migrationsPath, "migrations directory not found")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err, "create migrate instance")

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "apply migrations")
	}
}

// locateMigrations walks up from this file, then from the working directory,
// looking for the migrations directory.
func locateMigrations() string {
	_, filename, _, ok := runtime.Caller(0)
	if ok {
		dir := filepath.Dir(filename)
		for i := 0; i < 5; i++ {
			candidate := filepath.Join(dir, "migrations")
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			dir = filepath.Dir(dir)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		for _, candidate := range []string{
			filepath.Join(wd, "migrations"),
			filepath.Join(wd, "..", "migrations"),
			filepath.Join(wd, "..", "..", "migrations"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	return ""
}

// CleanupSharedContainer terminates the package-wide container, if one was
// started. Call it from TestMain after m.Run.
func CleanupSharedContainer() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedContainer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sharedContainer.Terminate(ctx)
	sharedContainer = nil
	sharedDSN = ""
}
