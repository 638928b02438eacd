// Command migrate manages the invoicing database schema from the
// command line.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "migrations directory (default ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	migrationsPath = resolveMigrationsPath(log, migrationsPath)

	log.Info("migrate tool starting",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	// create and list work on the filesystem only.
	switch command {
	case "create":
		runCreate(log, migrationsPath, args[1:])
		return
	case "list":
		runList(log, migrationsPath)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load configuration failed", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("open database failed", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("database unreachable", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("init migrator failed", zap.Error(err))
	}
	defer m.Close()

	runCommand(log, m, command, args[1:])
}

func runCreate(log *zap.Logger, migrationsPath string, args []string) {
	if len(args) < 1 {
		log.Fatal("missing migration name, usage: migrate create <name> [description]")
	}
	name := args[0]
	description := ""
	if len(args) > 1 {
		description = args[1]
	}

	mf, err := migration.CreateMigration(migrationsPath, name, description)
	if err != nil {
		log.Fatal("create migration failed", zap.Error(err))
	}

	log.Info("migration files created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
}

func runList(log *zap.Logger, migrationsPath string) {
	migrations, err := migration.ListMigrations(migrationsPath)
	if err != nil {
		log.Fatal("list migrations failed", zap.Error(err))
	}

	if len(migrations) == 0 {
		log.Info("no migrations found")
		return
	}

	log.Info("available migrations", zap.Int("count", len(migrations)))
	for _, m := range migrations {
		fmt.Println("  -", m)
	}
}

func runCommand(log *zap.Logger, m *migration.Migrator, command string, args []string) {
	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("apply migrations failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("roll back migrations failed", zap.Error(err))
		}

	case "step":
		n, err := strconv.Atoi(requireArg(log, args, "missing step count, usage: migrate step <n>"))
		if err != nil {
			log.Fatal("step count is not a number", zap.Strings("args", args))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("step migrations failed", zap.Error(err))
		}

	case "goto":
		version, err := strconv.ParseUint(requireArg(log, args, "missing version, usage: migrate goto <version>"), 10, 32)
		if err != nil {
			log.Fatal("version is not a number", zap.Strings("args", args))
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("goto version failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("read schema version failed", zap.Error(err))
		}
		if version == 0 {
			log.Info("no migrations applied yet")
			return
		}
		log.Info("current schema version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)

	case "force":
		version, err := strconv.Atoi(requireArg(log, args, "missing version, usage: migrate force <version>"))
		if err != nil {
			log.Fatal("version is not a number", zap.Strings("args", args))
		}
		log.Warn("forcing schema version")
		if err := m.Force(version); err != nil {
			log.Fatal("force version failed", zap.Error(err))
		}

	case "drop":
		if !hasConfirmFlag(args) {
			log.Fatal("drop aborted, rerun as 'migrate drop -confirm' to proceed")
		}
		if err := m.Drop(); err != nil {
			log.Fatal("drop failed", zap.Error(err))
		}

	default:
		log.Error("unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func requireArg(log *zap.Logger, args []string, usage string) string {
	if len(args) < 1 {
		log.Fatal(usage)
	}
	return args[0]
}

func hasConfirmFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

// resolveMigrationsPath returns an absolute migrations directory,
// checking the working directory and the executable's repo layout when
// no explicit path was given.
func resolveMigrationsPath(log *zap.Logger, explicit string) string {
	path := explicit
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if execPath, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		log.Fatal("resolve migrations path failed", zap.Error(err))
	}
	return abs
}

func printUsage() {
	fmt.Println(`Invoicing database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    apply every pending migration
  down                  roll back every applied migration
  step <n>              apply n migrations, negative n rolls back
  goto <version>        migrate up or down to the given version
  version               print the current schema version
  force <version>       overwrite the recorded version without running SQL
  drop -confirm         drop every object in the database
  create <name> [desc]  write a new up/down migration file pair
  list                  print the available migration files

Flags:
  -path string          migrations directory (default ./migrations)
  -log-level string     log level: debug, info, warn or error

Environment:
  INVOICING_DATABASE_HOST, INVOICING_DATABASE_PORT, INVOICING_DATABASE_USER,
  INVOICING_DATABASE_PASSWORD, INVOICING_DATABASE_NAME, INVOICING_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate create add_invoices_table "Create invoices table with payment tracking"
  migrate version`)
}
