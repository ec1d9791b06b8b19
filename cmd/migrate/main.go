// Command migrate manages the engine's database schema. Migrations are
// embedded in the binary; -path points it at a directory instead.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/foodtruck/backend/internal/infrastructure/config"
	"github.com/foodtruck/backend/internal/infrastructure/logger"
	"github.com/foodtruck/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

var errUsage = errors.New("invalid arguments")

// invocation is what a command runs with. migrator is nil for offline commands.
type invocation struct {
	args     []string
	path     string
	migrator *migration.Migrator
	log      *zap.Logger
}

type command struct {
	usage   string
	help    string
	offline bool
	minArgs int
	run     func(inv invocation) error
}

var commands = map[string]command{
	"up": {
		help: "Apply all pending migrations",
		run:  func(inv invocation) error { return inv.migrator.Up() },
	},
	"down": {
		help: "Roll back all migrations",
		run:  func(inv invocation) error { return inv.migrator.Down() },
	},
	"step": {
		usage: "step <n>", help: "Apply n migrations (negative rolls back)", minArgs: 1,
		run: func(inv invocation) error {
			n, err := strconv.Atoi(inv.args[0])
			if err != nil {
				return fmt.Errorf("%w: step count %q", errUsage, inv.args[0])
			}
			return inv.migrator.Steps(n)
		},
	},
	"goto": {
		usage: "goto <version>", help: "Migrate to a specific version", minArgs: 1,
		run: func(inv invocation) error {
			v, err := strconv.ParseUint(inv.args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, inv.args[0])
			}
			return inv.migrator.GoTo(uint(v))
		},
	},
	"version": {
		help: "Show the applied version",
		run: func(inv invocation) error {
			v, dirty, err := inv.migrator.Version()
			if err != nil {
				return err
			}
			if v == 0 {
				inv.log.Info("No migrations applied")
				return nil
			}
			inv.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"force": {
		usage: "force <version>", help: "Mark a version as applied without running it", minArgs: 1,
		run: func(inv invocation) error {
			v, err := strconv.Atoi(inv.args[0])
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, inv.args[0])
			}
			return inv.migrator.Force(v)
		},
	},
	"drop": {
		usage: "drop -confirm", help: "Drop every object in the database",
		run: func(inv invocation) error {
			if len(inv.args) == 0 || (inv.args[0] != "-confirm" && inv.args[0] != "--confirm") {
				return fmt.Errorf("%w: drop needs -confirm", errUsage)
			}
			return inv.migrator.Drop()
		},
	},
	"create": {
		usage: "create <name> [desc]", help: "Write a new up/down file pair", offline: true, minArgs: 1,
		run: func(inv invocation) error {
			dir := inv.path
			if dir == "" {
				dir = defaultMigrationsPath
			}
			desc := ""
			if len(inv.args) > 1 {
				desc = inv.args[1]
			}
			mf, err := migration.CreateMigration(dir, inv.args[0], desc)
			if err != nil {
				return err
			}
			inv.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	},
	"list": {
		help: "List available migrations", offline: true,
		run: func(inv invocation) error {
			var (
				names []string
				err   error
			)
			if inv.path == "" {
				names, err = migration.Embedded()
			} else {
				names, err = migration.ListMigrations(inv.path)
			}
			if err != nil {
				return err
			}
			inv.log.Info("Available migrations", zap.Int("count", len(names)))
			for _, n := range names {
				fmt.Println("  -", n)
			}
			return nil
		},
	},
}

func main() {
	path := flag.String("path", "", "migrations directory (default: embedded, ./migrations for create)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.minArgs {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	inv := invocation{args: args[1:], log: log}
	if *path != "" {
		if inv.path, err = filepath.Abs(*path); err != nil {
			log.Fatal("Invalid migrations path", zap.Error(err))
		}
	}

	if !cmd.offline {
		db, m := connect(inv.path, log)
		defer db.Close()
		defer m.Close()
		inv.migrator = m
	}

	if err := cmd.run(inv); err != nil {
		if errors.Is(err, errUsage) {
			log.Error("Bad arguments", zap.String("command", args[0]), zap.Error(err))
			printUsage()
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func connect(path string, log *zap.Logger) (*sql.DB, *migration.Migrator) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, path, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	return db, m
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command> [arguments]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, name := range names {
		c := commands[name]
		usage := c.usage
		if usage == "" {
			usage = name
		}
		fmt.Fprintf(os.Stderr, "  %-22s %s\n", usage, c.help)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Database settings come from config.toml and FOODTRUCK_DATABASE_* variables.")
}
