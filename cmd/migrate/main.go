package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/repoflow/backend/internal/infrastructure/config"
	"github.com/repoflow/backend/internal/infrastructure/logger"
	"github.com/repoflow/backend/internal/infrastructure/migration"
	"github.com/repoflow/backend/migrations"
)

const usage = `Recipe schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands against the database (RECIPES_DATABASE_* settings, postgres only):
  up                    Apply all pending migrations
  down                  Roll back every migration
  step <n>              Apply n migrations, or roll back -n
  goto <version>        Migrate up or down to version
  version               Print the applied version
  force <version>       Mark version applied without running it (repairs a dirty schema)

Commands on files:
  create <name> [desc]  Scaffold the next numbered up/down pair
  list                  List migrations in the directory

Flags:
`

// dbCommand runs against an open migrator with the remaining arguments.
type dbCommand func(m *migration.Migrator, args []string, log *zap.Logger) error

var dbCommands = map[string]dbCommand{
	"up":   func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() },
	"down": func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() },
	"step": func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := intArg(args, "step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	},
	"goto": func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := intArg(args, "goto <version>")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("version must not be negative")
		}
		return m.GoTo(uint(v))
	},
	"force": func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := intArg(args, "force <version>")
		if err != nil {
			return err
		}
		return m.Force(v)
	},
	"version": func(m *migration.Migrator, _ []string, log *zap.Logger) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	},
}

func main() {
	dir := flag.String("path", "", "migrations directory (default: embedded set for database commands, ./migrations for create/list)")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout", TimeFormat: "15:04:05"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	if err := run(args[0], args[1:], *dir, log); err != nil {
		log.Fatal("migrate "+args[0]+" failed", zap.Error(err))
	}
}

func run(command string, args []string, dir string, log *zap.Logger) error {
	switch command {
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("usage: migrate create <name> [description]")
		}
		var desc string
		if len(args) > 1 {
			desc = args[1]
		}
		p, err := migration.Scaffold(localDir(dir), args[0], desc)
		if err != nil {
			return err
		}
		log.Info("migration created", zap.String("version", p.Version), zap.String("up", p.UpPath), zap.String("down", p.DownPath))
		return nil

	case "list":
		names, err := migration.List(localDir(dir))
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}

	cmd, ok := dbCommands[command]
	if !ok {
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("driver %q has no versioned migrations; sqlite schemas are created by the server", cfg.Database.Driver)
	}

	var src fs.FS = migrations.FS
	if dir != "" {
		src = os.DirFS(localDir(dir))
		log.Info("reading migrations from directory", zap.String("path", dir))
	}
	m, err := migration.Open(cfg.Database.DSN(), src, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("failed to close migrator", zap.Error(err))
		}
	}()

	return cmd(m, args, log)
}

func localDir(dir string) string {
	if dir == "" {
		dir = "migrations"
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func intArg(args []string, form string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("usage: migrate %s", form)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", args[0])
	}
	return n, nil
}
