package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fadedpez/contrast/internal/config"
	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/pkg/db/migrations"
	"github.com/fadedpez/contrast/pkg/repositories/ledger"
	_ "github.com/mattn/go-sqlite3"
)

// Where new ledger migrations are written so they get embedded
const ledgerMigrationsDir = "pkg/repositories/ledger/migrations"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if os.Args[1] == "help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.Log.Level, cfg.Log.Pretty)

	if err := run(context.Background(), logger, os.Stdout, cfg.Storage.DBPath, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migration status [-dir DIR]         - List ledger migrations and whether each is applied")
	fmt.Println("  migration up [-dir DIR]             - Apply pending ledger migrations")
	fmt.Println("  migration new [-dir DIR] DESCRIPTION - Write the next numbered migration file")
	fmt.Println("  migration help                      - Show this help")
	fmt.Println("\nThe ledger lives at LEDGER_DB_PATH (default $DATA_DIR/ledger.db).")
	fmt.Println("Without -dir the migrations embedded in the ledger are used.")
}

func run(ctx context.Context, logger *logging.Logger, out io.Writer, dbPath, name string, args []string) error {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	dir := flags.String("dir", "", "migrations directory")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if name == "new" {
		if flags.NArg() < 1 {
			return errors.New("new needs a description")
		}
		target := *dir
		if target == "" {
			target = ledgerMigrationsDir
		}
		path, err := migrations.NewMigrator(nil, target).CreateMigration(strings.Join(flags.Args(), " "))
		if err != nil {
			return fmt.Errorf("error creating migration: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n", path)
		return nil
	}

	db, err := openLedger(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := migrations.NewFSMigrator(db, ledger.MigrationsFS())
	if *dir != "" {
		migrator = migrations.NewMigrator(db, *dir)
	}
	migrator = migrator.WithLogger(logger)

	switch name {
	case "status":
		return printStatus(ctx, migrator, out)
	case "up":
		applied, err := migrator.MigrateUp(ctx)
		if err != nil {
			return fmt.Errorf("error applying migrations: %w", err)
		}
		fmt.Fprintf(out, "Applied %d migrations to %s\n", applied, dbPath)
		return nil
	default:
		return fmt.Errorf("unknown command '%s'", name)
	}
}

func openLedger(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", dbPath))
	if err != nil {
		return nil, fmt.Errorf("error opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func printStatus(ctx context.Context, migrator *migrations.Migrator, out io.Writer) error {
	if err := migrator.Initialize(ctx); err != nil {
		return err
	}
	applied, err := migrator.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	all, err := migrator.LoadMigrations()
	if err != nil {
		return err
	}

	pending := 0
	for _, m := range all {
		state := "applied"
		if !applied[m.Version] {
			state = "pending"
			pending++
		}
		fmt.Fprintf(out, "%s  %-8s %s\n", m.Version, state, m.Description)
	}
	fmt.Fprintf(out, "%d of %d pending\n", pending, len(all))
	return nil
}
