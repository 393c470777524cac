package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/straye-as/lead-api/internal/config"
	_ "gorm.io/driver/sqlite" // registers the sqlite3 database/sql driver
)

const usage = `usage: migrate [-dir DIR] COMMAND [ARGS]

commands:
  up                 apply all pending migrations
  up-to VERSION      apply migrations up to VERSION
  down               roll back the latest migration
  redo               roll back and re-apply the latest migration
  reset              roll back every migration
  status             print the state of every migration
  version            print the current schema version
  create NAME        create a new SQL migration`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", "./migrations", "migrations directory")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall time limit")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}
	command, args := flag.Arg(0), flag.Args()[1:]
	if command == "create" {
		// new migration files are always SQL
		args = append(args, "sql")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, dialect, err := open(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := goose.RunContext(ctx, command, db, *dir, args...); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

// open connects with the database/sql driver matching database.mode
func open(cfg *config.DatabaseConfig) (*sql.DB, string, error) {
	driver, dsn := "postgres", cfg.ConnectionString()
	if cfg.Mode == "sqlite" {
		driver, dsn = "sqlite3", cfg.SQLitePath
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s database: %w", cfg.Mode, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping %s database: %w", cfg.Mode, err)
	}
	return db, driver, nil
}
