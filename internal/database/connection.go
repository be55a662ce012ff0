package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// Config describes how to reach the progress store
type Config struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// DefaultConfig returns a local SQLite configuration
func DefaultConfig() Config {
	return Config{
		Driver:       DriverSQLite,
		DSN:          filepath.Join("data", "seamanship.db"),
		MaxOpenConns: 25,
		AutoMigrate:  true,
	}
}

// normalizeDriver accepts the short names used in env files
func normalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres, nil
	case "sqlite", "sqlite3", "":
		return DriverSQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", name)
}

// ensureDataDir creates the directory holding a SQLite file
func ensureDataDir(driver, dsn string) error {
	if driver != DriverSQLite || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return nil
}

// Connect opens the store and applies pool settings
func Connect(cfg Config) (*sqlx.DB, error) {
	driver, err := normalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if err := ensureDataDir(driver, cfg.DSN); err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	return db, nil
}

// Migrate brings the schema up to date. It opens its own connection so that
// closing the migrator leaves the application pool untouched.
func Migrate(cfg Config) error {
	driver, err := normalizeDriver(cfg.Driver)
	if err != nil {
		return err
	}

	if err := ensureDataDir(driver, cfg.DSN); err != nil {
		return err
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	var (
		target migratedb.Driver
		dir    string
	)
	switch driver {
	case DriverPostgres:
		target, err = migratepg.WithInstance(db, &migratepg.Config{})
		dir = "migrations/postgres"
	default:
		target, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
		dir = "migrations/sqlite"
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to prepare migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		_ = target.Close()
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		_ = source.Close()
		_ = target.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
