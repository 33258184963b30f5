package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

// ErrStoreUnavailable reports a missing or unreadable table. Readers turn it
// into an empty result instead of failing the caller.
var ErrStoreUnavailable = errors.New("store unavailable")

const (
	// DriverPure is modernc.org/sqlite, which ships FTS5.
	DriverPure = "sqlite"
	// DriverCgo is mattn/go-sqlite3; build with -tags sqlite_fts5.
	DriverCgo = "sqlite3"
)

type Config struct {
	Path   string
	Driver string
}

func FromSettings(c utils.DatabaseConfig) Config {
	return Config{Path: c.Path, Driver: c.Driver}
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

func Open(cfg Config) (*sql.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	driver := cfg.Driver
	switch driver {
	case "":
		driver = DriverPure
	case DriverPure, DriverCgo:
	default:
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

func MustOpen(cfg Config, log *logger.Logger) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal("failed to open db", "path", cfg.Path, "error", err)
	}
	return db
}

// Classify maps driver errors that mean "the table is not there" onto
// ErrStoreUnavailable; everything else is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "database disk image is malformed") {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
