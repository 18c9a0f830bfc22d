// Package db provides database connectivity for the local draft stash
package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/celestiaorg/jobdesk/internal/db/models"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Database configuration constants
const (
	// DefaultDriver is the driver used when none is configured
	DefaultDriver = DriverSQLite
	// DefaultSQLiteFile is the stash file name under the user config directory
	DefaultSQLiteFile = "drafts.db"
	// DefaultPostgresDSN is the DSN used for postgres when none is configured
	DefaultPostgresDSN = "host=localhost user=postgres password=postgres dbname=jobdesk port=5432 sslmode=disable"
)

// Options represents database connection configuration options
type Options struct {
	Driver   string
	DSN      string
	LogLevel logger.LogLevel
}

// ValidateDriver checks that driver is one of the supported drivers
func ValidateDriver(driver string) error {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return nil
	}
	return fmt.Errorf("%w: unsupported drafts driver %q", types.ErrValidation, driver)
}

// DefaultSQLitePath returns the default location of the sqlite stash
func DefaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultSQLiteFile
	}
	return filepath.Join(dir, "jobdesk", DefaultSQLiteFile)
}

// New opens the draft stash with the given options and migrates it
func New(opts Options) (*gorm.DB, error) {
	opts = setDefaults(opts)
	if err := ValidateDriver(opts.Driver); err != nil {
		return nil, err
	}

	// Configure custom logger to ignore record not found errors
	newLogger := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	// Configure GORM
	config := &gorm.Config{
		Logger: newLogger,
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	default:
		if err := ensureDir(opts.DSN); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(opts.DSN)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s draft stash: %w", opts.Driver, err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate draft stash: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func setDefaults(opts Options) Options {
	if opts.Driver == "" {
		opts.Driver = DefaultDriver
	}
	if opts.DSN == "" {
		switch opts.Driver {
		case DriverPostgres:
			opts.DSN = DefaultPostgresDSN
		default:
			opts.DSN = DefaultSQLitePath()
		}
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	return opts
}

// ensureDir creates the parent directory of a sqlite file DSN
func ensureDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dsn), 0o750)
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DraftStash{},
	)
}
