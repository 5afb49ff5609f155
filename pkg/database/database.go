package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds relational store configuration
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config pointing at a local Postgres
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverPostgres,
		DSN:             "host=localhost user=warranty password=warranty dbname=warranty port=5432 sslmode=disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Open opens a GORM handle for the configured driver. SQLite is limited to a
// single connection so concurrent transactions queue instead of failing with
// SQLITE_BUSY.
func Open(config *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case DriverPostgres:
		dialector = postgres.Open(config.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}

	maxOpen := config.MaxOpenConns
	if config.Driver == DriverSQLite {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(min(config.MaxIdleConns, maxOpen))
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	return db, nil
}

// Ping checks database connectivity
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const startKey = "instrumentation:start"

// Instrument registers GORM callbacks that record per-statement metrics and
// debug logs. Either argument may be nil.
func Instrument(db *gorm.DB, m *metrics.Metrics, logger *logging.Logger) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startKey)
			if !ok {
				return
			}
			start, _ := v.(time.Time)
			duration := time.Since(start)

			success := tx.Error == nil || errors.Is(tx.Error, gorm.ErrRecordNotFound)
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}

			m.RecordDBOperation(table, operation, success, duration)
			if logger != nil {
				logger.DatabaseQuery(tx.Statement.Context, table, operation, duration, success, tx.RowsAffected)
			}
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("instrumentation:before_create", before),
		cb.Create().After("gorm:create").Register("instrumentation:after_create", after("create")),
		cb.Query().Before("gorm:query").Register("instrumentation:before_query", before),
		cb.Query().After("gorm:query").Register("instrumentation:after_query", after("query")),
		cb.Update().Before("gorm:update").Register("instrumentation:before_update", before),
		cb.Update().After("gorm:update").Register("instrumentation:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("instrumentation:before_delete", before),
		cb.Delete().After("gorm:delete").Register("instrumentation:after_delete", after("delete")),
		cb.Row().Before("gorm:row").Register("instrumentation:before_row", before),
		cb.Row().After("gorm:row").Register("instrumentation:after_row", after("row")),
		cb.Raw().Before("gorm:raw").Register("instrumentation:before_raw", before),
		cb.Raw().After("gorm:raw").Register("instrumentation:after_raw", after("raw")),
	)
}
