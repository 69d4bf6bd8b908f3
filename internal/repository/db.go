// Package repository is the persistence layer. It exclusively owns mutable
// entity state; services read through it and mutate inside transactions.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tolga/reserva/internal/model"
)

// Open connects to the configured database. Supported drivers are "sqlite"
// (embedded target) and "postgres" (networked target).
func Open(driver, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// Serialized writers and enforced foreign keys; WAL keeps readers
		// from blocking the booking path.
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
		} {
			if err := db.Exec(pragma).Error; err != nil {
				return nil, fmt.Errorf("apply %q: %w", pragma, err)
			}
		}
	}

	log.Info().Str("driver", driver).Msg("database connected")
	return db, nil
}

// AutoMigrate creates or updates the schema, including the composite
// conflict-index on (room_id, start_at, end_at, status).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Department{},
		&model.User{},
		&model.Room{},
		&model.Reservation{},
		&model.JobRun{},
		&model.ReminderMarker{},
	)
}

// WithinTransaction runs fn inside a transaction carrying ctx. The postgres
// target is raised to REPEATABLE READ; combined with the per-room mutex this
// serializes bookings for any single room. SQLite transactions are already
// serializable and its driver rejects explicit isolation levels.
func WithinTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn, TxOptions(db.Dialector.Name())...)
}

// TxOptions returns the isolation override for the given gorm dialect.
func TxOptions(dialect string) []*sql.TxOptions {
	if dialect == "postgres" {
		return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead}}
	}
	return nil
}

// IsTransient reports whether err is a persistence failure worth retrying:
// serialization failures, deadlocks, lost connections and SQLite busy locks.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		if strings.HasPrefix(pgErr.Code, "08") { // connection exceptions
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// touchUpdatedAt is shared by repositories that update via column maps,
// where gorm's auto-timestamps do not fire.
func touchUpdatedAt(values map[string]any, now time.Time) map[string]any {
	values["updated_at"] = now
	return values
}
