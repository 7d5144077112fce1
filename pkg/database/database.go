package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	Driver          string // sqlite or postgres
	Path            string // sqlite file path
	DSN             string // postgres connection string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps sql.DB with the dialect it was opened with
type DB struct {
	*sql.DB
	Dialect Dialect
	logger  *zap.Logger
}

// Open creates a new database connection for the configured driver.
// The connection is not pinged; use WaitForDB before first use.
func Open(cfg Config, logger *zap.Logger) (*DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var driverName, dsn string
	switch dialect {
	case DialectPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		driverName, dsn = "postgres", cfg.DSN
	default:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		// WAL for concurrent readers, foreign keys for history cascade
		driverName = sqliteDriverName
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &DB{
		DB:      sqlDB,
		Dialect: dialect,
		logger:  logger,
	}, nil
}

// WaitForDB pings the database until it answers or attempts run out.
// The delay between attempts grows linearly from base.
func WaitForDB(ctx context.Context, db *DB, attempts int, base time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			db.logger.Info("Database connection established",
				zap.String("dialect", string(db.Dialect)),
				zap.Int("attempt", i))
			return nil
		}

		db.logger.Warn("Database not ready",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Error(lastErr))

		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base * time.Duration(i)):
		}
	}

	return fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, lastErr)
}

// WithTransaction executes a function within a transaction
func (db *DB) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := db.DB.Begin()
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}
