package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotAvailable      = errors.New("slot is not available")
	ErrCourseConflict    = errors.New("slot is reserved by a running course")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrGiftcardNotFound  = errors.New("giftcard not found")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type DB struct {
	db         *sql.DB
	logger     *zerolog.Logger
	mu         sync.RWMutex
	capacities map[string]int // technique -> max headcount per slot
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// _txlock=immediate acquires the write lock at BEGIN, so read-modify-write
	// transactions (capacity checks, giftcard consumes) serialize instead of
	// failing on lock upgrade.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db, logger: logger, capacities: make(map[string]int)}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schedule_rules (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            day_of_week INTEGER NOT NULL,
            time TEXT NOT NULL,
            instructor_id INTEGER NOT NULL,
            capacity INTEGER NOT NULL,
            technique TEXT NOT NULL DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(day_of_week, time, instructor_id, technique)
        )`,
		`CREATE TABLE IF NOT EXISTS session_overrides (
            date TEXT PRIMARY KEY,
            closed BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS override_sessions (
            date TEXT NOT NULL REFERENCES session_overrides(date) ON DELETE CASCADE,
            time TEXT NOT NULL,
            instructor_id INTEGER NOT NULL,
            capacity INTEGER NOT NULL,
            PRIMARY KEY (date, time, instructor_id)
        )`,
		`CREATE TABLE IF NOT EXISTS courses (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            technique TEXT NOT NULL,
            day_of_week INTEGER NOT NULL,
            time TEXT NOT NULL,
            start_date TEXT NOT NULL,
            weeks INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            customer_name TEXT NOT NULL,
            customer_email TEXT,
            phone TEXT,
            technique TEXT NOT NULL,
            participants INTEGER NOT NULL,
            is_paid BOOLEAN NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            comment TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS booking_slots (
            booking_id INTEGER NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            PRIMARY KEY (booking_id, date, time)
        )`,
		`CREATE TABLE IF NOT EXISTS booking_overrides (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL,
            overridden_by TEXT NOT NULL,
            reason TEXT NOT NULL,
            metadata TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS giftcards (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT UNIQUE NOT NULL,
            balance_cents INTEGER NOT NULL CHECK (balance_cents >= 0),
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS giftcard_holds (
            id TEXT PRIMARY KEY,
            giftcard_id INTEGER NOT NULL REFERENCES giftcards(id),
            amount_cents INTEGER NOT NULL,
            booking_id INTEGER NOT NULL,
            user_id INTEGER,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS giftcard_audit (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            giftcard_id INTEGER NOT NULL,
            action TEXT NOT NULL,
            amount_cents INTEGER NOT NULL,
            booking_id INTEGER,
            metadata TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_rules_day ON schedule_rules(day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_date_time ON booking_slots(date, time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_holds_giftcard ON giftcard_holds(giftcard_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_giftcard ON giftcard_audit(giftcard_id)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_overrides_booking ON booking_overrides(booking_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetCapacities installs the per-technique capacity pools from config.
func (db *DB) SetCapacities(capacities map[string]int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.capacities = make(map[string]int, len(capacities))
	for technique, capacity := range capacities {
		db.capacities[technique] = capacity
	}
}

// TechniqueCapacity returns the configured pool size for a technique.
func (db *DB) TechniqueCapacity(technique string) (int, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	capacity, ok := db.capacities[technique]
	return capacity, ok
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, opts)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

func (db *DB) Close() error {
	return db.db.Close()
}
