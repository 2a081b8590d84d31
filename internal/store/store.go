// Package store is the service's persistence layer: the off-chain chip
// ledger, processed deposits, payout and withdrawal records, seat state for
// restart recovery, finished hand results, and login nonces. Everything
// lives in a single sqlite database so a deployment is one file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInsufficientBalance is returned by Debit when the ledger balance
	// cannot cover the amount.
	ErrInsufficientBalance = errors.New("store: insufficient balance")
	// ErrDuplicateTx is returned when a deposit transaction id has already
	// been credited.
	ErrDuplicateTx = errors.New("store: transaction already processed")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	address    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS balances (
	address TEXT PRIMARY KEY,
	chips   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS ledger_entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	address    TEXT NOT NULL,
	amount     INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	ref        TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS deposits (
	tx_id       TEXT PRIMARY KEY,
	address     TEXT NOT NULL,
	room_id     TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	credited_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS payouts (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL,
	address    TEXT NOT NULL,
	ref        TEXT NOT NULL DEFAULT '',
	chips      INTEGER NOT NULL,
	amount     INTEGER NOT NULL,
	status     TEXT NOT NULL,
	attempts   INTEGER NOT NULL DEFAULT 0,
	tx_id      TEXT NOT NULL DEFAULT '',
	last_error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS payouts_by_ref
	ON payouts(room_id, address, ref) WHERE status != 'FAILED';
CREATE TABLE IF NOT EXISTS withdrawals (
	id         TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	amount     INTEGER NOT NULL,
	status     TEXT NOT NULL,
	tx_id      TEXT NOT NULL DEFAULT '',
	last_error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS room_seats (
	room_id    TEXT NOT NULL,
	address    TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	seat       INTEGER NOT NULL,
	chips      INTEGER NOT NULL,
	status     TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (room_id, address)
);
CREATE TABLE IF NOT EXISTS hand_results (
	hand_id      TEXT PRIMARY KEY,
	room_id      TEXT NOT NULL,
	seed         TEXT NOT NULL,
	board        TEXT NOT NULL,
	pot          INTEGER NOT NULL,
	rake         INTEGER NOT NULL,
	winners      TEXT NOT NULL,
	completed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS login_nonces (
	address    TEXT PRIMARY KEY,
	nonce      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS rake_ledger (
	room_id TEXT PRIMARY KEY,
	accrued INTEGER NOT NULL DEFAULT 0
);
`

// Store wraps the sqlite connection.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Pass ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows one writer; a single conn avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// isConstraint reports whether err is a sqlite primary-key or unique
// constraint violation.
func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
