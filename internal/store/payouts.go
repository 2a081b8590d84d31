package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PayoutStatus tracks an on-chain payout through its lifecycle.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "PENDING"
	PayoutSent      PayoutStatus = "SENT"
	PayoutConfirmed PayoutStatus = "CONFIRMED"
	PayoutFailed    PayoutStatus = "FAILED"
)

// Payout is one cash-out from a room vault to a player's wallet. Ref is the
// seat session the payout settles, so a repeated cash-out request finds the
// existing record instead of paying twice.
type Payout struct {
	ID        string
	RoomID    string
	Address   string
	Ref       string
	Chips     int64
	Amount    int64
	Status    PayoutStatus
	Attempts  int
	TxID      string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePayout inserts a new payout record.
func (s *Store) CreatePayout(ctx context.Context, p *Payout) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO payouts (id, room_id, address, ref, chips, amount, status, attempts, tx_id, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.RoomID, p.Address, p.Ref, p.Chips, p.Amount, p.Status, p.Attempts, p.TxID, p.LastError)
	if isConstraint(err) {
		return fmt.Errorf("payout %s for ref %s: %w", p.ID, p.Ref, ErrDuplicateTx)
	}
	return err
}

// UpdatePayout persists the mutable payout fields by id.
func (s *Store) UpdatePayout(ctx context.Context, p *Payout) error {
	res, err := s.ExecContext(ctx, `
		UPDATE payouts
		SET status = ?, attempts = ?, tx_id = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Status, p.Attempts, p.TxID, p.LastError, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("payout %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// PayoutByID fetches one payout.
func (s *Store) PayoutByID(ctx context.Context, id string) (*Payout, error) {
	return s.scanPayout(s.QueryRowContext(ctx, selectPayout+" WHERE id = ?", id))
}

// PayoutByRef finds the live payout settling a seat session, if any.
func (s *Store) PayoutByRef(ctx context.Context, roomID, address, ref string) (*Payout, error) {
	return s.scanPayout(s.QueryRowContext(ctx,
		selectPayout+` WHERE room_id = ? AND address = ? AND ref = ? AND status != ?
		ORDER BY created_at DESC LIMIT 1`, roomID, address, ref, PayoutFailed))
}

// OpenPayoutFor finds a non-terminal payout for the player in a room. The
// vault engine consults this before creating a new payout so a duplicate
// cash-out request cannot double-pay.
func (s *Store) OpenPayoutFor(ctx context.Context, roomID, address string) (*Payout, error) {
	return s.scanPayout(s.QueryRowContext(ctx,
		selectPayout+` WHERE room_id = ? AND address = ? AND status IN (?, ?)
		ORDER BY created_at DESC LIMIT 1`, roomID, address, PayoutPending, PayoutSent))
}

// PayoutsByStatus lists payouts in a given state, oldest first. Used on
// startup to resume payouts interrupted mid-flight.
func (s *Store) PayoutsByStatus(ctx context.Context, status PayoutStatus) ([]*Payout, error) {
	rows, err := s.QueryContext(ctx, selectPayout+" WHERE status = ? ORDER BY created_at", status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Payout
	for rows.Next() {
		p, err := s.scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const selectPayout = `
	SELECT id, room_id, address, ref, chips, amount, status, attempts, tx_id, last_error, created_at, updated_at
	FROM payouts`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanPayout(row rowScanner) (*Payout, error) {
	var p Payout
	err := row.Scan(&p.ID, &p.RoomID, &p.Address, &p.Ref, &p.Chips, &p.Amount,
		&p.Status, &p.Attempts, &p.TxID, &p.LastError, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// WithdrawalStatus mirrors PayoutStatus for ledger withdrawals.
type WithdrawalStatus = PayoutStatus

// Withdrawal is an off-chain ledger balance paid back to the player's wallet.
type Withdrawal struct {
	ID        string
	Address   string
	Amount    int64
	Status    WithdrawalStatus
	TxID      string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateWithdrawal inserts a new withdrawal record.
func (s *Store) CreateWithdrawal(ctx context.Context, w *Withdrawal) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO withdrawals (id, address, amount, status, tx_id, last_error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ID, w.Address, w.Amount, w.Status, w.TxID, w.LastError)
	return err
}

// UpdateWithdrawal persists the mutable withdrawal fields by id.
func (s *Store) UpdateWithdrawal(ctx context.Context, w *Withdrawal) error {
	res, err := s.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = ?, tx_id = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, w.Status, w.TxID, w.LastError, w.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("withdrawal %s: %w", w.ID, ErrNotFound)
	}
	return nil
}

// WithdrawalsByStatus lists withdrawals in a given state, oldest first.
func (s *Store) WithdrawalsByStatus(ctx context.Context, status WithdrawalStatus) ([]*Withdrawal, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, address, amount, status, tx_id, last_error, created_at, updated_at
		FROM withdrawals WHERE status = ? ORDER BY created_at
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Withdrawal
	for rows.Next() {
		var w Withdrawal
		if err := rows.Scan(&w.ID, &w.Address, &w.Amount, &w.Status, &w.TxID,
			&w.LastError, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}
