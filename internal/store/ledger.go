package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ledger entry kinds.
const (
	KindDeposit  = "deposit"
	KindBuyIn    = "buy_in"
	KindCashOut  = "cash_out"
	KindWithdraw = "withdraw"
	KindRefund   = "refund"
)

// Balance returns the player's off-chain chip balance. Unknown players have
// a zero balance.
func (s *Store) Balance(ctx context.Context, address string) (int64, error) {
	var chips int64
	err := s.QueryRowContext(ctx, "SELECT chips FROM balances WHERE address = ?", address).Scan(&chips)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return chips, nil
}

// Credit adds amount to the player's balance and journals the entry.
func (s *Store) Credit(ctx context.Context, address string, amount int64, kind, ref string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return creditTx(ctx, tx, address, amount, kind, ref)
	})
}

// Debit subtracts amount from the player's balance and journals the entry.
// Returns ErrInsufficientBalance without changing anything when the balance
// cannot cover the amount.
func (s *Store) Debit(ctx context.Context, address string, amount int64, kind, ref string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE balances SET chips = chips - ?
			WHERE address = ? AND chips >= ?
		`, amount, address, amount)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsufficientBalance
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (address, amount, kind, ref)
			VALUES (?, ?, ?, ?)
		`, address, -amount, kind, ref)
		return err
	})
}

// CreditDeposit records an on-chain deposit and credits the ledger in one
// transaction. The deposit transaction id is the idempotency key: crediting
// the same txID twice returns ErrDuplicateTx with no balance change.
func (s *Store) CreditDeposit(ctx context.Context, txID, address, roomID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deposits (tx_id, address, room_id, amount)
			VALUES (?, ?, ?, ?)
		`, txID, address, roomID, amount); err != nil {
			return err
		}
		return creditTx(ctx, tx, address, amount, KindDeposit, txID)
	})
	if isConstraint(err) {
		return ErrDuplicateTx
	}
	return err
}

// RecordDeposit records a consumed deposit txID without touching the chip
// ledger. Vault buy-ins use this: the chips sit on the table, escrowed
// on-chain, so only the idempotency record is needed. Returns ErrDuplicateTx
// when the txID was already consumed.
func (s *Store) RecordDeposit(ctx context.Context, txID, address, roomID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}
	_, err := s.ExecContext(ctx, `
		INSERT INTO deposits (tx_id, address, room_id, amount)
		VALUES (?, ?, ?, ?)
	`, txID, address, roomID, amount)
	if isConstraint(err) {
		return ErrDuplicateTx
	}
	return err
}

// Deposit is one consumed on-chain deposit transaction.
type Deposit struct {
	TxID       string
	Address    string
	RoomID     string
	Amount     int64
	CreditedAt time.Time
}

// DepositByTx returns the deposit consumed under txID, or ErrNotFound.
func (s *Store) DepositByTx(ctx context.Context, txID string) (*Deposit, error) {
	var d Deposit
	err := s.QueryRowContext(ctx, `
		SELECT tx_id, address, room_id, amount, credited_at
		FROM deposits WHERE tx_id = ?
	`, txID).Scan(&d.TxID, &d.Address, &d.RoomID, &d.Amount, &d.CreditedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DepositProcessed reports whether a deposit txID has already been consumed.
func (s *Store) DepositProcessed(ctx context.Context, txID string) (bool, error) {
	var one int
	err := s.QueryRowContext(ctx, "SELECT 1 FROM deposits WHERE tx_id = ?", txID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AccrueRake adds amount to the room's accumulated rake.
func (s *Store) AccrueRake(ctx context.Context, roomID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("rake amount must be positive, got %d", amount)
	}
	_, err := s.ExecContext(ctx, `
		INSERT INTO rake_ledger (room_id, accrued) VALUES (?, ?)
		ON CONFLICT(room_id) DO UPDATE SET accrued = accrued + ?
	`, roomID, amount, amount)
	return err
}

// RakeAccrued returns the rake accumulated for a room and not yet swept.
func (s *Store) RakeAccrued(ctx context.Context, roomID string) (int64, error) {
	var accrued int64
	err := s.QueryRowContext(ctx, "SELECT accrued FROM rake_ledger WHERE room_id = ?", roomID).Scan(&accrued)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return accrued, nil
}

// TakeRake zeroes the room's accrued rake and returns the amount taken.
func (s *Store) TakeRake(ctx context.Context, roomID string) (int64, error) {
	var taken int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, "SELECT accrued FROM rake_ledger WHERE room_id = ?", roomID).Scan(&taken)
		if errors.Is(err, sql.ErrNoRows) {
			taken = 0
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE rake_ledger SET accrued = 0 WHERE room_id = ?", roomID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return taken, nil
}

func creditTx(ctx context.Context, tx *sql.Tx, address string, amount int64, kind, ref string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (address, chips) VALUES (?, ?)
		ON CONFLICT(address) DO UPDATE SET chips = chips + ?
	`, address, amount, amount); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (address, amount, kind, ref)
		VALUES (?, ?, ?, ?)
	`, address, amount, kind, ref)
	return err
}
