package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// User is a registered wallet.
type User struct {
	Address   string
	Name      string
	CreatedAt time.Time
}

// UpsertUser registers a wallet address, updating the display name on
// repeat logins.
func (s *Store) UpsertUser(ctx context.Context, address, name string) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO users (address, name) VALUES (?, ?)
		ON CONFLICT(address) DO UPDATE SET name = ?
	`, address, name, name)
	return err
}

// UserByAddress fetches one user.
func (s *Store) UserByAddress(ctx context.Context, address string) (*User, error) {
	var u User
	err := s.QueryRowContext(ctx, `
		SELECT address, name, created_at FROM users WHERE address = ?
	`, address).Scan(&u.Address, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// PutLoginNonce stores the challenge nonce for an address, replacing any
// previous one.
func (s *Store) PutLoginNonce(ctx context.Context, address, nonce string, expires time.Time) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO login_nonces (address, nonce, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET nonce = ?, expires_at = ?
	`, address, nonce, expires.Unix(), nonce, expires.Unix())
	return err
}

// TakeLoginNonce consumes the challenge nonce for an address. A nonce can be
// taken once; a second take, or a take after expiry, returns ErrNotFound.
func (s *Store) TakeLoginNonce(ctx context.Context, address string, now time.Time) (string, error) {
	var (
		nonce   string
		expires int64
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"SELECT nonce, expires_at FROM login_nonces WHERE address = ?", address).
			Scan(&nonce, &expires)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM login_nonces WHERE address = ?", address)
		return err
	})
	if err != nil {
		return "", err
	}
	if now.Unix() >= expires {
		return "", ErrNotFound
	}
	return nonce, nil
}
