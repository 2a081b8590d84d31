package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
)

// SeatStatus is the persisted state of a player's claim on a seat.
type SeatStatus string

const (
	SeatReserved SeatStatus = "RESERVED"
	SeatOccupied SeatStatus = "OCCUPIED"
)

// Seat is one player's position in a room, persisted so a restart can
// restore stacks and reservations.
type Seat struct {
	RoomID    string
	Address   string
	Name      string
	Seat      int
	Chips     int64
	Status    SeatStatus
	UpdatedAt time.Time
}

// SaveSeat upserts the player's seat record.
func (s *Store) SaveSeat(ctx context.Context, seat *Seat) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO room_seats (room_id, address, name, seat, chips, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id, address) DO UPDATE
		SET name = ?, seat = ?, chips = ?, status = ?, updated_at = CURRENT_TIMESTAMP
	`, seat.RoomID, seat.Address, seat.Name, seat.Seat, seat.Chips, seat.Status,
		seat.Name, seat.Seat, seat.Chips, seat.Status)
	return err
}

// DeleteSeat removes the player's seat record once settled.
func (s *Store) DeleteSeat(ctx context.Context, roomID, address string) error {
	_, err := s.ExecContext(ctx, "DELETE FROM room_seats WHERE room_id = ? AND address = ?", roomID, address)
	return err
}

// RoomSeats lists the persisted seats of a room ordered by seat number.
func (s *Store) RoomSeats(ctx context.Context, roomID string) ([]*Seat, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT room_id, address, name, seat, chips, status, updated_at
		FROM room_seats WHERE room_id = ? ORDER BY seat
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Seat
	for rows.Next() {
		var seat Seat
		if err := rows.Scan(&seat.RoomID, &seat.Address, &seat.Name, &seat.Seat, &seat.Chips,
			&seat.Status, &seat.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &seat)
	}
	return out, rows.Err()
}

// HandResult is a finished hand's audit record. Winners holds the settled
// winner list as JSON.
type HandResult struct {
	HandID      string
	RoomID      string
	Seed        string
	Board       string
	Pot         int64
	Rake        int64
	Winners     []engine.Winner
	CompletedAt time.Time
}

// SaveHandResult archives a resolved hand for the audit trail.
func (s *Store) SaveHandResult(ctx context.Context, roomID string, res *engine.Result) error {
	winners, err := json.Marshal(res.Winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}
	board := make([]string, len(res.Board))
	for i, c := range res.Board {
		board[i] = c.String()
	}
	_, err = s.ExecContext(ctx, `
		INSERT INTO hand_results (hand_id, room_id, seed, board, pot, rake, winners)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, res.HandID, roomID, res.Seed, strings.Join(board, " "), res.Pot, res.Rake, string(winners))
	if isConstraint(err) {
		return fmt.Errorf("hand %s already archived: %w", res.HandID, ErrDuplicateTx)
	}
	return err
}

// HandResultByID fetches one archived hand.
func (s *Store) HandResultByID(ctx context.Context, handID string) (*HandResult, error) {
	var (
		hr      HandResult
		winners string
	)
	err := s.QueryRowContext(ctx, `
		SELECT hand_id, room_id, seed, board, pot, rake, winners, completed_at
		FROM hand_results WHERE hand_id = ?
	`, handID).Scan(&hr.HandID, &hr.RoomID, &hr.Seed, &hr.Board, &hr.Pot, &hr.Rake, &winners, &hr.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(winners), &hr.Winners); err != nil {
		return nil, fmt.Errorf("unmarshal winners: %w", err)
	}
	return &hr, nil
}
