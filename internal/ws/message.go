package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client commands. Replies echo the command type and requestId; table events
// arrive under the room event names (table_state, player_joined, ...).
const (
	CmdGetTables     = "get_tables"
	CmdRequestTables = "request_tables"
	CmdCreateTable   = "create_table"
	CmdReserveSeat   = "reserve_seat"
	CmdReleaseSeat   = "release_seat"
	CmdSitAtSeat     = "sit_at_seat"
	CmdJoinTable     = "join_table"
	CmdLeaveTable    = "leave_table"
	CmdWatchTable    = "watch_table"
	CmdPlayerAction  = "player_action"
	CmdPing          = "ping"

	TypePong = "pong"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage wraps data in an envelope stamped with the current time.
func NewMessage(msgType string, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s data: %w", msgType, err)
		}
		raw = b
	}
	return &Message{Type: msgType, Data: raw, Timestamp: time.Now()}, nil
}

// CreateTableRequest opens a new ephemeral table.
type CreateTableRequest struct {
	Name       string `json:"name"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
	MaxBuyIn   int64  `json:"maxBuyIn"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

// SeatRequest names a seat for reserve_seat and release_seat.
type SeatRequest struct {
	TableID string `json:"tableId"`
	Seat    int    `json:"seat"`
}

// Profile is the display identity supplied when sitting down.
type Profile struct {
	Name       string `json:"name"`
	AvatarSeed string `json:"avatarSeed,omitempty"`
}

// SitRequest takes a seat. Seat nil picks the lowest free seat. TxID and
// WalletAddress are required on vault tables and ignored elsewhere.
type SitRequest struct {
	TableID       string  `json:"tableId"`
	BuyIn         int64   `json:"buyIn"`
	Seat          *int    `json:"seat,omitempty"`
	Profile       Profile `json:"profile"`
	TxID          string  `json:"txId,omitempty"`
	WalletAddress string  `json:"walletAddress,omitempty"`
}

// JoinTableRequest is the quick-seat command for off-chain tables.
type JoinTableRequest struct {
	TableID    string `json:"tableId"`
	BuyIn      int64  `json:"buyIn"`
	PlayerName string `json:"playerName"`
}

// TableRequest names a table for leave_table, watch_table and the like.
type TableRequest struct {
	TableID string `json:"tableId"`
}

// ActionRequest submits a betting decision.
type ActionRequest struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int64  `json:"amount,omitempty"`
}

// OKReply acknowledges a command with no other payload.
type OKReply struct {
	OK bool `json:"ok"`
}

// ErrorReply reports a failed command under the command's own type.
type ErrorReply struct {
	Error string `json:"error"`
}

// CreateTableReply returns the new table's id.
type CreateTableReply struct {
	TableID string `json:"tableId"`
}

// SitReply returns the seat actually taken.
type SitReply struct {
	SeatIndex int `json:"seatIndex"`
}

// PongReply answers a ping; clients measure latency off the echo.
type PongReply struct {
	Time time.Time `json:"time"`
}
