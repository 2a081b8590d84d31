package room

import (
	"time"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
)

// Event names broadcast by the room runtime. The transport layer wraps each
// in its envelope and fans it out to subscribers.
const (
	EventTablesList      = "tables_list"
	EventTableState      = "table_state"
	EventReconnectState  = "reconnect_state"
	EventSeatReserved    = "seat_reserved"
	EventSeatReleased    = "seat_released"
	EventPlayerJoined    = "player_joined"
	EventPlayerLeft      = "player_left"
	EventGameStarted     = "game_started"
	EventTurnStart       = "turn_start"
	EventActionAck       = "action_ack"
	EventHandResult      = "hand_result"
	EventPlayerKicked    = "player_kicked"
	EventCashOutComplete = "cash_out_complete"
	EventError           = "error"
)

// Notifier delivers room events to connected clients. Every method is called
// with the room's lock held, so implementations must only enqueue and never
// block or call back into the room.
type Notifier interface {
	// ToPlayer delivers an event to one player's connection, if attached.
	ToPlayer(playerID, event string, data any)
	// ToRoom delivers an event to every subscriber of the room.
	ToRoom(roomID, event string, data any)
	// ToWatchers delivers an event to subscribers without a seat.
	ToWatchers(roomID, event string, data any)
	// LobbyChanged signals that the room's lobby listing is stale.
	LobbyChanged(roomID string)
}

// HandRecorder archives completed hands. RecordHand is called with the
// room's lock held once per resolved hand, after rake, so implementations
// must only enqueue and never block on IO.
type HandRecorder interface {
	RecordHand(h *engine.Hand, res *engine.Result)
}

type nopNotifier struct{}

func (nopNotifier) ToPlayer(string, string, any)   {}
func (nopNotifier) ToRoom(string, string, any)     {}
func (nopNotifier) ToWatchers(string, string, any) {}
func (nopNotifier) LobbyChanged(string)            {}

// SeatReservedEvent announces a short-lived seat hold.
type SeatReservedEvent struct {
	TableID   string    `json:"tableId"`
	Seat      int       `json:"seat"`
	PlayerID  string    `json:"playerId"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SeatReleasedEvent announces that a reservation ended, by timeout, explicit
// release, or a completed sit.
type SeatReleasedEvent struct {
	TableID string `json:"tableId"`
	Seat    int    `json:"seat"`
}

// PlayerJoinedEvent announces a newly occupied seat.
type PlayerJoinedEvent struct {
	TableID  string `json:"tableId"`
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Chips    int64  `json:"chips"`
}

// PlayerLeftEvent announces a vacated seat.
type PlayerLeftEvent struct {
	TableID  string `json:"tableId"`
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PlayerKickedEvent announces a seat removed by the server, typically a
// busted stack.
type PlayerKickedEvent struct {
	TableID  string `json:"tableId"`
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
}

// GameStartedEvent announces a freshly dealt hand.
type GameStartedEvent struct {
	TableID    string `json:"tableId"`
	HandID     string `json:"handId"`
	DealerSeat int    `json:"dealerSeat"`
	Players    int    `json:"players"`
}

// TurnStartEvent is sent to the acting player only; everyone else learns the
// active seat from the table snapshot.
type TurnStartEvent struct {
	TableID   string    `json:"tableId"`
	HandID    string    `json:"handId"`
	Seat      int       `json:"seat"`
	TimeoutAt time.Time `json:"turnTimeoutAt"`
}

// ActionAckEvent confirms an accepted action to the player who submitted it.
type ActionAckEvent struct {
	TableID string `json:"tableId"`
	HandID  string `json:"handId"`
	Seq     int64  `json:"seq"`
	Seat    int    `json:"seat"`
	Action  string `json:"action"`
	Amount  int64  `json:"amount"`
}

// HandResultEvent wraps the engine's settlement for broadcast. Winner
// amounts are net of rake; PlayerNames maps player ids to display names for
// clients that render the result without a seat map.
type HandResultEvent struct {
	TableID string `json:"tableId"`
	*engine.Result
	PlayerNames map[string]string `json:"playerNames,omitempty"`
}

// CashOutEvent reports the outcome of a leave settlement. An empty TxID with
// status FAILED means the payout needs operator attention.
type CashOutEvent struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
	Amount   int64  `json:"amount"`
	TxID     string `json:"txId,omitempty"`
	Status   string `json:"status"`
}

// ErrorEvent carries a recoverable failure to a single connection.
type ErrorEvent struct {
	TableID string `json:"tableId,omitempty"`
	Message string `json:"message"`
}
