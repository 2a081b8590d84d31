package sdk

import (
	"encoding/json"
	"fmt"
	"time"
)

// Commands a client may send. Replies echo the command type and requestId
// except where noted on the Client helpers.
const (
	CmdGetTables    = "get_tables"
	CmdCreateTable  = "create_table"
	CmdReserveSeat  = "reserve_seat"
	CmdReleaseSeat  = "release_seat"
	CmdSitAtSeat    = "sit_at_seat"
	CmdJoinTable    = "join_table"
	CmdLeaveTable   = "leave_table"
	CmdWatchTable   = "watch_table"
	CmdPlayerAction = "player_action"
	CmdPing         = "ping"
)

// Events the server pushes. table_state and tables_list also arrive as
// replies to watch_table and get_tables.
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
	EventPong            = "pong"
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

// ActionRequest submits a betting decision. Action is one of fold, check,
// call, raise, allin; amount is the total street commitment for raises.
type ActionRequest struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int64  `json:"amount,omitempty"`
}

// ErrorReply is the payload of a rejected command, sent under the command's
// own type.
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

// PongReply answers a ping.
type PongReply struct {
	Time time.Time `json:"time"`
}

// Table summarizes one room in the lobby listing.
type Table struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CreatorID     string `json:"creatorId,omitempty"`
	SmallBlind    int64  `json:"smallBlind"`
	BigBlind      int64  `json:"bigBlind"`
	MinBuyIn      int64  `json:"minBuyIn"`
	MaxBuyIn      int64  `json:"maxBuyIn"`
	MaxPlayers    int    `json:"maxPlayers"`
	Seated        int    `json:"seated"`
	Phase         string `json:"phase"`
	OccupiedSeats []int  `json:"occupiedSeats"`
	ReservedSeats []int  `json:"reservedSeats"`
	Token         string `json:"token,omitempty"`
	Premium       bool   `json:"premium,omitempty"`
	Vault         bool   `json:"vault"`
	Persistent    bool   `json:"persistent"`
}

// TablesList is the lobby listing, pushed on connect and on any change.
type TablesList struct {
	Tables []Table `json:"tables"`
}

// Seat is one seat in a table snapshot. HoleCards are present only for the
// recipient's own seat, or for non-folded seats at showdown.
type Seat struct {
	SeatIndex  int      `json:"seatIndex"`
	PlayerID   string   `json:"playerId"`
	Name       string   `json:"name"`
	AvatarSeed string   `json:"avatarSeed,omitempty"`
	Chips      int64    `json:"chips"`
	Dealer     bool     `json:"dealer"`
	SmallBlind bool     `json:"smallBlind"`
	BigBlind   bool     `json:"bigBlind"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"allIn"`
	Connected  bool     `json:"connected"`
	CurrentBet int64    `json:"currentBet"`
	HoleCards  []string `json:"holeCards,omitempty"`
}

// TableState is the whole-table snapshot sent on every change. Snapshots
// are complete rather than incremental, so the latest one is always the
// full view. Nil entries in CommunityCards are undealt streets.
type TableState struct {
	TableID          string     `json:"tableId"`
	Phase            string     `json:"phase"`
	CountdownSeconds int        `json:"countdownSeconds,omitempty"`
	Seats            []*Seat    `json:"seats"`
	CommunityCards   []*string  `json:"communityCards"`
	Pot              int64      `json:"pot"`
	SidePots         []SidePot  `json:"sidePots,omitempty"`
	CurrentBet       int64      `json:"currentBet"`
	ReservedSeats    []int      `json:"reservedSeats"`
	MinRaise         int64      `json:"minRaise"`
	MaxRaise         int64      `json:"maxRaise"`
	ActiveSeat       int        `json:"activePlayerSeatIndex"`
	DealerSeat       int        `json:"dealerSeatIndex"`
	SmallBlindSeat   int        `json:"smallBlindSeatIndex"`
	BigBlindSeat     int        `json:"bigBlindSeatIndex"`
	TurnTimeoutAt    *time.Time `json:"turnTimeoutAt,omitempty"`
	MySeatIndex      int        `json:"mySeatIndex"`
	MyHand           []string   `json:"myHand,omitempty"`
	IsMyTurn         bool       `json:"isMyTurn"`
	MyChips          int64      `json:"myChips"`
	SmallBlind       int64      `json:"smallBlind"`
	BigBlind         int64      `json:"bigBlind"`
	MinBuyIn         int64      `json:"minBuyIn"`
	MaxBuyIn         int64      `json:"maxBuyIn"`
}

// Board returns the dealt community cards.
func (t *TableState) Board() []string {
	var cards []string
	for _, c := range t.CommunityCards {
		if c != nil {
			cards = append(cards, *c)
		}
	}
	return cards
}

// SidePot is a capped pot and the seats eligible to win it.
type SidePot struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
	Cap      int64 `json:"cap,omitempty"`
}

// SeatReserved announces a short-lived seat hold.
type SeatReserved struct {
	TableID   string    `json:"tableId"`
	Seat      int       `json:"seat"`
	PlayerID  string    `json:"playerId"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SeatReleased announces that a reservation ended.
type SeatReleased struct {
	TableID string `json:"tableId"`
	Seat    int    `json:"seat"`
}

// PlayerJoined announces a newly occupied seat.
type PlayerJoined struct {
	TableID  string `json:"tableId"`
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Chips    int64  `json:"chips"`
}

// PlayerLeft announces a vacated seat.
type PlayerLeft struct {
	TableID  string `json:"tableId"`
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PlayerKicked announces a seat removed by the server.
type PlayerKicked struct {
	TableID  string `json:"tableId"`
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
}

// GameStarted announces a freshly dealt hand.
type GameStarted struct {
	TableID    string `json:"tableId"`
	HandID     string `json:"handId"`
	DealerSeat int    `json:"dealerSeat"`
	Players    int    `json:"players"`
}

// TurnStart tells the acting player their clock is running.
type TurnStart struct {
	TableID   string    `json:"tableId"`
	HandID    string    `json:"handId"`
	Seat      int       `json:"seat"`
	TimeoutAt time.Time `json:"turnTimeoutAt"`
}

// ActionAck confirms an accepted action to the player who submitted it.
type ActionAck struct {
	TableID string `json:"tableId"`
	HandID  string `json:"handId"`
	Seq     int64  `json:"seq"`
	Seat    int    `json:"seat"`
	Action  string `json:"action"`
	Amount  int64  `json:"amount"`
}

// Winner is one pot share in a hand result, net of rake.
type Winner struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Amount   int64  `json:"amount"`
	HandName string `json:"handName"`
}

// ShownHand is an evaluated player's revealed hand at showdown.
type ShownHand struct {
	PlayerID  string   `json:"playerId"`
	Seat      int      `json:"seat"`
	HandName  string   `json:"handName"`
	BestCards []string `json:"bestCards"`
	HoleCards []string `json:"holeCards"`
}

// ActionRecord is one entry in a hand's action log. Amount is the total
// street commitment after the action, 0 for fold and check.
type ActionRecord struct {
	Seq      int64  `json:"seq"`
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Action   string `json:"action"`
	Amount   int64  `json:"amount"`
	Phase    string `json:"phase"`
}

// HandResult is the settlement broadcast when a hand completes. The seed
// and algorithm let anyone reproduce the deck permutation.
type HandResult struct {
	TableID      string            `json:"tableId"`
	HandID       string            `json:"handId"`
	Seed         string            `json:"seed"`
	Algorithm    string            `json:"algorithm"`
	Board        []string          `json:"board"`
	Pot          int64             `json:"pot"`
	Rake         int64             `json:"rake"`
	SidePots     []SidePot         `json:"sidePots"`
	Winners      []Winner          `json:"winners"`
	Showdown     []ShownHand       `json:"showdown,omitempty"`
	LastStanding bool              `json:"lastStanding,omitempty"`
	Actions      []ActionRecord    `json:"actions"`
	PlayerNames  map[string]string `json:"playerNames,omitempty"`
}

// CashOut reports the outcome of a leave settlement. An empty TxID with
// status FAILED means the payout needs operator attention.
type CashOut struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
	Amount   int64  `json:"amount"`
	TxID     string `json:"txId,omitempty"`
	Status   string `json:"status"`
}

// ErrorEvent carries a recoverable failure outside any request, such as a
// rejected action or a missed turn.
type ErrorEvent struct {
	TableID string `json:"tableId,omitempty"`
	Message string `json:"message"`
}

// DecodeEvent unmarshals a pushed message into its typed payload. Unknown
// types return an error so callers notice protocol drift.
func DecodeEvent(msg *Message) (any, error) {
	var v any
	switch msg.Type {
	case EventTablesList:
		v = &TablesList{}
	case EventTableState, EventReconnectState:
		v = &TableState{}
	case EventSeatReserved:
		v = &SeatReserved{}
	case EventSeatReleased:
		v = &SeatReleased{}
	case EventPlayerJoined:
		v = &PlayerJoined{}
	case EventPlayerLeft:
		v = &PlayerLeft{}
	case EventPlayerKicked:
		v = &PlayerKicked{}
	case EventGameStarted:
		v = &GameStarted{}
	case EventTurnStart:
		v = &TurnStart{}
	case EventActionAck:
		v = &ActionAck{}
	case EventHandResult:
		v = &HandResult{}
	case EventCashOutComplete:
		v = &CashOut{}
	case EventError:
		v = &ErrorEvent{}
	case EventPong:
		v = &PongReply{}
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return v, nil
}
