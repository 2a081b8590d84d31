package room

import (
	"sort"
	"time"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
)

// SeatState is one seat in a table snapshot. HoleCards are present only for
// the recipient's own seat, or for non-folded seats at showdown.
type SeatState struct {
	SeatIndex  int           `json:"seatIndex"`
	PlayerID   string        `json:"playerId"`
	Name       string        `json:"name"`
	AvatarSeed string        `json:"avatarSeed,omitempty"`
	Chips      int64         `json:"chips"`
	Dealer     bool          `json:"dealer"`
	SmallBlind bool          `json:"smallBlind"`
	BigBlind   bool          `json:"bigBlind"`
	Folded     bool          `json:"folded"`
	AllIn      bool          `json:"allIn"`
	Connected  bool          `json:"connected"`
	CurrentBet int64         `json:"currentBet"`
	HoleCards  []engine.Card `json:"holeCards,omitempty"`
}

// TableState is the whole-table snapshot sent on every change. Snapshots are
// complete rather than incremental so a client can always rebuild its view
// from the latest one.
type TableState struct {
	TableID          string        `json:"tableId"`
	Phase            engine.Phase  `json:"phase"`
	CountdownSeconds int           `json:"countdownSeconds,omitempty"`
	Seats            []*SeatState  `json:"seats"`
	CommunityCards   []*string     `json:"communityCards"`
	Pot              int64         `json:"pot"`
	SidePots         []engine.Pot  `json:"sidePots,omitempty"`
	CurrentBet       int64         `json:"currentBet"`
	ReservedSeats    []int         `json:"reservedSeats"`
	MinRaise         int64         `json:"minRaise"`
	MaxRaise         int64         `json:"maxRaise"`
	ActiveSeat       int           `json:"activePlayerSeatIndex"`
	DealerSeat       int           `json:"dealerSeatIndex"`
	SmallBlindSeat   int           `json:"smallBlindSeatIndex"`
	BigBlindSeat     int           `json:"bigBlindSeatIndex"`
	TurnTimeoutAt    *time.Time    `json:"turnTimeoutAt,omitempty"`
	MySeatIndex      int           `json:"mySeatIndex"`
	MyHand           []engine.Card `json:"myHand,omitempty"`
	IsMyTurn         bool          `json:"isMyTurn"`
	MyChips          int64         `json:"myChips"`
	SmallBlind       int64         `json:"smallBlind"`
	BigBlind         int64         `json:"bigBlind"`
	MinBuyIn         int64         `json:"minBuyIn"`
	MaxBuyIn         int64         `json:"maxBuyIn"`
}

// Snapshot builds the table state as seen by recipient. An empty recipient
// yields the public view watchers receive.
func (r *Room) Snapshot(recipient string) *TableState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotFor(recipient)
}

// broadcastState fans out one personalized snapshot per seated player plus
// the public view for watchers.
func (r *Room) broadcastState() {
	for _, p := range r.seats {
		r.notif.ToPlayer(p.ID, EventTableState, r.snapshotFor(p.ID))
	}
	r.notif.ToWatchers(r.id, EventTableState, r.snapshotFor(""))
}

func (r *Room) snapshotFor(recipient string) *TableState {
	s := &TableState{
		TableID:        r.id,
		Phase:          r.phase(),
		Seats:          make([]*SeatState, r.table.MaxPlayers),
		CommunityCards: make([]*string, 5),
		ReservedSeats:  make([]int, 0, len(r.reservations)),
		ActiveSeat:     -1,
		DealerSeat:     -1,
		SmallBlindSeat: -1,
		BigBlindSeat:   -1,
		MySeatIndex:    -1,
		SmallBlind:     r.table.SmallBlind,
		BigBlind:       r.table.BigBlind,
		MinBuyIn:       r.table.MinBuyIn,
		MaxBuyIn:       r.table.MaxBuyIn,
	}
	if r.countdown > 0 {
		s.CountdownSeconds = r.countdown
	}
	for seat := range r.reservations {
		s.ReservedSeats = append(s.ReservedSeats, seat)
	}
	sort.Ints(s.ReservedSeats)

	for idx, p := range r.seats {
		s.Seats[idx] = &SeatState{
			SeatIndex:  idx,
			PlayerID:   p.ID,
			Name:       p.Name,
			AvatarSeed: p.AvatarSeed,
			Chips:      p.Chips,
			Connected:  p.Connected,
		}
	}

	if h := r.hand; h != nil {
		s.Pot = h.Pot
		s.SidePots = h.SidePots
		s.CurrentBet = h.CurrentBet
		s.MinRaise = h.MinRaiseTo()
		s.MaxRaise = h.MaxRaiseTo()
		s.DealerSeat = h.Players[h.Button].Seat
		s.SmallBlindSeat = h.Players[h.SBIndex].Seat
		s.BigBlindSeat = h.Players[h.BBIndex].Seat
		if h.Active >= 0 {
			s.ActiveSeat = h.Players[h.Active].Seat
		}
		for i, card := range h.Board {
			if i >= len(s.CommunityCards) {
				break
			}
			str := card.String()
			s.CommunityCards[i] = &str
		}
		for _, ep := range h.Players {
			ss := s.Seats[ep.Seat]
			if ss == nil || ss.PlayerID != ep.ID {
				continue // seat vacated mid-hand
			}
			ss.Chips = ep.Chips
			ss.CurrentBet = ep.Bet
			ss.Folded = ep.Folded
			ss.AllIn = ep.AllIn
			ss.Dealer = ep.Seat == s.DealerSeat
			ss.SmallBlind = ep.Seat == s.SmallBlindSeat
			ss.BigBlind = ep.Seat == s.BigBlindSeat
			if ep.ID == recipient || (h.Phase == engine.Showdown && !ep.Folded) {
				ss.HoleCards = ep.HoleCards
			}
		}
	}

	if recipient != "" {
		if p := r.playerByID(recipient); p != nil {
			s.MySeatIndex = p.Seat
			if ss := s.Seats[p.Seat]; ss != nil {
				s.MyChips = ss.Chips
				s.MyHand = ss.HoleCards
			}
			if s.ActiveSeat == p.Seat {
				s.IsMyTurn = true
				if !r.turnDeadline.IsZero() {
					deadline := r.turnDeadline
					s.TurnTimeoutAt = &deadline
				}
			}
		}
	}
	return s
}
