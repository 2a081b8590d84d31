package engine

import (
	"errors"
	"fmt"
	"time"
)

// Config is the table configuration a hand is played under. The hand holds a
// copy so mid-hand config edits never affect a running hand.
type Config struct {
	SmallBlind  int64
	BigBlind    int64
	MinBuyIn    int64
	MaxBuyIn    int64
	MaxPlayers  int
	TurnTimeout time.Duration
	Token       string
	Premium     bool
}

// Validate rejects configurations the engine cannot play.
func (c Config) Validate() error {
	if c.SmallBlind <= 0 || c.BigBlind <= c.SmallBlind {
		return fmt.Errorf("invalid blinds %d/%d", c.SmallBlind, c.BigBlind)
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("invalid buy-in range %d..%d", c.MinBuyIn, c.MaxBuyIn)
	}
	if c.MaxPlayers < 2 || c.MaxPlayers > 9 {
		return fmt.Errorf("max players %d outside 2..9", c.MaxPlayers)
	}
	return nil
}

// Hand is the complete state of one dealt hand. Every transition
// (Apply, ForceFold, AdvanceStreet) clones the hand and returns the new
// value; a held *Hand is never mutated underneath the caller.
type Hand struct {
	ID         string
	Seed       string
	Phase      Phase
	Deck       *Deck
	Players    []*Player // ordered by seat; indices below refer to this slice
	Board      []Card
	Pot        int64 // always equals the sum of TotalBet over players
	SidePots   []Pot
	CurrentBet int64 // highest street commitment this round
	LastRaise  int64 // size of the last full raise, the min-raise basis
	Active     int   // index of the player to act, -1 when nobody can
	Button     int   // dealer index
	SBIndex    int
	BBIndex    int
	Config     Config
	Actions    []ActionRecord
	Seq        int64 // monotonic across betting-round resets
	Complete   bool
}

// HandOption configures hand creation.
type HandOption func(*handConfig)

type handConfig struct {
	deck *Deck
}

// WithDeck substitutes a prepared deck in place of the seeded shuffle.
// The seed is still recorded; tests use this for exact card control.
func WithDeck(d *Deck) HandOption {
	return func(c *handConfig) {
		c.deck = d
	}
}

// NewHand deals a fresh hand: blinds posted, hole cards out, first actor set.
// players must be in seat order with positive stacks; button indexes into it.
// Heads-up, the button posts the small blind and acts first preflop.
func NewHand(id, seed string, players []*Player, button int, cfg Config, opts ...HandOption) (*Hand, error) {
	if len(players) < 2 {
		return nil, errors.New("at least two players required")
	}
	if cfg.MaxPlayers > 0 && len(players) > cfg.MaxPlayers {
		return nil, fmt.Errorf("%d players exceeds table maximum %d", len(players), cfg.MaxPlayers)
	}
	if button < 0 || button >= len(players) {
		return nil, fmt.Errorf("button %d out of range", button)
	}
	for _, p := range players {
		if p.Chips <= 0 {
			return nil, fmt.Errorf("player %s has no chips", p.ID)
		}
	}

	hc := &handConfig{}
	for _, opt := range opts {
		opt(hc)
	}
	deck := hc.deck
	if deck == nil {
		deck = NewDeck(seed)
	}

	h := &Hand{
		ID:      id,
		Seed:    seed,
		Phase:   Preflop,
		Deck:    deck,
		Players: make([]*Player, len(players)),
		Button:  button,
		Config:  cfg,
	}
	for i, p := range players {
		c := p.clone()
		c.Bet = 0
		c.TotalBet = 0
		c.Folded = false
		c.AllIn = false
		c.Acted = false
		c.HoleCards = nil
		h.Players[i] = c
	}

	h.postBlinds()
	if err := h.dealHoleCards(); err != nil {
		return nil, err
	}

	// A blind post can leave its poster all-in, so the first actor search
	// skips anyone already committed for their whole stack. With every
	// player all-in from the blinds there is no first actor at all.
	if len(h.Players) == 2 {
		h.Active = h.nextToAct(h.Button)
	} else {
		h.Active = h.nextToAct(h.BBIndex + 1)
	}
	return h, nil
}

// postBlinds deducts the blinds and seeds the betting state. A blind is
// capped at the player's stack; the short poster is all-in but the table
// still owes the full big blind to call.
func (h *Hand) postBlinds() {
	n := len(h.Players)
	if n == 2 {
		h.SBIndex = h.Button
		h.BBIndex = (h.Button + 1) % n
	} else {
		h.SBIndex = (h.Button + 1) % n
		h.BBIndex = (h.Button + 2) % n
	}

	h.commit(h.Players[h.SBIndex], min64(h.Config.SmallBlind, h.Players[h.SBIndex].Chips))
	h.commit(h.Players[h.BBIndex], min64(h.Config.BigBlind, h.Players[h.BBIndex].Chips))

	h.CurrentBet = h.Config.BigBlind
	h.LastRaise = h.Config.BigBlind
	h.recomputeSidePots()
}

// commit moves chips from a player's stack into their round commitment.
func (h *Hand) commit(p *Player, amount int64) {
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	h.Pot += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
}

func (h *Hand) dealHoleCards() error {
	for _, p := range h.Players {
		cards, err := h.Deck.Deal(2)
		if err != nil {
			return err
		}
		p.HoleCards = cards
	}
	return nil
}

// nextToAct returns the first index at or after from (wrapping) that can
// still act, or -1 when none can.
func (h *Hand) nextToAct(from int) int {
	n := len(h.Players)
	for i := 0; i < n; i++ {
		idx := ((from + i) % n + n) % n
		if h.Players[idx].CanAct() {
			return idx
		}
	}
	return -1
}

// NonFolded counts players still in the hand.
func (h *Hand) NonFolded() int {
	n := 0
	for _, p := range h.Players {
		if !p.Folded {
			n++
		}
	}
	return n
}

// RoundComplete reports whether the current betting round is settled:
// either one player remains, or every player who can act has acted at the
// current bet level.
func (h *Hand) RoundComplete() bool {
	if h.NonFolded() <= 1 {
		return true
	}
	for _, p := range h.Players {
		if !p.CanAct() {
			continue
		}
		if !p.Acted || p.Bet != h.CurrentBet {
			return false
		}
	}
	return true
}

// MinRaiseTo returns the smallest legal total commitment for a full raise.
func (h *Hand) MinRaiseTo() int64 {
	return h.CurrentBet + h.LastRaise
}

// MaxRaiseTo returns the active player's largest possible total commitment.
// Zero when no player is active.
func (h *Hand) MaxRaiseTo() int64 {
	if h.Active < 0 || h.Active >= len(h.Players) {
		return 0
	}
	p := h.Players[h.Active]
	return p.Bet + p.Chips
}

// ActivePlayerID returns the id of the player to act, or "" when none.
func (h *Hand) ActivePlayerID() string {
	if h.Active < 0 || h.Active >= len(h.Players) {
		return ""
	}
	return h.Players[h.Active].ID
}

// IndexOf returns the position of a player id in the hand, or -1.
func (h *Hand) IndexOf(playerID string) int {
	for i, p := range h.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (h *Hand) clone() *Hand {
	c := *h
	c.Players = make([]*Player, len(h.Players))
	for i, p := range h.Players {
		c.Players[i] = p.clone()
	}
	c.Board = make([]Card, len(h.Board))
	copy(c.Board, h.Board)
	c.SidePots = clonePots(h.SidePots)
	c.Actions = make([]ActionRecord, len(h.Actions))
	copy(c.Actions, h.Actions)
	c.Deck = h.Deck.clone()
	return &c
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
