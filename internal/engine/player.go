package engine

// Player is a participant in a single hand. The room constructs one per
// seated player when the hand starts; the engine clones them on every
// transition so callers always hold an immutable snapshot.
type Player struct {
	ID        string
	Seat      int // seat index at the table, not the position in Hand.Players
	Name      string
	Chips     int64
	HoleCards []Card
	Bet       int64 // committed in the current betting round
	TotalBet  int64 // committed across the whole hand
	Folded    bool
	AllIn     bool
	Acted     bool // has acted at the current bet level this round
	Connected bool
}

// CanAct reports whether the player still makes decisions this hand.
func (p *Player) CanAct() bool {
	return !p.Folded && !p.AllIn
}

func (p *Player) clone() *Player {
	c := *p
	if p.HoleCards != nil {
		c.HoleCards = make([]Card, len(p.HoleCards))
		copy(c.HoleCards, p.HoleCards)
	}
	return &c
}
