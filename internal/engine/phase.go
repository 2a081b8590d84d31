package engine

// Phase represents where a table is in its lifecycle. Waiting and Countdown
// mean no hand is in progress; the remaining phases belong to a live hand.
type Phase int

const (
	Waiting Phase = iota
	Countdown
	Preflop
	Flop
	Turn
	River
	Showdown
)

func (p Phase) String() string {
	return [...]string{"waiting", "countdown", "preflop", "flop", "turn", "river", "showdown"}[p]
}

// InHand reports whether a hand is in progress during this phase.
func (p Phase) InHand() bool {
	return p >= Preflop && p <= Showdown
}

// MarshalText serializes the phase by name for snapshots.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
