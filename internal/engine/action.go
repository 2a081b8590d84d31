package engine

import (
	"errors"
	"fmt"
)

// Action represents a player decision.
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "raise", "allin"}[a]
}

// MarshalText serializes the action by name for the action log.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAction maps a wire action name to an Action. "bet" is accepted as a
// raise and "all-in"/"all_in" as an all-in.
func ParseAction(s string) (Action, error) {
	switch s {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "raise", "bet":
		return Raise, nil
	case "allin", "all-in", "all_in":
		return AllIn, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// ActionRecord is one entry in a hand's append-only action log.
type ActionRecord struct {
	Seq      int64  `json:"seq"`
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Action   Action `json:"action"`
	Amount   int64  `json:"amount"` // total street commitment after the action, 0 for fold/check
	Phase    Phase  `json:"phase"`
}

// ErrInvalidAction marks a rejected player action. The hand is unchanged and
// the room reports the reason to the acting connection only.
var ErrInvalidAction = errors.New("invalid action")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAction, fmt.Sprintf(format, args...))
}

// Apply processes one action by the active player and returns the resulting
// hand. The receiver is left untouched. Errors wrapping ErrInvalidAction are
// recoverable rejections; any other error is a fault.
func (h *Hand) Apply(action Action, amount int64) (*Hand, error) {
	if h.Complete {
		return nil, invalidf("hand is complete")
	}
	if h.Active < 0 || h.Active >= len(h.Players) {
		return nil, invalidf("no player to act")
	}

	n := h.clone()
	p := n.Players[n.Active]
	if p.Chips == 0 {
		return nil, invalidf("no chips remaining")
	}

	switch action {
	case Fold:
		p.Folded = true
		p.Acted = true
		n.appendAction(p, Fold, 0)

	case Check:
		if n.CurrentBet != p.Bet {
			return nil, invalidf("cannot check, %d to call", n.CurrentBet-p.Bet)
		}
		p.Acted = true
		n.appendAction(p, Check, 0)

	case Call:
		toCall := min64(n.CurrentBet-p.Bet, p.Chips)
		if toCall < 0 {
			return nil, invalidf("nothing to call")
		}
		n.commit(p, toCall)
		p.Acted = true
		n.appendAction(p, Call, p.Bet)

	case Raise:
		total := p.Bet + p.Chips
		if amount <= n.CurrentBet {
			return nil, invalidf("raise to %d does not exceed current bet %d", amount, n.CurrentBet)
		}
		if amount > total {
			return nil, invalidf("insufficient chips")
		}
		if amount < n.MinRaiseTo() && amount != total {
			return nil, invalidf("raise below minimum %d", n.MinRaiseTo())
		}
		n.applyRaise(p, amount)
		n.appendAction(p, Raise, p.Bet)

	case AllIn:
		total := p.Bet + p.Chips
		if total > n.CurrentBet {
			n.applyRaise(p, total)
		} else {
			n.commit(p, p.Chips)
			p.Acted = true
		}
		n.appendAction(p, AllIn, p.Bet)

	default:
		return nil, invalidf("unknown action")
	}

	n.recomputeSidePots()
	n.advanceTurn(n.Active)
	return n, nil
}

// applyRaise commits a player up to a total street bet of amount. A raise of
// at least the minimum reopens the round: everyone else who can act owes a
// fresh decision. A short all-in below the minimum moves the current bet
// without reopening, and leaves the min-raise basis where it was.
func (n *Hand) applyRaise(p *Player, amount int64) {
	reopen := amount >= n.CurrentBet+n.LastRaise
	n.commit(p, amount-p.Bet)
	if reopen {
		n.LastRaise = amount - n.CurrentBet
		for _, q := range n.Players {
			if q != p && q.CanAct() {
				q.Acted = false
			}
		}
	}
	n.CurrentBet = amount
	p.Acted = true
}

// ForceFold folds the given player regardless of turn order. Used when a
// seated player leaves or a turn deadline expires for a non-active fault.
// Folding a player not in the hand is a no-op.
func (h *Hand) ForceFold(idx int) *Hand {
	if h.Complete || idx < 0 || idx >= len(h.Players) || h.Players[idx].Folded {
		return h
	}

	n := h.clone()
	p := n.Players[idx]
	p.Folded = true
	p.Acted = true
	n.appendAction(p, Fold, 0)
	n.recomputeSidePots()

	if n.NonFolded() <= 1 {
		n.Complete = true
		n.Active = -1
		return n
	}
	if idx == n.Active {
		n.Active = n.nextToAct(idx + 1)
	}
	if n.RoundComplete() {
		n.Active = -1
	}
	return n
}

// AdvanceStreet collects the round and deals the next street. The caller
// must only invoke it when RoundComplete reports true. After the river the
// phase becomes Showdown and the hand is complete.
func (h *Hand) AdvanceStreet() (*Hand, error) {
	if h.Complete {
		return nil, errors.New("hand is complete")
	}
	if !h.RoundComplete() {
		return nil, errors.New("betting round still open")
	}

	n := h.clone()
	for _, p := range n.Players {
		p.Bet = 0
		p.Acted = false
	}
	n.CurrentBet = 0
	n.LastRaise = n.Config.BigBlind

	switch n.Phase {
	case Preflop:
		if err := n.Deck.Burn(); err != nil {
			return nil, err
		}
		cards, err := n.Deck.Deal(3)
		if err != nil {
			return nil, err
		}
		n.Board = append(n.Board, cards...)
		n.Phase = Flop
	case Flop, Turn:
		if err := n.Deck.Burn(); err != nil {
			return nil, err
		}
		card, err := n.Deck.Draw()
		if err != nil {
			return nil, err
		}
		n.Board = append(n.Board, card)
		if n.Phase == Flop {
			n.Phase = Turn
		} else {
			n.Phase = River
		}
	case River:
		n.Phase = Showdown
		n.Complete = true
		n.Active = -1
		return n, nil
	default:
		return nil, fmt.Errorf("cannot advance from %s", n.Phase)
	}

	n.Active = n.nextToAct(n.Button + 1)
	return n, nil
}

// advanceTurn moves the action on from the given index, ending the hand when
// at most one player remains and parking the action when the round settles.
func (h *Hand) advanceTurn(from int) {
	if h.NonFolded() <= 1 {
		h.Complete = true
		h.Active = -1
		return
	}
	if h.RoundComplete() {
		h.Active = -1
		return
	}
	h.Active = h.nextToAct(from + 1)
}

func (h *Hand) appendAction(p *Player, action Action, amount int64) {
	h.Seq++
	h.Actions = append(h.Actions, ActionRecord{
		Seq:      h.Seq,
		PlayerID: p.ID,
		Seat:     p.Seat,
		Action:   action,
		Amount:   amount,
		Phase:    h.Phase,
	})
}
