package engine

import (
	"errors"
	"sort"
)

// LastStandingLabel is the winner label when everyone else folded.
// Hole cards stay hidden in that case.
const LastStandingLabel = "Last Player Standing"

// Winner is one player's total award from a resolved hand.
type Winner struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Amount   int64  `json:"amount"`
	HandName string `json:"handName"`
}

// ShownHand is an evaluated player's revealed hand at showdown.
type ShownHand struct {
	PlayerID  string `json:"playerId"`
	Seat      int    `json:"seat"`
	HandName  string `json:"handName"`
	BestCards []Card `json:"bestCards"`
	HoleCards []Card `json:"holeCards"`
}

// Result is published when a hand completes. The revealed seed plus the
// algorithm identifier let anyone reproduce the deck permutation.
type Result struct {
	HandID       string         `json:"handId"`
	Seed         string         `json:"seed"`
	Algorithm    string         `json:"algorithm"`
	Board        []Card         `json:"board"`
	Pot          int64          `json:"pot"`
	Rake         int64          `json:"rake"`
	SidePots     []Pot          `json:"sidePots"`
	Winners      []Winner       `json:"winners"`
	Showdown     []ShownHand    `json:"showdown,omitempty"`
	LastStanding bool           `json:"lastStanding,omitempty"`
	Actions      []ActionRecord `json:"actions"`
}

// Resolve settles a complete hand: one pot to the last player standing, or
// each side pot to the best eligible five-card hand. Ties split evenly with
// any remainder going to the tied seat closest to the dealer's left.
// Winner amounts are gross; the room deducts rake afterwards.
func (h *Hand) Resolve() (*Result, error) {
	if !h.Complete {
		return nil, errors.New("hand not complete")
	}

	res := &Result{
		HandID:    h.ID,
		Seed:      h.Seed,
		Algorithm: ShuffleAlgorithm,
		Board:     append([]Card(nil), h.Board...),
		Pot:       h.Pot,
		SidePots:  clonePots(h.SidePots),
		Actions:   append([]ActionRecord(nil), h.Actions...),
	}

	if h.NonFolded() == 1 {
		for _, p := range h.Players {
			if p.Folded {
				continue
			}
			res.LastStanding = true
			res.Winners = []Winner{{
				PlayerID: p.ID,
				Seat:     p.Seat,
				Amount:   h.Pot,
				HandName: LastStandingLabel,
			}}
			return res, nil
		}
		return nil, errors.New("no live player in complete hand")
	}

	values := make(map[int]HandValue, len(h.Players))
	for i, p := range h.Players {
		if p.Folded {
			continue
		}
		cards := make([]Card, 0, 7)
		cards = append(cards, p.HoleCards...)
		cards = append(cards, h.Board...)
		v, err := Evaluate(cards)
		if err != nil {
			return nil, err
		}
		values[i] = v
		res.Showdown = append(res.Showdown, ShownHand{
			PlayerID:  p.ID,
			Seat:      p.Seat,
			HandName:  v.Name(),
			BestCards: v.Cards,
			HoleCards: append([]Card(nil), p.HoleCards...),
		})
	}

	won := make(map[int]int64)
	for _, pot := range h.SidePots {
		var tied []int
		for _, idx := range pot.Eligible {
			if h.Players[idx].Folded {
				continue
			}
			if len(tied) == 0 {
				tied = append(tied, idx)
				continue
			}
			switch Compare(values[idx], values[tied[0]]) {
			case 1:
				tied = []int{idx}
			case 0:
				tied = append(tied, idx)
			}
		}
		if len(tied) == 0 {
			continue
		}

		n := len(h.Players)
		sort.Slice(tied, func(a, b int) bool {
			return (tied[a]-h.Button-1+n)%n < (tied[b]-h.Button-1+n)%n
		})
		share := pot.Amount / int64(len(tied))
		remainder := pot.Amount % int64(len(tied))
		for j, idx := range tied {
			amount := share
			if j == 0 {
				amount += remainder
			}
			won[idx] += amount
		}
	}

	indices := make([]int, 0, len(won))
	for idx := range won {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		p := h.Players[idx]
		res.Winners = append(res.Winners, Winner{
			PlayerID: p.ID,
			Seat:     p.Seat,
			Amount:   won[idx],
			HandName: values[idx].Name(),
		})
	}
	return res, nil
}
