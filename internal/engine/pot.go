package engine

import "sort"

// Pot is the main pot or a side pot. Eligible holds indices into
// Hand.Players; Cap is the per-player contribution ceiling for an all-in
// layer, 0 for the residual pot.
type Pot struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
	Cap      int64 `json:"cap,omitempty"`
}

func clonePots(pots []Pot) []Pot {
	out := make([]Pot, len(pots))
	for i, p := range pots {
		out[i] = p
		out[i].Eligible = make([]int, len(p.Eligible))
		copy(out[i].Eligible, p.Eligible)
	}
	return out
}

// recomputeSidePots rebuilds the pot partition from total contributions.
// Each distinct all-in contribution level forms a layer capped at that
// level; whatever sits above the last cap is the residual pot. The layers
// always sum to Hand.Pot exactly.
func (h *Hand) recomputeSidePots() {
	var caps []int64
	seen := make(map[int64]bool)
	for _, p := range h.Players {
		if p.AllIn && p.TotalBet > 0 && !seen[p.TotalBet] {
			seen[p.TotalBet] = true
			caps = append(caps, p.TotalBet)
		}
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })

	var pots []Pot
	prev := int64(0)
	for _, level := range caps {
		pot := Pot{Cap: level}
		for i, p := range h.Players {
			if contrib := min64(p.TotalBet, level) - prev; contrib > 0 {
				pot.Amount += contrib
			}
			if !p.Folded && p.TotalBet >= level {
				pot.Eligible = append(pot.Eligible, i)
			}
		}
		if pot.Amount > 0 && len(pot.Eligible) > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}

	residual := Pot{}
	for i, p := range h.Players {
		if p.TotalBet > prev {
			residual.Amount += p.TotalBet - prev
		}
		if !p.Folded && (len(caps) == 0 || p.TotalBet > prev) {
			residual.Eligible = append(residual.Eligible, i)
		}
	}
	if residual.Amount > 0 {
		if len(residual.Eligible) > 0 {
			pots = append(pots, residual)
		} else if len(pots) > 0 {
			// dead money above the last cap folds into the top layer so the
			// partition still sums to the pot
			pots[len(pots)-1].Amount += residual.Amount
		}
	}

	h.SidePots = pots
}

// PotTotal sums the pot partition. Always equal to Hand.Pot.
func (h *Hand) PotTotal() int64 {
	var total int64
	for _, p := range h.SidePots {
		total += p.Amount
	}
	return total
}
