package phh

import (
	"fmt"
	"strings"
	"time"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
)

// Build flattens a resolved hand into its PHH form. The hand must be
// complete and the result already raked, so finishing stacks match what
// the table pays out. Player indices (p1..pn) follow the hand's seating
// order, with actual seat numbers carried in the seats field.
func Build(h *engine.Hand, res *engine.Result, at time.Time) *HandHistory {
	n := len(h.Players)

	hh := &HandHistory{
		Variant:           "NT",
		SeatCount:         h.Config.MaxPlayers,
		Seats:             make([]int, n),
		Antes:             make([]int64, n),
		BlindsOrStraddles: make([]int64, n),
		MinBet:            h.Config.BigBlind,
		StartingStacks:    make([]int64, n),
		FinishingStacks:   make([]int64, n),
		Winnings:          make([]int64, n),
		Players:           make([]string, n),
		HandID:            res.HandID,
		Seed:              res.Seed,
		Algorithm:         res.Algorithm,
	}

	year, month, day := at.Date()
	hh.Year, hh.Month, hh.Day = year, int(month), day
	hh.Time = at.Format("15:04:05")
	hh.TimeZone = at.Location().String()

	won := make(map[string]int64, len(res.Winners))
	for _, w := range res.Winners {
		won[w.PlayerID] += w.Amount
	}

	idxBySeat := make(map[int]int, n)
	for i, p := range h.Players {
		idxBySeat[p.Seat] = i
		hh.Seats[i] = p.Seat
		hh.Players[i] = p.Name
		hh.StartingStacks[i] = p.Chips + p.TotalBet
		hh.FinishingStacks[i] = p.Chips + won[p.ID]
		hh.Winnings[i] = won[p.ID]
	}
	hh.BlindsOrStraddles[h.SBIndex] = h.Config.SmallBlind
	hh.BlindsOrStraddles[h.BBIndex] = h.Config.BigBlind

	hh.Actions = buildActions(h, res, idxBySeat)
	return hh
}

func buildActions(h *engine.Hand, res *engine.Result, idxBySeat map[int]int) []string {
	actions := make([]string, 0, len(h.Players)+len(res.Actions)+3)

	for i, p := range h.Players {
		actions = append(actions, fmt.Sprintf("d dh p%d %s", i+1, joinCards(p.HoleCards)))
	}

	dealt := 0
	dealTo := func(target int) {
		if target > len(res.Board) {
			target = len(res.Board)
		}
		if target > dealt {
			actions = append(actions, "d db "+joinCards(res.Board[dealt:target]))
			dealt = target
		}
	}

	// streetBet tracks the standing bet while scanning, so a shove that
	// only calls can be told apart from one that raises.
	prev := engine.Preflop
	streetBet := h.Config.BigBlind
	for _, a := range res.Actions {
		if a.Phase != prev {
			dealTo(boardCount(a.Phase))
			prev = a.Phase
			streetBet = 0
		}
		if line, ok := formatAction(idxBySeat[a.Seat], a.Action, a.Amount, streetBet); ok {
			actions = append(actions, line)
		}
		if a.Amount > streetBet {
			streetBet = a.Amount
		}
	}

	// Streets dealt after betting ended, street by street.
	dealTo(3)
	dealTo(4)
	dealTo(5)
	return actions
}

// formatAction maps the betting vocabulary onto PHH codes: f for folds,
// cc for checks and calls, cbr with the total street commitment for bets
// and raises. An all-in only counts as cbr when it beats the standing
// bet; a short shove is a call. Blind posts never reach the action log;
// the blinds_or_straddles field covers them.
func formatAction(idx int, action engine.Action, amount, streetBet int64) (string, bool) {
	player := fmt.Sprintf("p%d", idx+1)
	switch action {
	case engine.Fold:
		return player + " f", true
	case engine.Check, engine.Call:
		return player + " cc", true
	case engine.Raise:
		if amount <= 0 {
			return "", false
		}
		return fmt.Sprintf("%s cbr %d", player, amount), true
	case engine.AllIn:
		if amount > streetBet {
			return fmt.Sprintf("%s cbr %d", player, amount), true
		}
		return player + " cc", true
	default:
		return "", false
	}
}

func boardCount(p engine.Phase) int {
	switch p {
	case engine.Flop:
		return 3
	case engine.Turn:
		return 4
	case engine.River:
		return 5
	default:
		return 0
	}
}

func joinCards(cards []engine.Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}
