package engine

import (
	"fmt"
	"math/rand"
	"testing"
)

// randomAction picks a legal move for the active player. The weights skew
// toward calls and checks so most hands reach showdown with several players.
func randomAction(t *testing.T, rng *rand.Rand, h *Hand) *Hand {
	t.Helper()
	p := h.Players[h.Active]
	toCall := h.CurrentBet - p.Bet

	var next *Hand
	var err error
	if toCall <= 0 {
		if rng.Intn(3) == 0 && p.Chips > 0 {
			next, err = h.Apply(Raise, raiseTo(rng, h))
		} else {
			next, err = h.Apply(Check, 0)
		}
	} else {
		switch rng.Intn(5) {
		case 0:
			next, err = h.Apply(Fold, 0)
		case 1:
			next, err = h.Apply(AllIn, 0)
		case 2:
			if h.MaxRaiseTo() > h.CurrentBet {
				next, err = h.Apply(Raise, raiseTo(rng, h))
			} else {
				next, err = h.Apply(Call, 0)
			}
		default:
			next, err = h.Apply(Call, 0)
		}
	}
	if err != nil {
		t.Fatalf("legal action rejected: %v", err)
	}
	return next
}

func raiseTo(rng *rand.Rand, h *Hand) int64 {
	lo, hi := h.MinRaiseTo(), h.MaxRaiseTo()
	if hi <= lo {
		return hi
	}
	if rng.Intn(2) == 0 {
		return lo
	}
	return lo + rng.Int63n(hi-lo+1)
}

func checkStep(t *testing.T, prev, next *Hand, bankroll int64) {
	t.Helper()

	var committed, stacks int64
	for i, p := range next.Players {
		if p.Chips < 0 || p.Bet < 0 || p.TotalBet < 0 {
			t.Fatalf("player %d went negative: chips=%d bet=%d total=%d", i, p.Chips, p.Bet, p.TotalBet)
		}
		if p.Bet > next.CurrentBet {
			t.Fatalf("player %d bet %d exceeds current bet %d", i, p.Bet, next.CurrentBet)
		}
		committed += p.TotalBet
		stacks += p.Chips
	}
	if next.Pot != committed {
		t.Fatalf("pot %d != committed chips %d", next.Pot, committed)
	}
	if got := next.PotTotal(); got != next.Pot {
		t.Fatalf("side pots sum to %d, pot is %d", got, next.Pot)
	}
	if stacks+next.Pot != bankroll {
		t.Fatalf("chips leaked: stacks %d + pot %d != %d", stacks, next.Pot, bankroll)
	}
	if next.Seq != prev.Seq+1 {
		t.Fatalf("seq %d after %d", next.Seq, prev.Seq)
	}

	// An acted flag may only clear when another player completes a full raise.
	for i := range next.Players {
		if i == prev.Active {
			continue
		}
		if prev.Players[i].Acted && !next.Players[i].Acted {
			if next.CurrentBet < prev.CurrentBet+prev.LastRaise {
				t.Fatalf("player %d reopened by short raise to %d (needed %d)",
					i, next.CurrentBet, prev.CurrentBet+prev.LastRaise)
			}
		}
	}
}

func TestRandomGamesConserveChips(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(0x60fd))
	for game := 0; game < 200; game++ {
		n := 2 + rng.Intn(4)
		stacks := make([]int64, n)
		var bankroll int64
		for i := range stacks {
			stacks[i] = int64(40 + rng.Intn(300))
			bankroll += stacks[i]
		}
		h := mustHand(t, testPlayers(stacks...), rng.Intn(n))
		id := fmt.Sprintf("game %d seed %s", game, h.Seed)

		steps := 0
		for !h.Complete {
			if steps++; steps > 500 {
				t.Fatalf("%s: did not terminate", id)
			}
			if h.Active == -1 {
				next, err := h.AdvanceStreet()
				if err != nil {
					t.Fatalf("%s: %v", id, err)
				}
				h = next
				continue
			}
			prev := h
			h = randomAction(t, rng, h)
			checkStep(t, prev, h, bankroll)
		}

		res, err := h.Resolve()
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		var awarded int64
		for _, w := range res.Winners {
			if w.Amount <= 0 {
				t.Fatalf("%s: non-positive award %d", id, w.Amount)
			}
			awarded += w.Amount
		}
		if awarded != h.Pot {
			t.Fatalf("%s: awarded %d of pot %d", id, awarded, h.Pot)
		}
		for _, w := range res.Winners {
			idx := h.IndexOf(w.PlayerID)
			if idx == -1 {
				t.Fatalf("%s: unknown winner %s", id, w.PlayerID)
			}
			if h.Players[idx].Folded {
				t.Fatalf("%s: folded player %s won", id, w.PlayerID)
			}
		}
	}
}

func TestRandomGamesActionLogReplays(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(0xd00d))
	for game := 0; game < 25; game++ {
		n := 2 + rng.Intn(4)
		stacks := make([]int64, n)
		for i := range stacks {
			stacks[i] = int64(100 + rng.Intn(200))
		}
		players := testPlayers(stacks...)
		button := rng.Intn(n)
		h := mustHand(t, players, button)

		for !h.Complete {
			if h.Active == -1 {
				next, err := h.AdvanceStreet()
				if err != nil {
					t.Fatal(err)
				}
				h = next
				continue
			}
			h = randomAction(t, rng, h)
		}

		// Replaying the recorded log against the revealed seed must land on
		// the same board, pot, and stacks.
		replay, err := NewHand(h.ID, h.Seed, players, button, testConfig())
		if err != nil {
			t.Fatal(err)
		}
		for _, rec := range h.Actions {
			for replay.Phase != rec.Phase {
				if replay, err = replay.AdvanceStreet(); err != nil {
					t.Fatalf("advance during replay: %v", err)
				}
			}
			amount := int64(0)
			if rec.Action == Raise {
				amount = rec.Amount
			}
			if replay, err = replay.Apply(rec.Action, amount); err != nil {
				t.Fatalf("replay action %d: %v", rec.Seq, err)
			}
		}
		for !replay.Complete {
			if replay, err = replay.AdvanceStreet(); err != nil {
				t.Fatal(err)
			}
		}

		if replay.Pot != h.Pot {
			t.Fatalf("replay pot %d != %d", replay.Pot, h.Pot)
		}
		if len(replay.Board) != len(h.Board) {
			t.Fatalf("replay board %v != %v", replay.Board, h.Board)
		}
		for i := range h.Board {
			if replay.Board[i] != h.Board[i] {
				t.Fatalf("replay board %v != %v", replay.Board, h.Board)
			}
		}
		for i := range h.Players {
			if replay.Players[i].Chips != h.Players[i].Chips {
				t.Fatalf("replay stack %d: %d != %d", i, replay.Players[i].Chips, h.Players[i].Chips)
			}
		}
	}
}
