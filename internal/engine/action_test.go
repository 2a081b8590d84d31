package engine

import (
	"errors"
	"reflect"
	"testing"
)

func apply(t *testing.T, h *Hand, action Action, amount int64) *Hand {
	t.Helper()
	next, err := h.Apply(action, amount)
	if err != nil {
		t.Fatalf("%s(%d) failed: %v", action, amount, err)
	}
	return next
}

func TestCheckRequiresMatchedBet(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	_, err := h.Apply(Check, 0)
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("expected invalid action, got %v", err)
	}
}

func TestBigBlindOption(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	h = apply(t, h, Call, 0)
	h = apply(t, h, Call, 0)

	// All bets match but the big blind has not acted yet.
	if h.RoundComplete() {
		t.Fatal("round should wait for the big blind option")
	}
	if h.Active != h.BBIndex {
		t.Fatalf("active = %d, want big blind %d", h.Active, h.BBIndex)
	}

	h = apply(t, h, Check, 0)
	if !h.RoundComplete() {
		t.Error("round should complete after big blind checks")
	}
	if h.Active != -1 {
		t.Errorf("active = %d after round completion, want -1", h.Active)
	}
}

func TestMinimumRaiseEnforced(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	if _, err := h.Apply(Raise, 39); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("raise below minimum accepted: %v", err)
	}

	h = apply(t, h, Raise, 40)
	if h.CurrentBet != 40 || h.LastRaise != 20 {
		t.Errorf("after raise: currentBet=%d lastRaise=%d", h.CurrentBet, h.LastRaise)
	}
	if h.MinRaiseTo() != 60 {
		t.Errorf("min raise-to = %d, want 60", h.MinRaiseTo())
	}
}

func TestRaiseReopensAction(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	h = apply(t, h, Call, 0)  // p1
	h = apply(t, h, Call, 0)  // p2 (small blind)
	h = apply(t, h, Check, 0) // p3 (big blind)
	h, err := h.AdvanceStreet()
	if err != nil {
		t.Fatal(err)
	}

	h = apply(t, h, Raise, 20) // p2 bets
	h = apply(t, h, Call, 0)   // p3 calls
	if !h.Players[2].Acted {
		t.Fatal("caller should be marked acted")
	}

	h = apply(t, h, Raise, 60) // p1 raises, reopening the round
	if h.Players[1].Acted || h.Players[2].Acted {
		t.Error("raise did not reset acted flags for the other players")
	}
	if !h.Players[0].Acted {
		t.Error("raiser should remain acted")
	}
	if h.CurrentBet != 60 || h.LastRaise != 40 {
		t.Errorf("after reraise: currentBet=%d lastRaise=%d", h.CurrentBet, h.LastRaise)
	}
	if h.RoundComplete() {
		t.Error("round complete despite reopened action")
	}
}

func TestShortAllInDoesNotReopen(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 55), 0)

	h = apply(t, h, Raise, 40) // p1
	h = apply(t, h, Call, 0)   // p2
	h = apply(t, h, AllIn, 0)  // p3 all-in to 55, below the 60 minimum

	if !h.Players[2].AllIn {
		t.Fatal("p3 should be all-in")
	}
	if h.CurrentBet != 55 {
		t.Errorf("current bet = %d, want 55", h.CurrentBet)
	}
	if h.LastRaise != 20 {
		t.Errorf("short all-in moved the min-raise basis: %d", h.LastRaise)
	}
	if !h.Players[0].Acted || !h.Players[1].Acted {
		t.Error("short all-in reset acted flags")
	}

	// The others still owe the difference.
	if h.RoundComplete() {
		t.Fatal("round should remain open until the extra is called")
	}
	h = apply(t, h, Call, 0)
	h = apply(t, h, Call, 0)
	if !h.RoundComplete() {
		t.Error("round should complete once the all-in is matched")
	}
}

func TestAllInExactlyMinimumReopens(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 60), 0)

	h = apply(t, h, Raise, 40)
	h = apply(t, h, Call, 0)
	h = apply(t, h, AllIn, 0) // 60 total, exactly the minimum raise

	if h.Players[0].Acted || h.Players[1].Acted {
		t.Error("full-raise all-in should reopen action")
	}
	if h.CurrentBet != 60 || h.LastRaise != 20 {
		t.Errorf("after all-in: currentBet=%d lastRaise=%d", h.CurrentBet, h.LastRaise)
	}
}

func TestRaiseOfEntireStackAllowedBelowMinimum(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 55), 0)

	h = apply(t, h, Raise, 40)
	h = apply(t, h, Call, 0)

	// Raising to the entire stack is legal even under the minimum.
	h = apply(t, h, Raise, 55)
	p := h.Players[2]
	if !p.AllIn || p.Chips != 0 || p.Bet != 55 {
		t.Errorf("stack raise not applied: %+v", p)
	}
}

func TestFoldToOneCompletesHand(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	h = apply(t, h, Fold, 0)
	h = apply(t, h, Fold, 0)

	if !h.Complete {
		t.Fatal("hand should complete when one player remains")
	}
	if h.Active != -1 {
		t.Errorf("active = %d in complete hand", h.Active)
	}

	res, err := h.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if !res.LastStanding {
		t.Error("expected last-player-standing result")
	}
	if len(res.Winners) != 1 || res.Winners[0].PlayerID != "p3" || res.Winners[0].Amount != 30 {
		t.Errorf("winners = %+v", res.Winners)
	}
	if res.Winners[0].HandName != LastStandingLabel {
		t.Errorf("hand name = %q", res.Winners[0].HandName)
	}
	if len(res.Showdown) != 0 {
		t.Error("hole cards must stay hidden on a fold win")
	}
}

func TestAutoFoldMatchesExplicitFold(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	folded, err := h.Apply(Fold, 0)
	if err != nil {
		t.Fatal(err)
	}
	forced := h.ForceFold(h.Active)

	if !reflect.DeepEqual(folded, forced) {
		t.Errorf("auto-fold state differs from explicit fold:\n%+v\nvs\n%+v", folded, forced)
	}
}

func TestForceFoldNonActivePlayer(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	// The big blind leaves before acting.
	h = h.ForceFold(h.BBIndex)
	if !h.Players[2].Folded {
		t.Fatal("p3 not folded")
	}
	if h.Active != 0 {
		t.Errorf("active moved unexpectedly: %d", h.Active)
	}

	h = apply(t, h, Call, 0)
	// Only the small blind remains undecided.
	if h.Active != 1 {
		t.Errorf("active = %d, want small blind", h.Active)
	}
	h = apply(t, h, Call, 0)
	if !h.RoundComplete() {
		t.Error("round should complete with the folded big blind ignored")
	}
}

func TestZeroChipActionRejected(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)
	h.Players[h.Active].Chips = 0

	if _, err := h.Apply(Call, 0); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("zero-chip action accepted: %v", err)
	}
}

func TestAdvanceStreetDealsBoard(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	h = apply(t, h, Call, 0)
	h = apply(t, h, Call, 0)
	h = apply(t, h, Check, 0)

	h, err := h.AdvanceStreet()
	if err != nil {
		t.Fatal(err)
	}
	if h.Phase != Flop || len(h.Board) != 3 {
		t.Fatalf("after flop: phase=%s board=%d", h.Phase, len(h.Board))
	}
	// 6 hole cards, 1 burn, 3 flop.
	if h.Deck.Remaining() != 42 {
		t.Errorf("deck remaining = %d, want 42", h.Deck.Remaining())
	}
	if h.CurrentBet != 0 || h.LastRaise != 20 {
		t.Errorf("betting not reset: currentBet=%d lastRaise=%d", h.CurrentBet, h.LastRaise)
	}
	if h.Active != 1 {
		t.Errorf("post-flop first actor = %d, want small blind", h.Active)
	}
	for _, p := range h.Players {
		if p.Bet != 0 || p.Acted {
			t.Errorf("player state not reset: %+v", p)
		}
	}

	for _, want := range []struct {
		phase Phase
		board int
	}{{Turn, 4}, {River, 5}} {
		h = apply(t, h, Check, 0)
		h = apply(t, h, Check, 0)
		h = apply(t, h, Check, 0)
		h, err = h.AdvanceStreet()
		if err != nil {
			t.Fatal(err)
		}
		if h.Phase != want.phase || len(h.Board) != want.board {
			t.Fatalf("phase=%s board=%d, want %s/%d", h.Phase, len(h.Board), want.phase, want.board)
		}
	}

	h = apply(t, h, Check, 0)
	h = apply(t, h, Check, 0)
	h = apply(t, h, Check, 0)
	h, err = h.AdvanceStreet()
	if err != nil {
		t.Fatal(err)
	}
	if h.Phase != Showdown || !h.Complete {
		t.Errorf("after river: phase=%s complete=%v", h.Phase, h.Complete)
	}
}

func TestAdvanceStreetRejectsOpenRound(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	if _, err := h.AdvanceStreet(); err == nil {
		t.Error("advance allowed with betting open")
	}
}

func TestEveryoneAllInRunsOut(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(100, 100, 100), 0)

	h = apply(t, h, AllIn, 0)
	h = apply(t, h, AllIn, 0)
	h = apply(t, h, AllIn, 0)

	if !h.RoundComplete() {
		t.Fatal("round should be complete with everyone all-in")
	}
	if h.Pot != 300 {
		t.Fatalf("pot = %d, want 300", h.Pot)
	}

	for !h.Complete {
		var err error
		h, err = h.AdvanceStreet()
		if err != nil {
			t.Fatal(err)
		}
	}
	if h.Phase != Showdown || len(h.Board) != 5 {
		t.Fatalf("runout ended at %s with %d board cards", h.Phase, len(h.Board))
	}

	// Equal contributions collapse into a single pot for everyone.
	if len(h.SidePots) != 1 {
		t.Fatalf("side pots = %+v, want one", h.SidePots)
	}
	if h.SidePots[0].Amount != 300 || len(h.SidePots[0].Eligible) != 3 {
		t.Errorf("pot = %+v", h.SidePots[0])
	}

	res, err := h.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, w := range res.Winners {
		total += w.Amount
	}
	if total != 300 {
		t.Errorf("winner amounts sum to %d, want 300", total)
	}
}

func TestActionSequenceSurvivesStreets(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000, 1000), 0)

	h = apply(t, h, Call, 0)
	h = apply(t, h, Call, 0)
	h = apply(t, h, Check, 0)
	if h.Seq != 3 {
		t.Fatalf("seq = %d after preflop, want 3", h.Seq)
	}

	h, err := h.AdvanceStreet()
	if err != nil {
		t.Fatal(err)
	}
	h = apply(t, h, Check, 0)
	if h.Seq != 4 {
		t.Errorf("seq = %d after flop check, want 4", h.Seq)
	}
	if len(h.Actions) != 4 {
		t.Errorf("action log length = %d, want 4", len(h.Actions))
	}
	if h.Actions[3].Phase != Flop {
		t.Errorf("last action phase = %s", h.Actions[3].Phase)
	}
}
