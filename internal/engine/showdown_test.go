package engine

import (
	"testing"
	"time"
)

func mustCards(t *testing.T, strs ...string) []Card {
	t.Helper()
	cards, err := ParseCards(strs...)
	if err != nil {
		t.Fatal(err)
	}
	return cards
}

// Heads-up: small blind calls, big blind checks, then bets the flop and
// takes it down when the small blind folds.
func TestHeadsUpFoldOnFlop(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000), 0)

	h = apply(t, h, Call, 0)  // p1 completes the small blind
	h = apply(t, h, Check, 0) // p2 takes the option

	h, err := h.AdvanceStreet()
	if err != nil {
		t.Fatal(err)
	}
	if h.Active != 1 {
		t.Fatalf("post-flop first actor = %d, want the non-dealer", h.Active)
	}

	h = apply(t, h, Raise, 40) // p2 bets the flop
	h = apply(t, h, Fold, 0)   // p1 folds

	res, err := h.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if res.Pot != 80 {
		t.Errorf("pot = %d, want 80", res.Pot)
	}
	if len(res.Winners) != 1 || res.Winners[0].PlayerID != "p2" || res.Winners[0].Amount != 80 {
		t.Errorf("winners = %+v", res.Winners)
	}
	if len(res.Actions) != 4 {
		t.Errorf("action log length = %d, want 4", len(res.Actions))
	}
	if h.Players[0].Chips != 980 {
		t.Errorf("p1 stack = %d, want 980", h.Players[0].Chips)
	}
	// p2's stack plus the award restores their 1000 and nets p1's 20.
	if h.Players[1].Chips+res.Winners[0].Amount != 1020 {
		t.Errorf("p2 ends with %d", h.Players[1].Chips+res.Winners[0].Amount)
	}
	if res.Seed != h.Seed || res.Algorithm != ShuffleAlgorithm {
		t.Error("result must reveal the seed and shuffle algorithm")
	}
}

// All-hearts broadway board: one player holds the ace of hearts for a royal
// flush, the other has pocket aces and must settle for the board.
func TestRoyalFlushBeatsBoardStraightFlush(t *testing.T) {
	t.Parallel()

	deck := NewDeckFromCards(mustCards(t,
		"Ah", "2c", // p1
		"Ac", "Ad", // p2
		"3d", "Kh", "Qh", "Jh", // burn + flop
		"4d", "Th", // burn + turn
		"5d", "9h", // burn + river
	)...)

	players := testPlayers(1000, 1000)
	h, err := NewHand("hand-royal", "seed-royal", players, 0, testConfig(), WithDeck(deck))
	if err != nil {
		t.Fatal(err)
	}

	h = apply(t, h, Call, 0)
	h = apply(t, h, Check, 0)
	for street := 0; street < 3; street++ {
		h, err = h.AdvanceStreet()
		if err != nil {
			t.Fatal(err)
		}
		h = apply(t, h, Check, 0)
		h = apply(t, h, Check, 0)
	}
	h, err = h.AdvanceStreet()
	if err != nil {
		t.Fatal(err)
	}
	if !h.Complete {
		t.Fatal("hand should be complete at showdown")
	}

	res, err := h.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Winners) != 1 || res.Winners[0].PlayerID != "p1" {
		t.Fatalf("winners = %+v, want p1 alone", res.Winners)
	}
	if res.Winners[0].HandName != "Royal Flush" {
		t.Errorf("winning hand = %q", res.Winners[0].HandName)
	}
	for _, sh := range res.Showdown {
		if sh.PlayerID == "p2" && sh.HandName != "Straight Flush" {
			t.Errorf("p2 plays the board straight flush, got %q", sh.HandName)
		}
	}
}

// Two players play the board and split an odd pot; the extra chip goes to
// the tied seat closest to the dealer's left.
func TestOddChipGoesLeftOfDealer(t *testing.T) {
	t.Parallel()

	deck := NewDeckFromCards(mustCards(t,
		"2c", "3d", // p1 (dealer)
		"7h", "8s", // p2 (folds)
		"4s", "6c", // p3
		"9d", "As", "Kd", "Qh", // burn + flop
		"8d", "Jc", // burn + turn
		"7d", "Th", // burn + river
	)...)

	cfg := Config{
		SmallBlind:  5,
		BigBlind:    10,
		MinBuyIn:    200,
		MaxBuyIn:    1000,
		MaxPlayers:  6,
		TurnTimeout: 30 * time.Second,
	}
	h, err := NewHand("hand-split", "seed-split", testPlayers(500, 500, 500), 0, cfg, WithDeck(deck))
	if err != nil {
		t.Fatal(err)
	}

	h = apply(t, h, Call, 0)  // p1
	h = apply(t, h, Fold, 0)  // p2 abandons the small blind
	h = apply(t, h, Check, 0) // p3

	for !h.Complete {
		h, err = h.AdvanceStreet()
		if err != nil {
			t.Fatal(err)
		}
		for h.Active != -1 {
			h = apply(t, h, Check, 0)
		}
	}

	res, err := h.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if res.Pot != 25 {
		t.Fatalf("pot = %d, want 25", res.Pot)
	}
	if len(res.Winners) != 2 {
		t.Fatalf("winners = %+v, want a split", res.Winners)
	}

	awards := make(map[string]int64)
	for _, w := range res.Winners {
		awards[w.PlayerID] = w.Amount
		if w.HandName != "Straight" {
			t.Errorf("%s won with %q, want board straight", w.PlayerID, w.HandName)
		}
	}
	if awards["p3"] != 13 || awards["p1"] != 12 {
		t.Errorf("split = %v, odd chip belongs to the seat left of the dealer", awards)
	}
}

func TestResolveRequiresCompleteHand(t *testing.T) {
	t.Parallel()
	h := mustHand(t, testPlayers(1000, 1000), 0)

	if _, err := h.Resolve(); err == nil {
		t.Error("resolve allowed on a live hand")
	}
}
