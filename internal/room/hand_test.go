package room

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

// startHeadsUp seats two 1,000-chip players and runs the countdown down so a
// hand is live: p1 on the button posting the small blind and acting first.
func startHeadsUp(t *testing.T, cfg Config) (*Room, *recorder, *quartz.Mock, *store.Store) {
	t.Helper()
	r, rec, clk, s := testRoom(t, cfg)
	join(t, r, "p1", 0, 1_000)
	join(t, r, "p2", 1, 1_000)
	advanceSeconds(t, clk, 3)
	require.Len(t, rec.byEvent(EventGameStarted), 1)
	return r, rec, clk, s
}

func cardCount(cs []*string) int {
	n := 0
	for _, c := range cs {
		if c != nil {
			n++
		}
	}
	return n
}

func TestHeadsUpHandPlaysOut(t *testing.T) {
	r, rec, clk, s := startHeadsUp(t, Config{ID: "table-low-2", Persistent: true})

	starts := rec.toPlayer("p1", EventTurnStart)
	require.Len(t, starts, 1)
	assert.Equal(t, 0, starts[0].data.(TurnStartEvent).Seat)

	r.Act("p1", engine.Call, 0)
	r.Act("p2", engine.Check, 0)
	assert.Equal(t, engine.Flop, r.Snapshot("").Phase)
	r.Act("p2", engine.Raise, 40)
	r.Act("p1", engine.Fold, 0)

	acks := rec.byEvent(EventActionAck)
	require.Len(t, acks, 4)
	var actions []string
	var amounts []int64
	for _, a := range acks {
		ev := a.data.(ActionAckEvent)
		actions = append(actions, ev.Action)
		amounts = append(amounts, ev.Amount)
	}
	assert.Equal(t, []string{"call", "check", "raise", "fold"}, actions)
	assert.Equal(t, []int64{20, 0, 40, 0}, amounts)
	assert.Equal(t, int64(1), acks[0].data.(ActionAckEvent).Seq)
	assert.Len(t, rec.toPlayer("p1", EventTurnStart), 2)
	assert.Len(t, rec.toPlayer("p2", EventTurnStart), 2)

	// Settlement happens after the showdown pause, not on the fold itself.
	assert.Empty(t, rec.byEvent(EventHandResult))
	advanceSeconds(t, clk, 2)

	results := rec.byEvent(EventHandResult)
	require.Len(t, results, 1)
	ev := results[0].data.(HandResultEvent)
	assert.Equal(t, int64(80), ev.Pot)
	assert.True(t, ev.LastStanding)
	assert.Len(t, ev.Actions, 4)
	require.Len(t, ev.Winners, 1)
	assert.Equal(t, "p2", ev.Winners[0].PlayerID)
	assert.Equal(t, int64(80), ev.Winners[0].Amount)
	assert.Equal(t, "p2", ev.PlayerNames["p2"])

	snap := r.Snapshot("")
	assert.Equal(t, int64(980), snap.Seats[0].Chips)
	assert.Equal(t, int64(1_020), snap.Seats[1].Chips)

	ctx := context.Background()
	row, err := s.HandResultByID(ctx, ev.HandID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(80), row.Pot)
	rows, err := s.RoomSeats(ctx, "table-low-2")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(980), rows[0].Chips)
	assert.Equal(t, int64(1_020), rows[1].Chips)

	// Next hand deals itself after the break, button rotated.
	advanceSeconds(t, clk, 5)
	started := rec.byEvent(EventGameStarted)
	require.Len(t, started, 2)
	assert.Equal(t, 1, started[1].data.(GameStartedEvent).DealerSeat)
}

func TestTurnTimeoutAutoFolds(t *testing.T) {
	r, rec, clk, _ := startHeadsUp(t, Config{})

	advanceSeconds(t, clk, 30)
	advanceSeconds(t, clk, 2)

	assert.Empty(t, rec.byEvent(EventActionAck))
	results := rec.byEvent(EventHandResult)
	require.Len(t, results, 1)
	ev := results[0].data.(HandResultEvent)
	assert.True(t, ev.LastStanding)
	require.Len(t, ev.Actions, 1)
	assert.Equal(t, engine.Fold, ev.Actions[0].Action)
	assert.Equal(t, 0, ev.Actions[0].Seat)
	require.Len(t, ev.Winners, 1)
	assert.Equal(t, "p2", ev.Winners[0].PlayerID)
	assert.Equal(t, int64(30), ev.Winners[0].Amount)

	snap := r.Snapshot("")
	assert.Equal(t, int64(990), snap.Seats[0].Chips)
	assert.Equal(t, int64(1_010), snap.Seats[1].Chips)
}

func TestAllInRunout(t *testing.T) {
	r, rec, clk, _ := startHeadsUp(t, Config{})

	r.Act("p1", engine.AllIn, 0)
	r.Act("p2", engine.AllIn, 0)

	// Betting closed preflop, so the flop is already out and the remaining
	// streets run on the timer.
	snap := r.Snapshot("")
	assert.Equal(t, engine.Flop, snap.Phase)
	assert.Equal(t, 3, cardCount(snap.CommunityCards))

	advanceSeconds(t, clk, 1)
	assert.Equal(t, engine.Turn, r.Snapshot("").Phase)
	advanceSeconds(t, clk, 1)
	assert.Equal(t, engine.River, r.Snapshot("").Phase)
	advanceSeconds(t, clk, 1)
	assert.Equal(t, engine.Showdown, r.Snapshot("").Phase)
	assert.Empty(t, rec.byEvent(EventHandResult))

	advanceSeconds(t, clk, 2)
	results := rec.byEvent(EventHandResult)
	require.Len(t, results, 1)
	ev := results[0].data.(HandResultEvent)
	assert.Equal(t, int64(2_000), ev.Pot)
	assert.False(t, ev.LastStanding)
	assert.Len(t, ev.Board, 5)
	assert.Len(t, ev.Showdown, 2)
	var won int64
	for _, w := range ev.Winners {
		won += w.Amount
	}
	assert.Equal(t, int64(2_000), won)

	// Chips are conserved across whoever is still seated; a busted loser
	// is kicked rather than left on zero.
	var chips int64
	for _, ss := range r.Snapshot("").Seats {
		if ss != nil {
			chips += ss.Chips
		}
	}
	assert.Equal(t, int64(2_000), chips)
	assert.LessOrEqual(t, len(rec.byEvent(EventPlayerKicked)), 1)
}

func TestLeaveMidHandForfeitsCommitted(t *testing.T) {
	r, rec, clk, _ := startHeadsUp(t, Config{})

	// p1 has only the small blind in; leaving folds the hand and forfeits it.
	res, err := r.Leave("p1-sess")
	require.NoError(t, err)
	assert.Equal(t, int64(990), res.Chips)
	assert.Equal(t, 0, res.Seat)

	left := rec.byEvent(EventPlayerLeft)
	require.Len(t, left, 1)

	advanceSeconds(t, clk, 2)
	results := rec.byEvent(EventHandResult)
	require.Len(t, results, 1)
	ev := results[0].data.(HandResultEvent)
	assert.True(t, ev.LastStanding)
	require.Len(t, ev.Winners, 1)
	assert.Equal(t, "p2", ev.Winners[0].PlayerID)

	snap := r.Snapshot("")
	assert.Nil(t, snap.Seats[0])
	assert.Equal(t, int64(1_010), snap.Seats[1].Chips)
}

func TestLeaveDuringShowdownPauseSettlesFirst(t *testing.T) {
	r, rec, clk, _ := startHeadsUp(t, Config{})

	r.Act("p1", engine.Fold, 0)
	assert.Empty(t, rec.byEvent(EventHandResult))

	// The winner cashes out before the pause ends; the hand settles
	// immediately so their balance includes the pot.
	res, err := r.Leave("p2-sess")
	require.NoError(t, err)
	assert.Equal(t, int64(1_010), res.Chips)
	assert.Len(t, rec.byEvent(EventHandResult), 1)

	advanceSeconds(t, clk, 7)
	assert.Len(t, rec.byEvent(EventHandResult), 1)
	assert.Len(t, rec.byEvent(EventGameStarted), 1)
}

func TestBustedPlayerKicked(t *testing.T) {
	r, rec, clk, _ := testRoom(t, Config{Table: engine.Config{
		SmallBlind:  10,
		BigBlind:    20,
		MinBuyIn:    20,
		MaxBuyIn:    5_000,
		MaxPlayers:  6,
		TurnTimeout: 30 * time.Second,
	}})
	join(t, r, "p1", 0, 1_000)
	join(t, r, "p2", 1, 20)

	cards, err := engine.ParseCards(
		"As", "Ah", // p1
		"2c", "7d", // p2
		"Ts", "Kd", "Qs", "9h", // burn + flop
		"Tc", "3c", // burn + turn
		"Td", "4s", // burn + river
	)
	require.NoError(t, err)
	r.mu.Lock()
	r.deckFn = func() *engine.Deck { return engine.NewDeckFromCards(cards...) }
	r.mu.Unlock()

	advanceSeconds(t, clk, 3)
	require.Len(t, rec.byEvent(EventGameStarted), 1)

	// p2's big blind was their whole stack, so p1's call closes the action
	// and the board runs out.
	r.Act("p1", engine.Call, 0)
	advanceSeconds(t, clk, 5)

	results := rec.byEvent(EventHandResult)
	require.Len(t, results, 1)
	ev := results[0].data.(HandResultEvent)
	require.Len(t, ev.Winners, 1)
	assert.Equal(t, "p1", ev.Winners[0].PlayerID)
	assert.Equal(t, int64(40), ev.Winners[0].Amount)
	assert.Equal(t, cards[5:8], ev.Board[:3])

	kicked := rec.byEvent(EventPlayerKicked)
	require.Len(t, kicked, 1)
	kev := kicked[0].data.(PlayerKickedEvent)
	assert.Equal(t, "p2", kev.PlayerID)
	assert.Equal(t, 1, kev.Seat)
	assert.Equal(t, "busted", kev.Reason)

	snap := r.Snapshot("")
	assert.Nil(t, snap.Seats[1])
	assert.Equal(t, int64(1_020), snap.Seats[0].Chips)
}

func TestRakeComesOffWinners(t *testing.T) {
	r, rec, clk, s := startHeadsUp(t, Config{RakePercent: 5})

	r.Act("p1", engine.Fold, 0)
	advanceSeconds(t, clk, 2)

	results := rec.byEvent(EventHandResult)
	require.Len(t, results, 1)
	ev := results[0].data.(HandResultEvent)
	assert.Equal(t, int64(30), ev.Pot)
	assert.Equal(t, int64(1), ev.Rake)
	require.Len(t, ev.Winners, 1)
	assert.Equal(t, int64(29), ev.Winners[0].Amount)

	assert.Equal(t, int64(1_009), r.Snapshot("").Seats[1].Chips)

	accrued, err := s.RakeAccrued(context.Background(), r.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), accrued)
}

func TestSnapshotFiltering(t *testing.T) {
	r, _, clk, _ := startHeadsUp(t, Config{})

	mine := r.Snapshot("p1")
	assert.Len(t, mine.MyHand, 2)
	assert.Len(t, mine.Seats[0].HoleCards, 2)
	assert.Nil(t, mine.Seats[1].HoleCards)
	assert.True(t, mine.IsMyTurn)
	require.NotNil(t, mine.TurnTimeoutAt)

	theirs := r.Snapshot("p2")
	assert.Nil(t, theirs.Seats[0].HoleCards)
	assert.Len(t, theirs.Seats[1].HoleCards, 2)
	assert.False(t, theirs.IsMyTurn)
	assert.Nil(t, theirs.TurnTimeoutAt)

	watcher := r.Snapshot("")
	assert.Equal(t, -1, watcher.MySeatIndex)
	assert.Equal(t, 0, watcher.ActiveSeat)
	assert.Nil(t, watcher.Seats[0].HoleCards)
	assert.Nil(t, watcher.Seats[1].HoleCards)

	// At showdown every live hand is public.
	r.Act("p1", engine.AllIn, 0)
	r.Act("p2", engine.AllIn, 0)
	advanceSeconds(t, clk, 3)

	watcher = r.Snapshot("")
	assert.Equal(t, engine.Showdown, watcher.Phase)
	assert.Equal(t, 5, cardCount(watcher.CommunityCards))
	assert.Len(t, watcher.Seats[0].HoleCards, 2)
	assert.Len(t, watcher.Seats[1].HoleCards, 2)
}

type handArchive struct {
	hands   []*engine.Hand
	results []*engine.Result
}

func (a *handArchive) RecordHand(h *engine.Hand, res *engine.Result) {
	a.hands = append(a.hands, h)
	a.results = append(a.results, res)
}

func TestResolvedHandsReachTheRecorder(t *testing.T) {
	arch := &handArchive{}
	r, _, clk, _ := testRoom(t, Config{ID: "table-low-9", History: arch})
	join(t, r, "p1", 0, 1_000)
	join(t, r, "p2", 1, 1_000)
	advanceSeconds(t, clk, 3)

	r.Act("p1", engine.Fold, 0)
	assert.Empty(t, arch.results)
	advanceSeconds(t, clk, 2)

	require.Len(t, arch.results, 1)
	require.Len(t, arch.hands, 1)
	res := arch.results[0]
	assert.True(t, res.LastStanding)
	assert.True(t, arch.hands[0].Complete)
	assert.Equal(t, res.HandID, arch.hands[0].ID)
	require.Len(t, res.Winners, 1)
	assert.Equal(t, "p2", res.Winners[0].PlayerID)
}
