package room

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

// recorded is one notification captured by the fake notifier.
type recorded struct {
	scope  string // player, room, watchers, lobby
	target string
	event  string
	data   any
}

type recorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (rec *recorder) ToPlayer(playerID, event string, data any) {
	rec.add("player", playerID, event, data)
}

func (rec *recorder) ToRoom(roomID, event string, data any) {
	rec.add("room", roomID, event, data)
}

func (rec *recorder) ToWatchers(roomID, event string, data any) {
	rec.add("watchers", roomID, event, data)
}

func (rec *recorder) LobbyChanged(roomID string) {
	rec.add("lobby", roomID, "", nil)
}

func (rec *recorder) add(scope, target, event string, data any) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.seen = append(rec.seen, recorded{scope: scope, target: target, event: event, data: data})
}

// byEvent returns every captured notification with the given event name.
func (rec *recorder) byEvent(event string) []recorded {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []recorded
	for _, r := range rec.seen {
		if r.event == event {
			out = append(out, r)
		}
	}
	return out
}

// toPlayer returns notifications sent directly to one player.
func (rec *recorder) toPlayer(playerID, event string) []recorded {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []recorded
	for _, r := range rec.seen {
		if r.scope == "player" && r.target == playerID && r.event == event {
			out = append(out, r)
		}
	}
	return out
}

func testTable() engine.Config {
	return engine.Config{
		SmallBlind:  10,
		BigBlind:    20,
		MinBuyIn:    100,
		MaxBuyIn:    5_000,
		MaxPlayers:  6,
		TurnTimeout: 30 * time.Second,
	}
}

func testRoom(t *testing.T, cfg Config) (*Room, *recorder, *quartz.Mock, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clk := quartz.NewMock(t)
	rec := &recorder{}

	if cfg.ID == "" {
		cfg.ID = "room-test"
	}
	if cfg.Table.BigBlind == 0 {
		cfg.Table = testTable()
	}
	cfg.Logger = log.New(io.Discard)
	cfg.Clock = clk
	cfg.Notifier = rec
	if cfg.Store == nil {
		cfg.Store = s
	}
	r, err := NewRoom(cfg)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, rec, clk, s
}

// advanceSeconds steps the mock clock one second at a time so timers armed
// by earlier callbacks still fire within the window.
func advanceSeconds(t *testing.T, clk *quartz.Mock, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		clk.Advance(time.Second).MustWait(ctx)
	}
}

func join(t *testing.T, r *Room, playerID string, seat int, buyIn int64) int {
	t.Helper()
	got, err := r.Join(JoinRequest{
		PlayerID:  playerID,
		SessionID: playerID + "-sess",
		Name:      playerID,
		BuyIn:     buyIn,
		Seat:      seat,
	})
	require.NoError(t, err)
	return got
}

func TestReserveSeat(t *testing.T) {
	r, rec, _, _ := testRoom(t, Config{})

	require.NoError(t, r.ReserveSeat("p1", "Alice", 2))
	events := rec.byEvent(EventSeatReserved)
	require.Len(t, events, 1)
	ev := events[0].data.(SeatReservedEvent)
	assert.Equal(t, 2, ev.Seat)
	assert.Equal(t, "p1", ev.PlayerID)

	// Another player cannot take the held seat.
	require.ErrorIs(t, r.ReserveSeat("p2", "Bob", 2), ErrSeatReserved)

	// Re-reserving moves the player's hold; the old seat frees up.
	require.NoError(t, r.ReserveSeat("p1", "Alice", 4))
	released := rec.byEvent(EventSeatReleased)
	require.Len(t, released, 1)
	assert.Equal(t, 2, released[0].data.(SeatReleasedEvent).Seat)
	require.NoError(t, r.ReserveSeat("p2", "Bob", 2))

	// Occupied seats cannot be reserved.
	join(t, r, "p3", 1, 500)
	require.ErrorIs(t, r.ReserveSeat("p4", "Dan", 1), ErrSeatTaken)

	// Seated players hold no reservations.
	require.ErrorIs(t, r.ReserveSeat("p3", "Carl", 5), ErrAlreadySeated)

	require.Error(t, r.ReserveSeat("p5", "Eve", 99))
}

func TestReservationExpires(t *testing.T) {
	r, rec, clk, _ := testRoom(t, Config{})

	require.NoError(t, r.ReserveSeat("p1", "Alice", 2))
	snap := r.Snapshot("")
	assert.Equal(t, []int{2}, snap.ReservedSeats)

	advanceSeconds(t, clk, 30)

	released := rec.byEvent(EventSeatReleased)
	require.Len(t, released, 1)
	assert.Equal(t, 2, released[0].data.(SeatReleasedEvent).Seat)
	assert.Empty(t, r.Snapshot("").ReservedSeats)

	// The freed seat is reservable by someone else.
	require.NoError(t, r.ReserveSeat("p2", "Bob", 2))
}

func TestReleaseSeat(t *testing.T) {
	r, rec, _, _ := testRoom(t, Config{})

	require.NoError(t, r.ReserveSeat("p1", "Alice", 2))

	// A mismatched player does not release the hold.
	r.ReleaseSeat(2, "p2")
	require.ErrorIs(t, r.ReserveSeat("p2", "Bob", 2), ErrSeatReserved)

	r.ReleaseSeat(2, "p1")
	assert.Len(t, rec.byEvent(EventSeatReleased), 1)

	// Idempotent.
	r.ReleaseSeat(2, "p1")
	r.ReleaseSeat(2, "")
	assert.Len(t, rec.byEvent(EventSeatReleased), 1)

	require.NoError(t, r.ReserveSeat("p2", "Bob", 2))
}

func TestJoinSeatsPlayers(t *testing.T) {
	r, rec, _, s := testRoom(t, Config{ID: "table-low-1", Persistent: true})

	seat := join(t, r, "p1", -1, 500)
	assert.Equal(t, 0, seat)

	seat = join(t, r, "p2", 3, 1_000)
	assert.Equal(t, 3, seat)

	// Lowest free seat skips occupied ones.
	seat = join(t, r, "p3", -1, 500)
	assert.Equal(t, 1, seat)

	joined := rec.byEvent(EventPlayerJoined)
	require.Len(t, joined, 3)
	first := joined[0].data.(PlayerJoinedEvent)
	assert.Equal(t, "p1", first.PlayerID)
	assert.Equal(t, int64(500), first.Chips)

	rows, err := s.RoomSeats(context.Background(), "table-low-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "p1", rows[0].Address)
	assert.Equal(t, int64(500), rows[0].Chips)
	assert.Equal(t, store.SeatOccupied, rows[0].Status)
}

func TestJoinRejections(t *testing.T) {
	r, _, _, _ := testRoom(t, Config{Table: engine.Config{
		SmallBlind:  10,
		BigBlind:    20,
		MinBuyIn:    100,
		MaxBuyIn:    1_000,
		MaxPlayers:  2,
		TurnTimeout: 30 * time.Second,
	}})

	_, err := r.Join(JoinRequest{PlayerID: "p1", BuyIn: 99, Seat: -1})
	require.ErrorIs(t, err, ErrBuyInRange)
	_, err = r.Join(JoinRequest{PlayerID: "p1", BuyIn: 1_001, Seat: -1})
	require.ErrorIs(t, err, ErrBuyInRange)

	// Exactly at the minimum is accepted.
	join(t, r, "p1", 0, 100)

	_, err = r.Join(JoinRequest{PlayerID: "p1", BuyIn: 200, Seat: -1})
	require.ErrorIs(t, err, ErrAlreadySeated)

	_, err = r.Join(JoinRequest{PlayerID: "p2", BuyIn: 200, Seat: 0})
	require.ErrorIs(t, err, ErrSeatTaken)

	require.NoError(t, r.ReserveSeat("p3", "Carl", 1))
	_, err = r.Join(JoinRequest{PlayerID: "p2", BuyIn: 200, Seat: 1})
	require.ErrorIs(t, err, ErrSeatReserved)
	r.ReleaseSeat(1, "p3")

	_, err = r.Join(JoinRequest{PlayerID: "p2", BuyIn: 200, Seat: 7})
	require.Error(t, err)

	join(t, r, "p2", 1, 200)
	_, err = r.Join(JoinRequest{PlayerID: "p4", BuyIn: 200, Seat: -1})
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinClaimsOwnReservation(t *testing.T) {
	r, _, _, _ := testRoom(t, Config{})

	require.NoError(t, r.ReserveSeat("p1", "Alice", 4))

	// No preferred seat: the player's reservation decides.
	seat, err := r.Join(JoinRequest{PlayerID: "p1", SessionID: "s1", Name: "Alice", BuyIn: 500, Seat: -1})
	require.NoError(t, err)
	assert.Equal(t, 4, seat)
	assert.Empty(t, r.Snapshot("").ReservedSeats)
}

func TestVaultJoinRequiresLiveReservation(t *testing.T) {
	r, _, clk, _ := testRoom(t, Config{Vault: true})

	vaultJoin := func(seat int) error {
		_, err := r.Join(JoinRequest{
			PlayerID:  "p1",
			SessionID: "s1",
			Name:      "Alice",
			BuyIn:     500,
			Seat:      seat,
			Vault:     true,
		})
		return err
	}

	// Naming a seat without holding it is refused even though the seat
	// is free.
	require.ErrorIs(t, vaultJoin(2), ErrSeatUnavailable)

	// An expired reservation is just as gone.
	require.NoError(t, r.ReserveSeat("p1", "Alice", 2))
	advanceSeconds(t, clk, 30)
	require.ErrorIs(t, vaultJoin(2), ErrSeatUnavailable)

	// Re-reserving revives the claim.
	require.NoError(t, r.ReserveSeat("p1", "Alice", 2))
	require.NoError(t, vaultJoin(2))
}

func TestCountdownDealsFirstHand(t *testing.T) {
	r, rec, clk, _ := testRoom(t, Config{})

	join(t, r, "p1", 0, 1_000)
	assert.Empty(t, rec.byEvent(EventGameStarted))

	join(t, r, "p2", 1, 1_000)
	snap := r.Snapshot("")
	assert.Equal(t, engine.Countdown, snap.Phase)
	assert.Equal(t, 3, snap.CountdownSeconds)

	advanceSeconds(t, clk, 2)
	assert.Equal(t, 1, r.Snapshot("").CountdownSeconds)
	assert.Empty(t, rec.byEvent(EventGameStarted))

	advanceSeconds(t, clk, 1)
	started := rec.byEvent(EventGameStarted)
	require.Len(t, started, 1)
	ev := started[0].data.(GameStartedEvent)
	assert.Equal(t, 0, ev.DealerSeat)
	assert.Equal(t, 2, ev.Players)
	assert.Equal(t, engine.Preflop, r.Snapshot("").Phase)
}

func TestCountdownCancelledBelowQuorum(t *testing.T) {
	r, rec, clk, _ := testRoom(t, Config{})

	join(t, r, "p1", 0, 1_000)
	join(t, r, "p2", 1, 1_000)
	assert.Equal(t, engine.Countdown, r.Snapshot("").Phase)

	advanceSeconds(t, clk, 1)
	_, err := r.Leave("p2-sess")
	require.NoError(t, err)

	advanceSeconds(t, clk, 5)
	assert.Empty(t, rec.byEvent(EventGameStarted))
	assert.Equal(t, engine.Waiting, r.Snapshot("").Phase)

	// A second player arriving later restarts the countdown.
	join(t, r, "p3", 1, 1_000)
	advanceSeconds(t, clk, 3)
	assert.Len(t, rec.byEvent(EventGameStarted), 1)
}

func TestJoinDuringHandSitsOut(t *testing.T) {
	r, rec, clk, _ := testRoom(t, Config{})

	join(t, r, "p1", 0, 1_000)
	join(t, r, "p2", 1, 1_000)
	advanceSeconds(t, clk, 3)
	require.Len(t, rec.byEvent(EventGameStarted), 1)

	// A third player sits down mid-hand and is not dealt in.
	join(t, r, "p3", 2, 1_000)
	snap := r.Snapshot("p3")
	require.NotNil(t, snap.Seats[2])
	assert.Empty(t, snap.MyHand)
	assert.False(t, snap.Seats[2].Folded)

	// Heads-up fold ends the hand; the next deal includes the newcomer.
	r.Act("p1", engine.Fold, 0)
	advanceSeconds(t, clk, 2) // showdown pause
	require.Len(t, rec.byEvent(EventHandResult), 1)
	advanceSeconds(t, clk, 5) // next-hand delay

	started := rec.byEvent(EventGameStarted)
	require.Len(t, started, 2)
	assert.Equal(t, 3, started[1].data.(GameStartedEvent).Players)
}

func TestReconnectSwapsSession(t *testing.T) {
	r, rec, clk, _ := testRoom(t, Config{})

	join(t, r, "p1", 0, 1_000)
	join(t, r, "p2", 1, 1_000)
	advanceSeconds(t, clk, 3)

	playerID, ok := r.MarkDisconnected("p2-sess")
	require.True(t, ok)
	assert.Equal(t, "p2", playerID)
	snap := r.Snapshot("")
	assert.False(t, snap.Seats[1].Connected)

	require.True(t, r.Reconnect("p2", "p2-sess-2"))
	states := rec.toPlayer("p2", EventReconnectState)
	require.Len(t, states, 1)
	personal := states[0].data.(*TableState)
	assert.Equal(t, 1, personal.MySeatIndex)
	assert.Len(t, personal.MyHand, 2)
	assert.True(t, r.Snapshot("").Seats[1].Connected)

	// The new session now owns the seat.
	_, err := r.Leave("p2-sess")
	require.ErrorIs(t, err, ErrNotSeated)
	_, err = r.Leave("p2-sess-2")
	require.NoError(t, err)
}

func TestRestoreSeats(t *testing.T) {
	wallet := mustAddress(t)
	r, rec, clk, s := testRoom(t, Config{ID: "table-high-1", Persistent: true, Vault: true})

	ctx := context.Background()
	require.NoError(t, s.SaveSeat(ctx, &store.Seat{
		RoomID: "table-high-1", Address: wallet, Name: "Alice", Seat: 2, Chips: 500, Status: store.SeatOccupied,
	}))
	require.NoError(t, s.SaveSeat(ctx, &store.Seat{
		RoomID: "table-high-1", Address: "bob", Name: "Bob", Seat: 3, Chips: 700, Status: store.SeatReserved,
	}))
	require.NoError(t, s.SaveSeat(ctx, &store.Seat{
		RoomID: "table-high-1", Address: "carol", Name: "Carol", Seat: 4, Chips: 0, Status: store.SeatOccupied,
	}))

	restored, err := r.RestoreSeats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	require.True(t, r.HasPlayer(wallet))
	snap := r.Snapshot("")
	require.NotNil(t, snap.Seats[2])
	assert.Equal(t, int64(500), snap.Seats[2].Chips)
	assert.False(t, snap.Seats[2].Connected)
	assert.Nil(t, snap.Seats[3])
	assert.Nil(t, snap.Seats[4])

	// Disconnected seats never start a game on their own.
	advanceSeconds(t, clk, 5)
	assert.Empty(t, rec.byEvent(EventGameStarted))

	// The revived seat still settles through the vault on removal.
	res, err := r.RemovePlayer(wallet, "test")
	require.NoError(t, err)
	assert.True(t, res.Vault)
	assert.Equal(t, wallet, res.Wallet)
	assert.Equal(t, int64(500), res.Chips)
}

func mustAddress(t *testing.T) string {
	t.Helper()
	keys, err := chain.GenerateKeypair()
	require.NoError(t, err)
	return keys.Address()
}
