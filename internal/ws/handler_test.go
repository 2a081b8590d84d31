package ws

import (
	"context"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/easwar16/Golden-Flop-sub000/internal/room"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

// createTable opens an ephemeral 10/20 table and returns its id.
func createTable(t *testing.T, conn *websocket.Conn, name string) string {
	t.Helper()
	send(t, conn, CmdCreateTable, "create-"+name, CreateTableRequest{
		Name:       name,
		SmallBlind: 10,
		BigBlind:   20,
		MinBuyIn:   100,
		MaxBuyIn:   1_000,
	})
	reply := readReply(t, conn, CmdCreateTable, "create-"+name)
	if errText := replyError(t, reply); errText != "" {
		t.Fatalf("create_table failed: %s", errText)
	}
	var created CreateTableReply
	unmarshal(t, reply, &created)
	if created.TableID == "" {
		t.Fatal("create_table returned no table id")
	}
	return created.TableID
}

func creditBalance(t *testing.T, env *testEnv, playerID string, amount int64) {
	t.Helper()
	if err := env.store.Credit(context.Background(), playerID, amount, store.KindDeposit, "test-seed"); err != nil {
		t.Fatalf("credit %s: %v", playerID, err)
	}
}

func balanceOf(t *testing.T, env *testEnv, playerID string) int64 {
	t.Helper()
	bal, err := env.store.Balance(context.Background(), playerID)
	if err != nil {
		t.Fatalf("balance %s: %v", playerID, err)
	}
	return bal
}

func TestCreateTableValidation(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial("playerId=p1&name=Alice")
	readEvent(t, conn, room.EventTablesList)

	send(t, conn, CmdCreateTable, "bad-1", CreateTableRequest{Name: "Broken"})
	reply := readReply(t, conn, CmdCreateTable, "bad-1")
	if replyError(t, reply) == "" {
		t.Fatal("expected error for zero-blind table")
	}

	tableID := createTable(t, conn, "Main")

	send(t, conn, CmdGetTables, "g1", nil)
	listing := readReply(t, conn, room.EventTablesList, "g1")
	var tables TablesList
	unmarshal(t, listing, &tables)
	if len(tables.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables.Tables))
	}
	row := tables.Tables[0]
	if row.ID != tableID || row.Name != "Main" || row.MaxPlayers != 6 {
		t.Errorf("unexpected lobby row: %+v", row)
	}
	if row.Vault || row.Persistent {
		t.Error("player-created tables must be ephemeral off-chain tables")
	}
}

func TestReserveAndSit(t *testing.T) {
	env := newTestEnv(t)
	creditBalance(t, env, "p1", 1_000)

	conn := env.dial("playerId=p1&name=Alice")
	readEvent(t, conn, room.EventTablesList)
	tableID := createTable(t, conn, "Main")

	send(t, conn, CmdWatchTable, "w1", TableRequest{TableID: tableID})
	state := readReply(t, conn, room.EventTableState, "w1")
	var ts room.TableState
	unmarshal(t, state, &ts)
	if ts.MySeatIndex != -1 {
		t.Errorf("watcher should have no seat, got %d", ts.MySeatIndex)
	}

	send(t, conn, CmdReserveSeat, "r1", SeatRequest{TableID: tableID, Seat: 2})

	// Subscribed as a watcher, so the hold is broadcast back to us before
	// the command reply.
	reserved := readEvent(t, conn, room.EventSeatReserved)
	var held room.SeatReservedEvent
	unmarshal(t, reserved, &held)
	if held.Seat != 2 || held.PlayerID != "p1" {
		t.Errorf("unexpected reservation broadcast: %+v", held)
	}

	reply := readReply(t, conn, CmdReserveSeat, "r1")
	var ok OKReply
	unmarshal(t, reply, &ok)
	if !ok.OK {
		t.Fatalf("reserve_seat rejected: %s", replyError(t, reply))
	}

	seat := 2
	send(t, conn, CmdSitAtSeat, "s1", SitRequest{
		TableID: tableID,
		BuyIn:   400,
		Seat:    &seat,
		Profile: Profile{Name: "Alice", AvatarSeed: "alice-7"},
	})

	joined := readEvent(t, conn, room.EventPlayerJoined)
	var pj room.PlayerJoinedEvent
	unmarshal(t, joined, &pj)
	if pj.PlayerID != "p1" || pj.Seat != 2 || pj.Chips != 400 {
		t.Errorf("unexpected player_joined: %+v", pj)
	}

	sitReply := readReply(t, conn, CmdSitAtSeat, "s1")
	var sat SitReply
	unmarshal(t, sitReply, &sat)
	if sat.SeatIndex != 2 {
		t.Fatalf("expected seat 2, got %d (%s)", sat.SeatIndex, replyError(t, sitReply))
	}

	if bal := balanceOf(t, env, "p1"); bal != 600 {
		t.Errorf("expected balance 600 after buy-in, got %d", bal)
	}

	// Sitting twice fails and the second debit is refunded.
	send(t, conn, CmdSitAtSeat, "s2", SitRequest{
		TableID: tableID,
		BuyIn:   100,
		Profile: Profile{Name: "Alice"},
	})
	dupReply := readReply(t, conn, CmdSitAtSeat, "s2")
	if errText := replyError(t, dupReply); !strings.Contains(errText, "seated") {
		t.Errorf("expected already-seated error, got %q", errText)
	}
	if bal := balanceOf(t, env, "p1"); bal != 600 {
		t.Errorf("expected refund back to 600, got %d", bal)
	}
}

func TestSitInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial("playerId=p2&name=Bob")
	readEvent(t, conn, room.EventTablesList)
	tableID := createTable(t, conn, "Main")

	send(t, conn, CmdReserveSeat, "r1", SeatRequest{TableID: tableID, Seat: 1})
	readReply(t, conn, CmdReserveSeat, "r1")

	send(t, conn, CmdSitAtSeat, "s1", SitRequest{
		TableID: tableID,
		BuyIn:   200,
		Profile: Profile{Name: "Bob"},
	})
	reply := readReply(t, conn, CmdSitAtSeat, "s1")
	if errText := replyError(t, reply); errText != "insufficient balance" {
		t.Fatalf("expected insufficient balance, got %q", errText)
	}

	// The failed sit does not touch the reservation.
	send(t, conn, CmdGetTables, "g1", nil)
	listing := readReply(t, conn, room.EventTablesList, "g1")
	var tables TablesList
	unmarshal(t, listing, &tables)
	if len(tables.Tables) != 1 || len(tables.Tables[0].ReservedSeats) != 1 || tables.Tables[0].ReservedSeats[0] != 1 {
		t.Errorf("expected seat 1 still reserved, got %+v", tables.Tables)
	}
}

func TestJoinTableAndLeave(t *testing.T) {
	env := newTestEnv(t)
	creditBalance(t, env, "p1", 500)

	conn := env.dial("playerId=p1&name=Alice")
	readEvent(t, conn, room.EventTablesList)
	tableID := createTable(t, conn, "Main")

	send(t, conn, CmdJoinTable, "j1", JoinTableRequest{TableID: tableID, BuyIn: 300, PlayerName: "Al"})
	reply := readReply(t, conn, CmdJoinTable, "j1")
	if errText := replyError(t, reply); errText != "" {
		t.Fatalf("join_table failed: %s", errText)
	}
	if len(reply.Data) != 0 {
		t.Errorf("join_table success carries no payload, got %s", reply.Data)
	}
	if bal := balanceOf(t, env, "p1"); bal != 200 {
		t.Errorf("expected balance 200 after buy-in, got %d", bal)
	}

	send(t, conn, CmdLeaveTable, "l1", TableRequest{TableID: tableID})

	left := readEvent(t, conn, room.EventPlayerLeft)
	var pl room.PlayerLeftEvent
	unmarshal(t, left, &pl)
	if pl.PlayerID != "p1" {
		t.Errorf("unexpected player_left: %+v", pl)
	}

	cashOut := readEvent(t, conn, room.EventCashOutComplete)
	var co room.CashOutEvent
	unmarshal(t, cashOut, &co)
	if co.Amount != 300 || co.Status != string(store.PayoutConfirmed) || co.TxID != "" {
		t.Errorf("unexpected cash_out_complete: %+v", co)
	}
	if bal := balanceOf(t, env, "p1"); bal != 500 {
		t.Errorf("expected chips back in balance, got %d", bal)
	}
}

func TestLeaveWithoutSeat(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial("playerId=p1&name=Alice")
	readEvent(t, conn, room.EventTablesList)
	tableID := createTable(t, conn, "Main")

	send(t, conn, CmdLeaveTable, "l1", TableRequest{TableID: tableID})
	reply := readReply(t, conn, CmdLeaveTable, "l1")
	if errText := replyError(t, reply); !strings.Contains(errText, "not seated") {
		t.Errorf("expected not-seated error, got %q", errText)
	}

	send(t, conn, CmdLeaveTable, "l2", TableRequest{TableID: "room_nope"})
	reply = readReply(t, conn, CmdLeaveTable, "l2")
	if errText := replyError(t, reply); !strings.Contains(errText, "unknown table") {
		t.Errorf("expected unknown-table error, got %q", errText)
	}
}

func TestWatchTableSeesPlay(t *testing.T) {
	env := newTestEnv(t)
	creditBalance(t, env, "p1", 1_000)

	player := env.dial("playerId=p1&name=Alice")
	readEvent(t, player, room.EventTablesList)
	tableID := createTable(t, player, "Main")

	send(t, player, CmdJoinTable, "j1", JoinTableRequest{TableID: tableID, BuyIn: 400})
	readReply(t, player, CmdJoinTable, "j1")

	watcher := env.dial("playerId=w1&name=Railbird")
	readEvent(t, watcher, room.EventTablesList)

	send(t, watcher, CmdWatchTable, "w1", TableRequest{TableID: tableID})
	state := readReply(t, watcher, room.EventTableState, "w1")
	var ts room.TableState
	unmarshal(t, state, &ts)
	if ts.MySeatIndex != -1 {
		t.Errorf("watcher should have no seat, got %d", ts.MySeatIndex)
	}
	if ts.Seats[0] == nil || ts.Seats[0].PlayerID != "p1" || ts.Seats[0].Chips != 400 {
		t.Errorf("watcher should see the seated player, got %+v", ts.Seats[0])
	}

	// Seat changes reach the watcher as broadcasts.
	creditBalance(t, env, "p2", 1_000)
	second := env.dial("playerId=p2&name=Bob")
	readEvent(t, second, room.EventTablesList)
	send(t, second, CmdJoinTable, "j2", JoinTableRequest{TableID: tableID, BuyIn: 400})
	readReply(t, second, CmdJoinTable, "j2")

	joined := readEvent(t, watcher, room.EventPlayerJoined)
	var pj room.PlayerJoinedEvent
	unmarshal(t, joined, &pj)
	if pj.PlayerID != "p2" {
		t.Errorf("expected p2 join broadcast, got %+v", pj)
	}
}

func TestHandPlaysOverSocket(t *testing.T) {
	env := newTestEnv(t)
	creditBalance(t, env, "p1", 1_000)
	creditBalance(t, env, "p2", 1_000)

	conn1 := env.dial("playerId=p1&name=Alice")
	readEvent(t, conn1, room.EventTablesList)
	conn2 := env.dial("playerId=p2&name=Bob")
	readEvent(t, conn2, room.EventTablesList)

	tableID := createTable(t, conn1, "Main")

	seat0, seat1 := 0, 1
	send(t, conn1, CmdSitAtSeat, "s1", SitRequest{TableID: tableID, BuyIn: 500, Seat: &seat0, Profile: Profile{Name: "Alice"}})
	readReply(t, conn1, CmdSitAtSeat, "s1")
	send(t, conn2, CmdSitAtSeat, "s2", SitRequest{TableID: tableID, BuyIn: 500, Seat: &seat1, Profile: Profile{Name: "Bob"}})
	readReply(t, conn2, CmdSitAtSeat, "s2")

	// Three countdown ticks deal the first hand.
	env.advanceSeconds(3)

	started := readEvent(t, conn1, room.EventGameStarted)
	var gs room.GameStartedEvent
	unmarshal(t, started, &gs)
	if gs.Players != 2 || gs.DealerSeat != 0 {
		t.Fatalf("unexpected game_started: %+v", gs)
	}
	readEvent(t, conn2, room.EventGameStarted)

	// Heads-up: the button posts the small blind and acts first.
	turn := readEvent(t, conn1, room.EventTurnStart)
	var ts room.TurnStartEvent
	unmarshal(t, turn, &ts)
	if ts.Seat != 0 {
		t.Fatalf("expected seat 0 to act first, got %d", ts.Seat)
	}

	send(t, conn1, CmdPlayerAction, "a0", ActionRequest{TableID: tableID, Action: "jump"})
	bad := readReply(t, conn1, CmdPlayerAction, "a0")
	if replyError(t, bad) == "" {
		t.Error("expected error for unparseable action")
	}

	send(t, conn1, CmdPlayerAction, "a1", ActionRequest{TableID: tableID, Action: "call"})
	ack := readEvent(t, conn1, room.EventActionAck)
	var aa room.ActionAckEvent
	unmarshal(t, ack, &aa)
	if aa.Action != "call" || aa.Amount != 20 || aa.Seat != 0 {
		t.Fatalf("unexpected action_ack: %+v", aa)
	}

	turn2 := readEvent(t, conn2, room.EventTurnStart)
	unmarshal(t, turn2, &ts)
	if ts.Seat != 1 {
		t.Fatalf("expected seat 1 to act, got %d", ts.Seat)
	}

	send(t, conn2, CmdPlayerAction, "a2", ActionRequest{TableID: tableID, Action: "fold"})
	ack2 := readEvent(t, conn2, room.EventActionAck)
	unmarshal(t, ack2, &aa)
	if aa.Action != "fold" {
		t.Fatalf("unexpected fold ack: %+v", aa)
	}

	// The result lands after the showdown pause.
	env.advanceSeconds(2)

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		result := readEvent(t, conn, room.EventHandResult)
		var hr room.HandResultEvent
		unmarshal(t, result, &hr)
		if hr.Pot != 40 {
			t.Errorf("expected pot 40, got %d", hr.Pot)
		}
		if len(hr.Winners) != 1 || hr.Winners[0].PlayerID != "p1" || hr.Winners[0].Amount != 40 {
			t.Errorf("expected p1 to win 40, got %+v", hr.Winners)
		}
	}
}
