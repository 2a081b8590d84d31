package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/easwar16/Golden-Flop-sub000/sdk"
)

// A calling station: sits at an off-chain table, checks when free and calls
// when facing a bet, and never raises.
func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	tableID := flag.String("table", "", "Table id to join (default: first off-chain table with an open seat)")
	buyIn := flag.Int64("buyin", 0, "Buy-in amount (default: the table minimum)")
	name := flag.String("name", "", "Display name")
	flag.Parse()

	if envURL := os.Getenv("GOLDENFLOP_SERVER"); envURL != "" {
		*serverURL = envURL
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	playerID := fmt.Sprintf("caller_%04d", rand.Intn(10000))
	display := *name
	if display == "" {
		display = playerID
	}

	client, err := sdk.Dial(ctx, *serverURL, sdk.Identity{PlayerID: playerID, Name: display}, logger)
	if err != nil {
		logger.Fatal("Connect failed", "error", err)
	}
	defer client.Close()

	table, err := pickTable(ctx, client, *tableID)
	if err != nil {
		logger.Fatal("No table to join", "error", err)
	}

	stake := *buyIn
	if stake == 0 {
		stake = table.MinBuyIn
	}

	seat, err := client.Sit(ctx, sdk.SitRequest{
		TableID: table.ID,
		BuyIn:   stake,
		Profile: sdk.Profile{Name: display},
	})
	if err != nil {
		logger.Fatal("Seat refused", "table", table.ID, "error", err)
	}
	logger.Info("Seated", "table", table.ID, "seat", seat, "buyIn", stake)

	run(ctx, logger, client, table.ID, playerID)

	client.Leave(table.ID)
	logger.Info("Left table")
}

// pickTable resolves the table to join. Vault tables need an on-chain
// deposit before sitting, so the default pick skips them.
func pickTable(ctx context.Context, client *sdk.Client, want string) (*sdk.Table, error) {
	tables, err := client.Tables(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		t := &tables[i]
		if want != "" {
			if t.ID == want {
				return t, nil
			}
			continue
		}
		if !t.Vault && t.Seated < t.MaxPlayers {
			return t, nil
		}
	}
	if want != "" {
		return nil, fmt.Errorf("table %s not in the lobby", want)
	}
	return nil, fmt.Errorf("no off-chain table with an open seat")
}

func run(ctx context.Context, logger *log.Logger, client *sdk.Client, tableID, playerID string) {
	var state *sdk.TableState

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client.Events():
			if !ok {
				if err := client.Err(); err != nil {
					logger.Error("Connection lost", "error", err)
				}
				return
			}

			ev, err := sdk.DecodeEvent(msg)
			if err != nil {
				continue
			}
			switch ev := ev.(type) {
			case *sdk.TableState:
				if ev.TableID == tableID {
					state = ev
				}
			case *sdk.TurnStart:
				// The snapshot carrying the live bet arrives before the
				// turn notice, so state is current here.
				if ev.TableID != tableID || state == nil {
					continue
				}
				action := decide(state)
				logger.Info("Acting", "hand", ev.HandID, "action", action)
				client.Act(tableID, action, 0)
			case *sdk.HandResult:
				if ev.TableID == tableID {
					for _, w := range ev.Winners {
						logger.Info("Pot settled", "winner", w.PlayerID, "amount", w.Amount)
					}
				}
			case *sdk.PlayerKicked:
				if ev.TableID == tableID && ev.PlayerID == playerID {
					logger.Info("Kicked from table", "reason", ev.Reason)
					return
				}
			case *sdk.ErrorEvent:
				if ev.TableID == "" || ev.TableID == tableID {
					logger.Warn("Server error", "message", ev.Message)
				}
			}
		}
	}
}

// decide checks when free and calls when facing a bet. A short call is
// treated as all-in by the server, so no stack arithmetic is needed.
func decide(state *sdk.TableState) string {
	toCall := state.CurrentBet
	if state.MySeatIndex >= 0 && state.MySeatIndex < len(state.Seats) {
		if seat := state.Seats[state.MySeatIndex]; seat != nil {
			toCall = state.CurrentBet - seat.CurrentBet
		}
	}
	if toCall > 0 {
		return "call"
	}
	return "check"
}
