package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/easwar16/Golden-Flop-sub000/sdk"
)

// A railbird watches a table without ever sitting down, printing joins,
// leaves and hand results as they happen.
func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	tableID := flag.String("table", "", "Table id to watch (default: first table in the lobby)")
	flag.Parse()

	if envURL := os.Getenv("GOLDENFLOP_SERVER"); envURL != "" {
		*serverURL = envURL
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id := sdk.Identity{PlayerID: fmt.Sprintf("railbird_%d", os.Getpid()), Name: "railbird"}
	client, err := sdk.Dial(ctx, *serverURL, id, logger)
	if err != nil {
		logger.Fatal("Connect failed", "error", err)
	}
	defer client.Close()

	target := *tableID
	if target == "" {
		tables, err := client.Tables(ctx)
		if err != nil {
			logger.Fatal("Lobby fetch failed", "error", err)
		}
		if len(tables) == 0 {
			logger.Fatal("No tables to watch")
		}
		target = tables[0].ID
	}

	state, err := client.Watch(ctx, target)
	if err != nil {
		logger.Fatal("Watch failed", "table", target, "error", err)
	}
	logger.Info("Watching", "table", target, "phase", state.Phase,
		"blinds", fmt.Sprintf("%d/%d", state.SmallBlind, state.BigBlind))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			return
		case msg, ok := <-client.Events():
			if !ok {
				if err := client.Err(); err != nil {
					logger.Error("Connection lost", "error", err)
				}
				return
			}
			printEvent(logger, target, msg)
		}
	}
}

func printEvent(logger *log.Logger, tableID string, msg *sdk.Message) {
	ev, err := sdk.DecodeEvent(msg)
	if err != nil {
		return
	}

	switch ev := ev.(type) {
	case *sdk.PlayerJoined:
		if ev.TableID == tableID {
			logger.Info("Player joined", "name", ev.Name, "seat", ev.Seat, "chips", ev.Chips)
		}
	case *sdk.PlayerLeft:
		if ev.TableID == tableID {
			logger.Info("Player left", "name", ev.Name, "seat", ev.Seat)
		}
	case *sdk.PlayerKicked:
		if ev.TableID == tableID {
			logger.Info("Player kicked", "player", ev.PlayerID, "seat", ev.Seat, "reason", ev.Reason)
		}
	case *sdk.GameStarted:
		if ev.TableID == tableID {
			logger.Info("Hand dealt", "hand", ev.HandID, "players", ev.Players)
		}
	case *sdk.HandResult:
		if ev.TableID != tableID {
			return
		}
		name := func(id string) string {
			if n, ok := ev.PlayerNames[id]; ok {
				return n
			}
			return id
		}
		for _, w := range ev.Winners {
			if ev.LastStanding {
				logger.Info("Pot taken uncontested", "hand", ev.HandID,
					"winner", name(w.PlayerID), "amount", w.Amount)
			} else {
				logger.Info("Pot won", "hand", ev.HandID,
					"winner", name(w.PlayerID), "amount", w.Amount,
					"with", w.HandName, "board", strings.Join(ev.Board, " "))
			}
		}
		if ev.Rake > 0 {
			logger.Info("Rake taken", "hand", ev.HandID, "amount", ev.Rake)
		}
	}
}
