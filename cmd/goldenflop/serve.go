package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/easwar16/Golden-Flop-sub000/internal/api"
	"github.com/easwar16/Golden-Flop-sub000/internal/auth"
	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/config"
	"github.com/easwar16/Golden-Flop-sub000/internal/phh"
	"github.com/easwar16/Golden-Flop-sub000/internal/room"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
	"github.com/easwar16/Golden-Flop-sub000/internal/vault"
	"github.com/easwar16/Golden-Flop-sub000/internal/ws"
)

// ServeCmd runs the full service: store, chain client, vault engine, room
// registry, and one HTTP listener carrying both the REST API and the
// websocket endpoint.
type ServeCmd struct {
	Config   string `kong:"short='c',default='golden.hcl',help='Path to HCL configuration file'"`
	Listen   string `kong:"help='Listen address (overrides config)'"`
	LogLevel string `kong:"help='Log level: debug, info, warn, error (overrides config)'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Server.Listen = c.Listen
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := buildLogger(cfg.Server)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	var chainClient chain.Client
	switch cfg.Chain.Mode {
	case "rpc":
		chainClient = chain.NewRPCClient(cfg.Chain.RPCURL)
	default:
		chainClient = chain.NewMemory()
		logger.Warn("Using in-memory chain; on-chain balances reset on restart")
	}

	if err := os.MkdirAll(cfg.Vault.KeyDir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	treasury, err := chain.LoadOrCreateKeypair(cfg.Vault.TreasuryKeyPath())
	if err != nil {
		return fmt.Errorf("load treasury key: %w", err)
	}

	vaultEngine := vault.NewEngine(vault.Config{
		Store:       st,
		Chain:       chainClient,
		Logger:      logger,
		Treasury:    treasury,
		RakeAddress: cfg.Vault.RakeAddress,
		FeeBuffer:   cfg.Chain.FeeBuffer,
		MaxAttempts: cfg.Vault.MaxAttempts,
		RetryBase:   cfg.Vault.RetryBase(),
	})

	secret := []byte(cfg.Server.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate token secret: %w", err)
		}
		logger.Warn("No token_secret configured; wallet logins will not survive a restart")
	}
	tokens := auth.NewTokenService(secret, cfg.Server.TokenTTL())

	hub := ws.NewHub(logger)

	// The settler is built by the websocket server, which needs the
	// registry, which needs the settle hook. The closure breaks the cycle.
	var settler *ws.Settler
	registry := room.NewRegistry(room.RegistryConfig{
		Logger:   logger,
		Notifier: hub,
		Store:    st,
		Grace:    cfg.Timing.Grace(),
		Settle: func(r *room.Room, leave *room.LeaveResult) {
			if settler != nil {
				settler.Settle(r, leave)
			}
		},
	})
	hub.SetLobby(registry.Lobby)

	wsSrv := ws.NewServer(ws.Config{
		Logger:   logger,
		Hub:      hub,
		Registry: registry,
		Store:    st,
		Vault:    vaultEngine,
		Tokens:   tokens,
	})
	settler = wsSrv.Settler()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timing := cfg.Timing.RoomTiming()
	var vaultRooms []string
	var historyWriters []*phh.Writer
	for _, t := range cfg.Tables {
		table := t.EngineConfig()
		if timing.Turn > 0 {
			table.TurnTimeout = timing.Turn
		}
		var recorder room.HandRecorder
		if cfg.Server.HistoryDir != "" {
			w, err := phh.NewWriter(cfg.Server.HistoryDir, t.RoomID(), logger)
			if err != nil {
				return fmt.Errorf("hand history for %s: %w", t.RoomID(), err)
			}
			historyWriters = append(historyWriters, w)
			recorder = w
		}
		rm, err := room.NewRoom(room.Config{
			ID:          t.RoomID(),
			Name:        t.Name,
			Persistent:  true,
			Vault:       t.Vault,
			Table:       table,
			Timing:      timing,
			RakePercent: cfg.Rake.Percent,
			RakeCap:     cfg.Rake.Cap,
			Logger:      logger,
			Notifier:    hub,
			Store:       st,
			History:     recorder,
		})
		if err != nil {
			return fmt.Errorf("table %q: %w", t.Label, err)
		}
		if err := registry.AddRoom(rm); err != nil {
			return fmt.Errorf("table %q: %w", t.Label, err)
		}
		restored, err := rm.RestoreSeats(ctx)
		if err != nil {
			return fmt.Errorf("restore seats for %s: %w", t.RoomID(), err)
		}
		if t.Vault {
			keys, err := chain.LoadOrCreateKeypair(cfg.Vault.RoomKeyPath(t.RoomID()))
			if err != nil {
				return fmt.Errorf("load vault key for %s: %w", t.RoomID(), err)
			}
			vaultEngine.AddVault(t.RoomID(), keys)
			vaultRooms = append(vaultRooms, t.RoomID())
		}
		logger.Info("Table ready",
			"room", t.RoomID(),
			"stakes", fmt.Sprintf("%d/%d", table.SmallBlind, table.BigBlind),
			"vault", t.Vault,
			"restored", restored)
	}

	if err := vaultEngine.RecoverPending(ctx); err != nil {
		logger.Warn("Payout recovery incomplete", "error", err)
	}

	apiSrv := api.NewServer(api.Config{
		Logger:         logger,
		Registry:       registry,
		Store:          st,
		Vault:          vaultEngine,
		Tokens:         tokens,
		WS:             wsSrv,
		AdminToken:     cfg.Server.AdminToken,
		SweepDest:      cfg.Vault.SweepAddress,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           apiSrv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting Golden Flop",
		"addr", cfg.Server.Listen,
		"tables", len(cfg.Tables),
		"chain", cfg.Chain.Mode,
		"store", cfg.Store.Path,
		"treasury", treasury.Address())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if cfg.Vault.RakeAddress == "" || len(vaultRooms) == 0 {
			return nil
		}
		ticker := time.NewTicker(cfg.Vault.RakeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				transferAccruedRake(gctx, logger, st, vaultEngine, vaultRooms, cfg.Vault.MinRakeTransfer)
			}
		}
	})

	err = g.Wait()
	registry.Close()
	// Rooms are stopped, so the writers can drain and close.
	for _, w := range historyWriters {
		w.Close()
	}
	hub.Close()
	return err
}

// transferAccruedRake moves each room's accrued rake on-chain once it passes
// the configured minimum. Failures stay accrued and retry next tick.
func transferAccruedRake(ctx context.Context, logger *log.Logger, st *store.Store, eng *vault.Engine, rooms []string, minTransfer int64) {
	for _, roomID := range rooms {
		accrued, err := st.RakeAccrued(ctx, roomID)
		if err != nil {
			logger.Error("Rake lookup failed", "room", roomID, "error", err)
			continue
		}
		if accrued <= 0 || accrued < minTransfer {
			continue
		}
		moved, err := eng.TransferRake(ctx, roomID)
		if err != nil {
			logger.Warn("Rake transfer failed", "room", roomID, "error", err)
			continue
		}
		if moved > 0 {
			logger.Info("Rake transferred", "room", roomID, "amount", moved)
		}
	}
}

func buildLogger(cfg *config.ServerBlock) (*log.Logger, func(), error) {
	out := io.Writer(os.Stderr)
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger, closeLog, nil
}
