package ws

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/easwar16/Golden-Flop-sub000/internal/room"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
	"github.com/easwar16/Golden-Flop-sub000/internal/vault"
)

// Settler pays out a player removed from a room: an on-chain cash-out for
// vault-settled seats, a ledger credit otherwise. It runs outside every room
// lock and reports the outcome to the player with a cash_out_complete event.
// A failed payout still emits the event, with no transaction id, so the
// client knows the chips left the table even though the transfer needs
// operator attention.
type Settler struct {
	logger *log.Logger
	store  *store.Store
	vault  *vault.Engine
	notif  room.Notifier
}

// NewSettler wires a settler. vault may be nil when the chain is not
// configured; vault-settled seats then fail over to the FAILED event.
func NewSettler(logger *log.Logger, st *store.Store, vlt *vault.Engine, notif room.Notifier) *Settler {
	return &Settler{
		logger: logger.WithPrefix("settle"),
		store:  st,
		vault:  vlt,
		notif:  notif,
	}
}

// Settle implements room.SettleFunc.
func (s *Settler) Settle(r *room.Room, leave *room.LeaveResult) {
	if leave == nil || leave.Chips <= 0 {
		return
	}
	ctx := context.Background()

	if leave.Vault && leave.Wallet != "" {
		s.cashOut(ctx, r, leave)
		return
	}

	if err := s.store.Credit(ctx, leave.PlayerID, leave.Chips, store.KindCashOut, r.ID()); err != nil {
		s.logger.Error("Cash-out credit failed", "player", leave.PlayerID, "room", r.ID(), "chips", leave.Chips, "error", err)
		s.notif.ToPlayer(leave.PlayerID, room.EventCashOutComplete, room.CashOutEvent{
			TableID:  r.ID(),
			PlayerID: leave.PlayerID,
			Amount:   leave.Chips,
			Status:   string(store.PayoutFailed),
		})
		return
	}
	s.notif.ToPlayer(leave.PlayerID, room.EventCashOutComplete, room.CashOutEvent{
		TableID:  r.ID(),
		PlayerID: leave.PlayerID,
		Amount:   leave.Chips,
		Status:   string(store.PayoutConfirmed),
	})
}

func (s *Settler) cashOut(ctx context.Context, r *room.Room, leave *room.LeaveResult) {
	if s.vault == nil {
		s.logger.Error("Vault cash-out with no vault engine", "player", leave.PlayerID, "room", r.ID(), "chips", leave.Chips)
		s.notif.ToPlayer(leave.PlayerID, room.EventCashOutComplete, room.CashOutEvent{
			TableID:  r.ID(),
			PlayerID: leave.PlayerID,
			Amount:   leave.Chips,
			Status:   string(store.PayoutFailed),
		})
		return
	}

	payout, capped, err := s.vault.CashOut(ctx, r.ID(), leave.Wallet, leave.SeatRef, leave.Chips)
	if err != nil {
		s.logger.Error("Vault cash-out failed", "player", leave.PlayerID, "room", r.ID(), "wallet", leave.Wallet, "chips", leave.Chips, "error", err)
		s.notif.ToPlayer(leave.PlayerID, room.EventCashOutComplete, room.CashOutEvent{
			TableID:  r.ID(),
			PlayerID: leave.PlayerID,
			Amount:   leave.Chips,
			Status:   string(store.PayoutFailed),
		})
		return
	}
	if capped {
		s.logger.Warn("Cash-out capped by vault balance", "player", leave.PlayerID, "room", r.ID(), "chips", leave.Chips, "paid", payout.Amount)
	}
	s.notif.ToPlayer(leave.PlayerID, room.EventCashOutComplete, room.CashOutEvent{
		TableID:  r.ID(),
		PlayerID: leave.PlayerID,
		Amount:   payout.Amount,
		TxID:     payout.TxID,
		Status:   string(payout.Status),
	})
}
