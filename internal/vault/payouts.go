package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/easwar16/Golden-Flop-sub000/internal/gameid"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

// CashOut settles a vault-seated player's remaining chips to their wallet.
// ref identifies the seat session so a repeated request finds the existing
// payout instead of paying twice.
//
// The returned payout's Status carries the outcome: the record is created
// PENDING before anything is signed, and ends CONFIRMED, SENT (broadcast but
// not yet seen confirmed), or FAILED. A non-nil error means no new transfer
// was attempted at all (bad arguments, no vault, store write failed, context
// cancelled). capped reports a partial payout under the reserve policy.
func (e *Engine) CashOut(ctx context.Context, roomID, wallet, ref string, chips int64) (payout *store.Payout, capped bool, err error) {
	if chips <= 0 {
		return nil, false, fmt.Errorf("cash out of %d chips", chips)
	}
	v, err := e.VaultFor(roomID)
	if err != nil {
		return nil, false, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// A duplicate request must ride the existing payout.
	if open, err := e.store.OpenPayoutFor(ctx, roomID, wallet); err == nil {
		e.logger.Info("cash out already in flight",
			"room", roomID, "wallet", wallet, "payout", open.ID, "status", open.Status)
		return open, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	payout = &store.Payout{
		ID:      gameid.NewPayoutID(),
		RoomID:  roomID,
		Address: wallet,
		Ref:     ref,
		Chips:   chips,
		Amount:  chips,
		Status:  store.PayoutPending,
	}
	if err := e.store.CreatePayout(ctx, payout); err != nil {
		if errors.Is(err, store.ErrDuplicateTx) {
			if existing, lookupErr := e.store.PayoutByRef(ctx, roomID, wallet, ref); lookupErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("record payout: %w", err)
	}
	e.logger.Info("cash out started",
		"room", roomID, "wallet", wallet, "payout", payout.ID, "chips", chips)

	res, sendErr := e.transferLocked(ctx, v, wallet, payout.Amount, true)
	payout.Attempts = res.attempts
	if sendErr != nil {
		if ctx.Err() != nil {
			// Shutdown mid-payout: leave the record PENDING for recovery.
			payout.LastError = sendErr.Error()
			e.updatePayout(ctx, payout)
			return nil, false, sendErr
		}
		payout.Status = store.PayoutFailed
		payout.LastError = sendErr.Error()
		e.updatePayout(ctx, payout)
		e.logger.Error("cash out failed",
			"room", roomID, "payout", payout.ID, "error", sendErr)
		return payout, res.capped, nil
	}

	payout.Amount = res.amount
	payout.TxID = res.txID
	payout.Status = store.PayoutSent
	if res.confirmed {
		payout.Status = store.PayoutConfirmed
	}
	e.updatePayout(ctx, payout)
	if res.capped {
		e.logger.Warn("cash out capped by vault reserve",
			"room", roomID, "payout", payout.ID, "requested", chips, "paid", res.amount)
	}
	e.logger.Info("cash out settled",
		"room", roomID, "payout", payout.ID, "tx", res.txID, "amount", res.amount, "status", payout.Status)
	return payout, res.capped, nil
}

// updatePayout persists payout state after funds may have moved. A store
// failure here must not abort the caller, only scream.
func (e *Engine) updatePayout(ctx context.Context, p *store.Payout) {
	if err := e.store.UpdatePayout(ctx, p); err != nil {
		e.logger.Error("failed to persist payout state",
			"payout", p.ID, "status", p.Status, "tx", p.TxID, "error", err)
	}
}

// RecoverPending scans for payouts and withdrawals interrupted mid-flight.
// SENT records with a known transaction are confirmed against the chain;
// everything else is logged for operator attention. Nothing is re-sent
// automatically.
func (e *Engine) RecoverPending(ctx context.Context) error {
	sent, err := e.store.PayoutsByStatus(ctx, store.PayoutSent)
	if err != nil {
		return err
	}
	for _, p := range sent {
		if p.TxID != "" && e.isConfirmed(ctx, p.TxID) {
			p.Status = store.PayoutConfirmed
			e.updatePayout(ctx, p)
			e.logger.Info("recovered payout confirmed", "payout", p.ID, "tx", p.TxID)
			continue
		}
		e.logger.Warn("payout sent but unconfirmed, needs operator attention",
			"payout", p.ID, "room", p.RoomID, "wallet", p.Address, "tx", p.TxID)
	}

	pending, err := e.store.PayoutsByStatus(ctx, store.PayoutPending)
	if err != nil {
		return err
	}
	for _, p := range pending {
		e.logger.Warn("payout pending from previous run, needs operator attention",
			"payout", p.ID, "room", p.RoomID, "wallet", p.Address, "amount", p.Amount)
	}

	wds, err := e.store.WithdrawalsByStatus(ctx, store.PayoutSent)
	if err != nil {
		return err
	}
	for _, w := range wds {
		if w.TxID != "" && e.isConfirmed(ctx, w.TxID) {
			w.Status = store.PayoutConfirmed
			if err := e.store.UpdateWithdrawal(ctx, w); err != nil {
				e.logger.Error("failed to persist withdrawal state", "withdrawal", w.ID, "error", err)
			}
			e.logger.Info("recovered withdrawal confirmed", "withdrawal", w.ID, "tx", w.TxID)
			continue
		}
		e.logger.Warn("withdrawal sent but unconfirmed, needs operator attention",
			"withdrawal", w.ID, "wallet", w.Address, "tx", w.TxID)
	}
	return nil
}
