package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
)

// AccrueRake records rake taken from a pot. The chips stay in the room's
// vault until TransferRake moves them, so small rakes from many hands pool
// into one transfer.
func (e *Engine) AccrueRake(ctx context.Context, roomID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := e.store.AccrueRake(ctx, roomID, amount); err != nil {
		return fmt.Errorf("accrue rake for %s: %w", roomID, err)
	}
	e.logger.Debug("rake accrued", "room", roomID, "amount", amount)
	return nil
}

// TransferRake moves a room's accrued rake from its vault to the configured
// rake address. Accruals below the chain's rent-exempt minimum are left to
// pool; sending less would strand the chips in an account the chain reaps.
// Returns the amount actually transferred.
func (e *Engine) TransferRake(ctx context.Context, roomID string) (int64, error) {
	if e.rakeAddress == "" {
		return 0, nil
	}
	v, err := e.VaultFor(roomID)
	if err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	accrued, err := e.store.RakeAccrued(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if accrued == 0 {
		return 0, nil
	}
	rentExempt, err := e.chain.RentExemptMinimum(ctx)
	if err != nil {
		return 0, err
	}
	if accrued < rentExempt {
		e.logger.Debug("rake pooling below rent-exempt minimum",
			"room", roomID, "accrued", accrued, "minimum", rentExempt)
		return 0, nil
	}

	taken, err := e.store.TakeRake(ctx, roomID)
	if err != nil {
		return 0, err
	}
	res, err := e.transferLocked(ctx, v, e.rakeAddress, taken, true)
	if err != nil {
		// The chips never left the vault. Put them back on the books.
		e.reaccrue(ctx, roomID, taken)
		if errors.Is(err, ErrBelowReserve) {
			return 0, nil
		}
		return 0, err
	}
	if res.capped {
		e.reaccrue(ctx, roomID, taken-res.amount)
	}
	e.logger.Info("rake transferred",
		"room", roomID, "amount", res.amount, "tx", res.txID)
	return res.amount, nil
}

func (e *Engine) reaccrue(ctx context.Context, roomID string, amount int64) {
	if amount <= 0 {
		return
	}
	if err := e.store.AccrueRake(ctx, roomID, amount); err != nil {
		e.logger.Error("failed to restore rake accrual",
			"room", roomID, "amount", amount, "error", err)
	}
}

// SweepResult reports one vault's share of a sweep.
type SweepResult struct {
	RoomID  string `json:"roomId"`
	Address string `json:"address"`
	Balance int64  `json:"balance"`
	Swept   int64  `json:"swept"`
	TxID    string `json:"txId,omitempty"`
}

// Sweep drains every room vault to dest, leaving each vault its reserve.
// Vaults already at or under reserve are reported with Swept zero. This is
// the admin path for decommissioning and for collecting pooled sub-minimum
// rake.
func (e *Engine) Sweep(ctx context.Context, dest string) ([]SweepResult, error) {
	if !chain.ValidAddress(dest) {
		return nil, fmt.Errorf("sweep destination %q is not a valid address", dest)
	}
	var out []SweepResult
	for _, v := range e.allVaults() {
		v.mu.Lock()
		r := SweepResult{RoomID: v.roomID, Address: v.Address()}
		balance, err := e.chain.Balance(ctx, v.Address())
		if err != nil {
			v.mu.Unlock()
			return out, fmt.Errorf("balance of %s: %w", v.roomID, err)
		}
		r.Balance = balance
		res, err := e.transferLocked(ctx, v, dest, balance, true)
		v.mu.Unlock()
		switch {
		case errors.Is(err, ErrBelowReserve):
			// Nothing spendable here.
		case err != nil:
			out = append(out, r)
			return out, fmt.Errorf("sweep %s: %w", v.roomID, err)
		default:
			r.Swept = res.amount
			r.TxID = res.txID
			e.logger.Info("vault swept",
				"room", v.roomID, "amount", res.amount, "tx", res.txID)
		}
		out = append(out, r)
	}
	return out, nil
}
