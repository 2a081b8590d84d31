package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/gameid"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

// VerifyVaultDeposit checks that txID is a confirmed on-chain transfer from
// wallet into the room's vault for at least minAmount. Rooms call this before
// seating a reserved player, so the check happens outside any room lock.
func (e *Engine) VerifyVaultDeposit(ctx context.Context, roomID, txID, wallet string, minAmount int64) (*chain.Tx, error) {
	v, err := e.VaultFor(roomID)
	if err != nil {
		return nil, err
	}
	return e.verifyDeposit(ctx, txID, wallet, v.Address(), minAmount)
}

// VerifyTreasuryDeposit checks a transfer into the treasury, the funding path
// for off-chain ledger credits.
func (e *Engine) VerifyTreasuryDeposit(ctx context.Context, txID, wallet string, minAmount int64) (*chain.Tx, error) {
	if e.treasury == nil {
		return nil, ErrNoTreasury
	}
	return e.verifyDeposit(ctx, txID, wallet, e.treasury.Address(), minAmount)
}

func (e *Engine) verifyDeposit(ctx context.Context, txID, wallet, dest string, minAmount int64) (*chain.Tx, error) {
	tx, err := e.chain.Tx(ctx, txID)
	if err != nil {
		if errors.Is(err, chain.ErrTxNotFound) {
			return nil, fmt.Errorf("%w: transaction %s not found", ErrDepositInvalid, txID)
		}
		return nil, err
	}
	switch {
	case !tx.Confirmed:
		return nil, fmt.Errorf("%w: transaction %s not confirmed", ErrDepositInvalid, txID)
	case tx.From != wallet:
		return nil, fmt.Errorf("%w: sender %s is not %s", ErrDepositInvalid, tx.From, wallet)
	case tx.To != dest:
		return nil, fmt.Errorf("%w: destination %s is not %s", ErrDepositInvalid, tx.To, dest)
	case tx.Amount < minAmount:
		return nil, fmt.Errorf("%w: amount %d below required %d", ErrDepositInvalid, tx.Amount, minAmount)
	}
	return tx, nil
}

// Withdraw debits the player's off-chain balance and pays it out from the
// treasury. The ledger debit happens first so a player cannot spend the
// chips while the transfer is in flight; a failed transfer refunds them.
//
// Unlike vault cash-outs there is no capping: the treasury short of its own
// reserve is an operational fault, not something to paper over with a
// partial payment.
func (e *Engine) Withdraw(ctx context.Context, wallet string, amount int64) (*store.Withdrawal, error) {
	if e.treasury == nil {
		return nil, ErrNoTreasury
	}
	if amount <= 0 {
		return nil, fmt.Errorf("withdraw of %d chips", amount)
	}

	wd := &store.Withdrawal{
		ID:      gameid.NewWithdrawalID(),
		Address: wallet,
		Amount:  amount,
		Status:  store.PayoutPending,
	}
	if err := e.store.Debit(ctx, wallet, amount, store.KindWithdraw, wd.ID); err != nil {
		return nil, err
	}
	if err := e.store.CreateWithdrawal(ctx, wd); err != nil {
		e.refundWithdrawal(ctx, wd)
		return nil, fmt.Errorf("record withdrawal: %w", err)
	}
	e.logger.Info("withdrawal started", "withdrawal", wd.ID, "wallet", wallet, "amount", amount)

	e.treasury.mu.Lock()
	res, sendErr := e.transferLocked(ctx, e.treasury, wallet, amount, false)
	e.treasury.mu.Unlock()
	if sendErr != nil {
		if ctx.Err() != nil {
			wd.LastError = sendErr.Error()
			e.updateWithdrawal(ctx, wd)
			return nil, sendErr
		}
		wd.Status = store.PayoutFailed
		wd.LastError = sendErr.Error()
		e.updateWithdrawal(ctx, wd)
		e.refundWithdrawal(ctx, wd)
		e.logger.Error("withdrawal failed, chips refunded",
			"withdrawal", wd.ID, "wallet", wallet, "error", sendErr)
		return wd, nil
	}

	wd.TxID = res.txID
	wd.Status = store.PayoutSent
	if res.confirmed {
		wd.Status = store.PayoutConfirmed
	}
	e.updateWithdrawal(ctx, wd)
	e.logger.Info("withdrawal settled",
		"withdrawal", wd.ID, "tx", res.txID, "amount", amount, "status", wd.Status)
	return wd, nil
}

func (e *Engine) updateWithdrawal(ctx context.Context, w *store.Withdrawal) {
	if err := e.store.UpdateWithdrawal(ctx, w); err != nil {
		e.logger.Error("failed to persist withdrawal state",
			"withdrawal", w.ID, "status", w.Status, "error", err)
	}
}

func (e *Engine) refundWithdrawal(ctx context.Context, w *store.Withdrawal) {
	if err := e.store.Credit(ctx, w.Address, w.Amount, store.KindRefund, w.ID); err != nil {
		e.logger.Error("failed to refund debited withdrawal",
			"withdrawal", w.ID, "wallet", w.Address, "amount", w.Amount, "error", err)
	}
}
