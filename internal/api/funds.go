package api

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
	"github.com/easwar16/Golden-Flop-sub000/internal/vault"
)

type depositNotifyRequest struct {
	TxID string `json:"txId"`
}

type depositReply struct {
	TxID     string `json:"txId"`
	Amount   int64  `json:"amount"`
	Balance  int64  `json:"balance"`
	Credited bool   `json:"credited"`
}

type withdrawRequest struct {
	Amount int64 `json:"amount"`
}

type withdrawReply struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
	TxID   string `json:"txId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleDepositNotify credits the caller's off-chain balance for a confirmed
// transfer into the treasury. Idempotent by txId: a repeat notification
// reports the standing balance without crediting again.
func (s *Server) handleDepositNotify(w http.ResponseWriter, r *http.Request, _ httprouter.Params, wallet string) {
	if s.vault == nil {
		writeError(w, http.StatusServiceUnavailable, "on-chain deposits not enabled")
		return
	}
	var req depositNotifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TxID == "" {
		writeError(w, http.StatusBadRequest, "txId required")
		return
	}

	ctx := r.Context()
	tx, err := s.vault.VerifyTreasuryDeposit(ctx, req.TxID, wallet, 1)
	switch {
	case errors.Is(err, vault.ErrDepositInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, vault.ErrNoTreasury):
		writeError(w, http.StatusServiceUnavailable, "treasury not configured")
		return
	case errors.Is(err, chain.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "chain unavailable")
		return
	case err != nil:
		s.fail(w, "verify treasury deposit", err)
		return
	}

	credited := true
	err = s.store.CreditDeposit(ctx, req.TxID, wallet, "", tx.Amount)
	if errors.Is(err, store.ErrDuplicateTx) {
		credited = false
	} else if err != nil {
		s.fail(w, "credit deposit", err)
		return
	}
	balance, err := s.store.Balance(ctx, wallet)
	if err != nil {
		s.fail(w, "read balance", err)
		return
	}
	if credited {
		s.logger.Info("Deposit credited", "wallet", wallet, "tx", req.TxID, "amount", tx.Amount)
	}
	writeJSON(w, http.StatusOK, depositReply{
		TxID:     req.TxID,
		Amount:   tx.Amount,
		Balance:  balance,
		Credited: credited,
	})
}

// handleWithdraw debits the caller's balance and pays it out from the
// treasury. A withdrawal that fails on-chain comes back with status FAILED
// and the chips already refunded.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params, wallet string) {
	if s.vault == nil {
		writeError(w, http.StatusServiceUnavailable, "withdrawals not enabled")
		return
	}
	var req withdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	wd, err := s.vault.Withdraw(r.Context(), wallet, req.Amount)
	switch {
	case errors.Is(err, store.ErrInsufficientBalance):
		writeError(w, http.StatusBadRequest, "insufficient balance")
		return
	case errors.Is(err, vault.ErrNoTreasury):
		writeError(w, http.StatusServiceUnavailable, "treasury not configured")
		return
	case err != nil:
		s.fail(w, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawReply{
		ID:     wd.ID,
		Amount: wd.Amount,
		Status: string(wd.Status),
		TxID:   wd.TxID,
		Error:  wd.LastError,
	})
}
