package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/room"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
	"github.com/easwar16/Golden-Flop-sub000/internal/vault"
)

type roomsReply struct {
	Tables []room.LobbySnapshot `json:"tables"`
}

type vaultAddressReply struct {
	RoomID  string `json:"roomId"`
	Address string `json:"address"`
}

type vaultDepositRequest struct {
	TxID string `json:"txId"`
}

type vaultDepositReply struct {
	TxID   string `json:"txId"`
	Amount int64  `json:"amount"`
	// Claimed reports that this deposit already bought the caller into
	// this room.
	Claimed bool `json:"claimed"`
}

type sweepRequest struct {
	Destination string `json:"destination,omitempty"`
}

type sweepReply struct {
	Balances map[string]int64    `json:"balances"`
	Swept    []vault.SweepResult `json:"swept"`
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, roomsReply{Tables: s.registry.Lobby()})
}

func (s *Server) handleVaultAddress(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("id")
	if s.vault == nil {
		writeError(w, http.StatusNotFound, "room has no vault")
		return
	}
	addr, err := s.vault.VaultAddress(roomID)
	if errors.Is(err, vault.ErrNoVault) {
		writeError(w, http.StatusNotFound, "room has no vault")
		return
	}
	if err != nil {
		s.fail(w, "vault address", err)
		return
	}
	writeJSON(w, http.StatusOK, vaultAddressReply{RoomID: roomID, Address: addr})
}

// handleVaultDeposit verifies a buy-in transfer before the client spends a
// reservation on it. Verification here claims nothing; the deposit is
// consumed by sit_at_seat.
func (s *Server) handleVaultDeposit(w http.ResponseWriter, r *http.Request, ps httprouter.Params, wallet string) {
	roomID := ps.ByName("id")
	if s.vault == nil {
		writeError(w, http.StatusServiceUnavailable, "on-chain deposits not enabled")
		return
	}
	var req vaultDepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TxID == "" {
		writeError(w, http.StatusBadRequest, "txId required")
		return
	}

	ctx := r.Context()
	dep, err := s.store.DepositByTx(ctx, req.TxID)
	switch {
	case err == nil:
		if dep.Address != wallet || dep.RoomID != roomID {
			writeError(w, http.StatusConflict, "deposit already claimed")
			return
		}
		writeJSON(w, http.StatusOK, vaultDepositReply{TxID: req.TxID, Amount: dep.Amount, Claimed: true})
		return
	case !errors.Is(err, store.ErrNotFound):
		s.fail(w, "look up deposit", err)
		return
	}

	tx, err := s.vault.VerifyVaultDeposit(ctx, roomID, req.TxID, wallet, 1)
	switch {
	case errors.Is(err, vault.ErrNoVault):
		writeError(w, http.StatusNotFound, "room has no vault")
		return
	case errors.Is(err, vault.ErrDepositInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chain.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "chain unavailable")
		return
	case err != nil:
		s.fail(w, "verify vault deposit", err)
		return
	}
	writeJSON(w, http.StatusOK, vaultDepositReply{TxID: req.TxID, Amount: tx.Amount, Claimed: false})
}

// handleSweep reports every vault's balance and drains each above its
// reserve to the destination.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.vault == nil {
		writeError(w, http.StatusServiceUnavailable, "vaults not enabled")
		return
	}
	var req sweepRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	dest := req.Destination
	if dest == "" {
		dest = s.sweepDest
	}
	if !chain.ValidAddress(dest) {
		writeError(w, http.StatusBadRequest, "invalid sweep destination")
		return
	}

	ctx := r.Context()
	balances, err := s.vault.Balances(ctx)
	if errors.Is(err, chain.ErrUnavailable) {
		writeError(w, http.StatusBadGateway, "chain unavailable")
		return
	}
	if err != nil {
		s.fail(w, "vault balances", err)
		return
	}
	swept, err := s.vault.Sweep(ctx, dest)
	if err != nil {
		s.logger.Error("Sweep failed", "dest", dest, "error", err)
		writeError(w, http.StatusBadGateway, "sweep failed: "+err.Error())
		return
	}
	s.logger.Info("Vaults swept", "dest", dest, "vaults", len(swept))
	writeJSON(w, http.StatusOK, sweepReply{Balances: balances, Swept: swept})
}

// decodeOptionalJSON reads a body that may be absent entirely.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "malformed request body")
	return false
}
