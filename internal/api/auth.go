package api

import (
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/easwar16/Golden-Flop-sub000/internal/auth"
	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

type nonceRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type nonceReply struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type loginRequest struct {
	WalletAddress string `json:"walletAddress"`
	// Signature is the hex ed25519 signature over the nonce reply's
	// message field, byte for byte.
	Signature string `json:"signature"`
	Name      string `json:"name,omitempty"`
}

type loginReply struct {
	Token string `json:"token"`
}

// handleNonce issues a fresh login challenge, replacing any outstanding one
// for the address.
func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req nonceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !chain.ValidAddress(req.WalletAddress) {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}
	nonce := auth.NewNonce()
	expires := time.Now().Add(auth.NonceTTL)
	if err := s.store.PutLoginNonce(r.Context(), req.WalletAddress, nonce, expires); err != nil {
		s.fail(w, "put login nonce", err)
		return
	}
	writeJSON(w, http.StatusOK, nonceReply{
		Nonce:     nonce,
		Message:   auth.LoginMessage(nonce),
		ExpiresAt: expires,
	})
}

// handleLogin exchanges a signed nonce for a bearer token. The nonce is
// consumed on the attempt, successful or not, so a captured signature
// cannot be replayed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "token login not enabled")
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sig, err := hex.DecodeString(req.Signature)
	if err != nil || len(sig) == 0 {
		writeError(w, http.StatusBadRequest, "signature must be hex")
		return
	}
	nonce, err := s.store.TakeLoginNonce(r.Context(), req.WalletAddress, time.Now())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "no active login nonce")
		return
	}
	if err != nil {
		s.fail(w, "take login nonce", err)
		return
	}
	if err := auth.VerifyLogin(req.WalletAddress, nonce, sig); err != nil {
		s.logger.Warn("Login rejected", "wallet", req.WalletAddress)
		writeError(w, http.StatusUnauthorized, "signature rejected")
		return
	}
	if req.Name != "" {
		if err := s.store.UpsertUser(r.Context(), req.WalletAddress, req.Name); err != nil {
			s.logger.Error("Failed to save user profile", "wallet", req.WalletAddress, "error", err)
		}
	}
	token, err := s.tokens.Issue(req.WalletAddress)
	if err != nil {
		s.fail(w, "issue token", err)
		return
	}
	s.logger.Info("Wallet logged in", "wallet", req.WalletAddress)
	writeJSON(w, http.StatusOK, loginReply{Token: token})
}
