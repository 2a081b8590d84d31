// Package api is the rate-limited REST surface beside the websocket
// transport: wallet login, treasury deposit notification, withdrawals,
// room and vault lookups, and the admin sweep.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/easwar16/Golden-Flop-sub000/internal/auth"
	"github.com/easwar16/Golden-Flop-sub000/internal/room"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
	"github.com/easwar16/Golden-Flop-sub000/internal/vault"
)

// Per-IP token buckets. Login endpoints get the tight bucket: they do
// signature work and write nonce rows.
const (
	apiRate   = 5 // requests per second
	apiBurst  = 10
	authRate  = 1
	authBurst = 5
)

const maxBodyBytes = 64 << 10

// Config wires a Server.
type Config struct {
	Logger   *log.Logger
	Registry *room.Registry
	Store    *store.Store

	// Vault may be nil when no chain is configured; the deposit,
	// withdrawal, and vault routes then report the feature as disabled.
	Vault *vault.Engine

	// Tokens verifies bearer credentials and signs login tokens. Nil
	// disables login and every authenticated route.
	Tokens *auth.TokenService

	// WS is mounted at /ws so one listener serves both surfaces.
	WS http.Handler

	// AdminToken guards /api/admin. Empty disables the admin routes.
	AdminToken string

	// SweepDest receives admin sweeps when the request names none.
	SweepDest string

	// AllowedOrigins restricts CORS. Empty allows any origin, matching
	// the websocket upgrade policy.
	AllowedOrigins []string
}

// Server is the REST handler. It implements http.Handler.
type Server struct {
	logger     *log.Logger
	registry   *room.Registry
	store      *store.Store
	vault      *vault.Engine
	tokens     *auth.TokenService
	adminToken string
	sweepDest  string

	apiLimit  *ipLimiter
	authLimit *ipLimiter
	handler   http.Handler
}

// NewServer builds the routed, CORS-wrapped REST server.
func NewServer(cfg Config) *Server {
	s := &Server{
		logger:     cfg.Logger.WithPrefix("api"),
		registry:   cfg.Registry,
		store:      cfg.Store,
		vault:      cfg.Vault,
		tokens:     cfg.Tokens,
		adminToken: cfg.AdminToken,
		sweepDest:  cfg.SweepDest,
		apiLimit:   newIPLimiter(apiRate, apiBurst),
		authLimit:  newIPLimiter(authRate, authBurst),
	}

	r := httprouter.New()
	r.POST("/api/auth/nonce", s.limit(s.authLimit, s.handleNonce))
	r.POST("/api/auth/login", s.limit(s.authLimit, s.handleLogin))
	r.GET("/api/rooms", s.limit(s.apiLimit, s.handleRooms))
	r.GET("/api/rooms/:id/vault", s.limit(s.apiLimit, s.handleVaultAddress))
	r.POST("/api/rooms/:id/vault/deposit", s.limit(s.apiLimit, s.authed(s.handleVaultDeposit)))
	r.POST("/api/deposit/notify", s.limit(s.apiLimit, s.authed(s.handleDepositNotify)))
	r.POST("/api/withdraw", s.limit(s.apiLimit, s.authed(s.handleWithdraw)))
	r.POST("/api/admin/sweep", s.admin(s.handleSweep))
	r.GET("/healthz", s.handleHealth)
	if cfg.WS != nil {
		r.Handler(http.MethodGet, "/ws", cfg.WS)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	s.handler = c.Handler(r)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth is the liveness probe. It bypasses the rate limiter.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// limit rejects the request with 429 once the client's bucket is empty.
func (s *Server) limit(l *ipLimiter, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !l.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		h(w, r, ps)
	}
}

// walletHandle is a handler that additionally receives the authenticated
// wallet address.
type walletHandle func(http.ResponseWriter, *http.Request, httprouter.Params, string)

// authed resolves the bearer token to a wallet address before calling h.
func (s *Server) authed(h walletHandle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if s.tokens == nil {
			writeError(w, http.StatusServiceUnavailable, "token login not enabled")
			return
		}
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		wallet, err := s.tokens.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		h(w, r, ps, wallet)
	}
}

// admin gates a route behind the configured admin token.
func (s *Server) admin(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if s.adminToken == "" {
			writeError(w, http.StatusForbidden, "admin interface disabled")
			return
		}
		got := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "bad admin token")
			return
		}
		h(w, r, ps)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.logger.Error("Request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// clientIP keys the rate limiter. Proxies are the deployment's problem;
// forwarding headers are attacker-controlled and are not consulted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorReply struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorReply{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
