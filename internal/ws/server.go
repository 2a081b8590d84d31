// Package ws is the WebSocket transport: one session per connection, commands
// dispatched in arrival order, room events fanned out through the Hub.
package ws

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/easwar16/Golden-Flop-sub000/internal/auth"
	"github.com/easwar16/Golden-Flop-sub000/internal/gameid"
	"github.com/easwar16/Golden-Flop-sub000/internal/room"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
	"github.com/easwar16/Golden-Flop-sub000/internal/vault"
)

// Config wires the transport's dependencies. The Hub is created first and
// handed to the room registry as its notifier, then to the server here.
type Config struct {
	Logger   *log.Logger
	Hub      *Hub
	Registry *room.Registry
	Store    *store.Store
	Vault    *vault.Engine      // nil disables vault tables
	Tokens   *auth.TokenService // nil disables wallet sessions
}

// Server upgrades HTTP requests into game sessions.
type Server struct {
	logger   *log.Logger
	hub      *Hub
	handler  *Handler
	settler  *Settler
	tokens   *auth.TokenService
	upgrader websocket.Upgrader
}

// NewServer builds the transport. Mount it wherever the router serves the
// game socket.
func NewServer(cfg Config) *Server {
	settler := NewSettler(cfg.Logger, cfg.Store, cfg.Vault, cfg.Hub)
	return &Server{
		logger:  cfg.Logger.WithPrefix("ws"),
		hub:     cfg.Hub,
		handler: newHandler(cfg.Logger, cfg.Registry, cfg.Store, cfg.Vault, settler, cfg.Hub),
		settler: settler,
		tokens:  cfg.Tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking belongs to the deployment proxy
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Settler exposes the payout path so the registry's disconnect sweep settles
// players the same way a voluntary leave does.
func (s *Server) Settler() *Settler { return s.settler }

// ServeHTTP authenticates the query string and upgrades. Identity is either
// a bearer token naming a wallet or a bare playerId for casual play; requests
// with neither are rejected before the upgrade.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	playerID := q.Get("playerId")
	name := q.Get("name")
	avatarSeed := q.Get("avatarSeed")
	token := q.Get("token")

	var wallet string
	if token != "" {
		if s.tokens == nil {
			http.Error(w, "token login not enabled", http.StatusUnauthorized)
			return
		}
		addr, err := s.tokens.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if playerID != "" && playerID != addr {
			http.Error(w, "playerId does not match token", http.StatusUnauthorized)
			return
		}
		wallet = addr
		playerID = addr
	}
	if playerID == "" {
		http.Error(w, "playerId or token required", http.StatusBadRequest)
		return
	}
	if name == "" {
		name = playerID
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	sess := newSession(gameid.NewSessionID(), playerID, name, avatarSeed, wallet, conn, s.logger, s.handler, s.handler.disconnected)
	s.hub.attach(sess)
	sess.Start()
	s.logger.Info("Client connected", "session", sess.id, "player", playerID, "wallet", wallet != "")
	s.handler.attached(sess)
}
