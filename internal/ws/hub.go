package ws

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/easwar16/Golden-Flop-sub000/internal/room"
)

// TablesList is the lobby listing payload.
type TablesList struct {
	Tables []room.LobbySnapshot `json:"tables"`
}

type subKind int

const (
	subWatcher subKind = iota
	subPlayer
)

// Hub routes room events to live sessions. It implements room.Notifier, so
// every method may be called with a room lock held and must only enqueue:
// the lobby broadcast in particular runs on the hub's own goroutine because
// building it takes room locks.
type Hub struct {
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session           // session id -> session
	byPlayer map[string]*Session           // player id -> active session
	subs     map[string]map[string]subKind // room id -> session id -> kind
	lobby    func() []room.LobbySnapshot

	kick      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub builds a hub and starts its lobby broadcaster.
func NewHub(logger *log.Logger) *Hub {
	h := &Hub{
		logger:   logger.WithPrefix("ws"),
		sessions: make(map[string]*Session),
		byPlayer: make(map[string]*Session),
		subs:     make(map[string]map[string]subKind),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

// SetLobby installs the lobby snapshot source. The hub exists before the
// registry so rooms can be built with it as their notifier.
func (h *Hub) SetLobby(fn func() []room.LobbySnapshot) {
	h.mu.Lock()
	h.lobby = fn
	h.mu.Unlock()
}

// Close stops the broadcaster and drops every session.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// ToPlayer implements room.Notifier.
func (h *Hub) ToPlayer(playerID, event string, data any) {
	h.mu.Lock()
	s := h.byPlayer[playerID]
	h.mu.Unlock()
	if s != nil {
		s.Send(event, data)
	}
}

// ToRoom implements room.Notifier. A player_left or player_kicked for a
// subscribed player demotes that subscription to watcher so the departed
// player keeps seeing the table until they disconnect or watch elsewhere.
func (h *Hub) ToRoom(roomID, event string, data any) {
	var departed string
	switch ev := data.(type) {
	case room.PlayerLeftEvent:
		departed = ev.PlayerID
	case room.PlayerKickedEvent:
		departed = ev.PlayerID
	}

	h.mu.Lock()
	targets := h.roomSessionsLocked(roomID, false)
	if departed != "" {
		if s := h.byPlayer[departed]; s != nil {
			if kinds, ok := h.subs[roomID]; ok {
				if _, subscribed := kinds[s.id]; subscribed {
					kinds[s.id] = subWatcher
				}
			}
		}
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Send(event, data)
	}
}

// ToWatchers implements room.Notifier.
func (h *Hub) ToWatchers(roomID, event string, data any) {
	h.mu.Lock()
	targets := h.roomSessionsLocked(roomID, true)
	h.mu.Unlock()

	for _, s := range targets {
		s.Send(event, data)
	}
}

// LobbyChanged implements room.Notifier. Coalesces into a single pending
// broadcast; the hub goroutine builds the listing outside any room lock.
func (h *Hub) LobbyChanged(string) {
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case <-h.kick:
			h.broadcastLobby()
		}
	}
}

func (h *Hub) broadcastLobby() {
	h.mu.Lock()
	fn := h.lobby
	h.mu.Unlock()
	if fn == nil {
		return
	}
	listing := TablesList{Tables: fn()}

	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Send(room.EventTablesList, listing)
	}
}

func (h *Hub) roomSessionsLocked(roomID string, watchersOnly bool) []*Session {
	kinds, ok := h.subs[roomID]
	if !ok {
		return nil
	}
	targets := make([]*Session, 0, len(kinds))
	for id, kind := range kinds {
		if watchersOnly && kind != subWatcher {
			continue
		}
		if s, ok := h.sessions[id]; ok {
			targets = append(targets, s)
		}
	}
	return targets
}

// attach registers the session. A newer connection for the same player
// replaces the older one, which is closed.
func (h *Hub) attach(s *Session) {
	h.mu.Lock()
	old := h.byPlayer[s.playerID]
	h.sessions[s.id] = s
	h.byPlayer[s.playerID] = s
	h.mu.Unlock()

	if old != nil && old.id != s.id {
		h.logger.Info("Session replaced", "player", s.playerID, "old", old.id, "new", s.id)
		old.Close()
	}
}

// detach removes the session and all its subscriptions. The byPlayer slot is
// only cleared if this session still owns it.
func (h *Hub) detach(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	if h.byPlayer[s.playerID] == s {
		delete(h.byPlayer, s.playerID)
	}
	for roomID, kinds := range h.subs {
		delete(kinds, s.id)
		if len(kinds) == 0 {
			delete(h.subs, roomID)
		}
	}
	h.mu.Unlock()
}

// subscribe adds the session to a room's fan-out. Subscribing as a watcher
// never demotes an existing player subscription.
func (h *Hub) subscribe(s *Session, roomID string, kind subKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kinds, ok := h.subs[roomID]
	if !ok {
		kinds = make(map[string]subKind)
		h.subs[roomID] = kinds
	}
	if existing, ok := kinds[s.id]; ok && existing == subPlayer && kind == subWatcher {
		return
	}
	kinds[s.id] = kind
}
