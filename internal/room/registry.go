package room

import (
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
	"github.com/easwar16/Golden-Flop-sub000/internal/gameid"
)

// ErrUnknownRoom is returned for commands naming a room id that is not
// registered.
var ErrUnknownRoom = errors.New("unknown room")

// SettleFunc pays out a removed player: a vault cash-out for vault-settled
// seats, a ledger credit otherwise. The registry calls it on its own
// goroutine with no locks held.
type SettleFunc func(room *Room, leave *LeaveResult)

// RegistryConfig wires the registry's dependencies.
type RegistryConfig struct {
	Logger   *log.Logger
	Clock    quartz.Clock
	Notifier Notifier
	Store    Store

	// Grace is how long a disconnected player keeps their seat. Empty
	// ephemeral rooms linger for the same window before removal.
	Grace time.Duration

	// Settle handles payouts for seats the registry removes on its own
	// (disconnect-grace expiry). Voluntary leaves return their
	// LeaveResult to the caller instead.
	Settle SettleFunc
}

type timerEntry struct {
	gen   uint64
	timer *quartz.Timer
}

type graceKey struct {
	roomID   string
	playerID string
}

// Registry is the set of live rooms plus the cross-room timers: disconnect
// grace and empty-ephemeral-room cleanup.
type Registry struct {
	logger *log.Logger
	base   *log.Logger
	clock  quartz.Clock
	notif  Notifier
	store  Store
	grace  time.Duration
	settle SettleFunc

	mu       sync.Mutex
	gen      uint64
	rooms    map[string]*Room
	graces   map[graceKey]*timerEntry
	cleanups map[string]*timerEntry
}

// NewRegistry builds an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	notif := cfg.Notifier
	if notif == nil {
		notif = nopNotifier{}
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = 60 * time.Second
	}
	return &Registry{
		logger:   logger.WithPrefix("registry"),
		base:     logger,
		clock:    clock,
		notif:    notif,
		store:    cfg.Store,
		grace:    grace,
		settle:   cfg.Settle,
		rooms:    make(map[string]*Room),
		graces:   make(map[graceKey]*timerEntry),
		cleanups: make(map[string]*timerEntry),
	}
}

// AddRoom registers a prebuilt room, typically a persistent table from the
// server config.
func (reg *Registry) AddRoom(room *Room) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[room.ID()]; ok {
		return errors.New("room id already registered")
	}
	reg.rooms[room.ID()] = room
	reg.notif.LobbyChanged(room.ID())
	return nil
}

// CreateRoom builds and registers an ephemeral player-created table. These
// are always off-chain and unraked, and disappear once empty.
func (reg *Registry) CreateRoom(name, creatorID string, table engine.Config) (*Room, error) {
	room, err := NewRoom(Config{
		ID:        gameid.NewRoomID(),
		Name:      name,
		CreatorID: creatorID,
		Table:     table,
		Logger:    reg.base,
		Clock:     reg.clock,
		Notifier:  reg.notif,
		Store:     reg.store,
	})
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	reg.rooms[room.ID()] = room
	reg.mu.Unlock()

	reg.logger.Info("Room created", "room", room.ID(), "name", name, "creator", creatorID)
	reg.notif.LobbyChanged(room.ID())
	return room, nil
}

// Get looks up a room by id.
func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	return room, ok
}

// Rooms returns the registered rooms in id order.
func (reg *Registry) Rooms() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.roomsLocked()
}

func (reg *Registry) roomsLocked() []*Room {
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID() < rooms[j].ID() })
	return rooms
}

// Lobby snapshots every room for the table listing.
func (reg *Registry) Lobby() []LobbySnapshot {
	rooms := reg.Rooms()
	out := make([]LobbySnapshot, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.LobbyInfo())
	}
	return out
}

// Leave removes the session's seat from the room and returns what the caller
// must settle. The caller performs the payout or ledger credit itself,
// outside any room lock.
func (reg *Registry) Leave(roomID, sessionID string) (*LeaveResult, error) {
	room, ok := reg.Get(roomID)
	if !ok {
		return nil, ErrUnknownRoom
	}
	res, err := room.Leave(sessionID)
	if err != nil {
		return nil, err
	}
	reg.cancelGrace(roomID, res.PlayerID)
	reg.noteMaybeEmpty(room)
	return res, nil
}

// Disconnect marks the session's seats detached in every room and starts the
// grace timers that will vacate them absent a reconnect.
func (reg *Registry) Disconnect(sessionID string) {
	for _, room := range reg.Rooms() {
		if playerID, ok := room.MarkDisconnected(sessionID); ok {
			reg.armGrace(room, playerID)
		}
	}
}

// Reconnect reattaches a player to every room they occupy and cancels their
// grace timers. Returns the rooms restored.
func (reg *Registry) Reconnect(playerID, sessionID string) []*Room {
	var attached []*Room
	for _, room := range reg.Rooms() {
		if room.Reconnect(playerID, sessionID) {
			reg.cancelGrace(room.ID(), playerID)
			attached = append(attached, room)
		}
	}
	return attached
}

// Close shuts down every room and cancels all registry timers.
func (reg *Registry) Close() {
	reg.mu.Lock()
	for _, e := range reg.graces {
		e.timer.Stop()
	}
	reg.graces = make(map[graceKey]*timerEntry)
	for _, e := range reg.cleanups {
		e.timer.Stop()
	}
	reg.cleanups = make(map[string]*timerEntry)
	rooms := reg.roomsLocked()
	reg.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}

func (reg *Registry) armGrace(room *Room, playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := graceKey{roomID: room.ID(), playerID: playerID}
	if e, ok := reg.graces[key]; ok {
		e.timer.Stop()
	}
	reg.gen++
	gen := reg.gen
	entry := &timerEntry{gen: gen}
	entry.timer = reg.clock.AfterFunc(reg.grace, func() {
		reg.graceExpired(key, gen)
	})
	reg.graces[key] = entry
}

func (reg *Registry) cancelGrace(roomID, playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := graceKey{roomID: roomID, playerID: playerID}
	if e, ok := reg.graces[key]; ok {
		e.timer.Stop()
		delete(reg.graces, key)
	}
}

func (reg *Registry) graceExpired(key graceKey, gen uint64) {
	reg.mu.Lock()
	e, ok := reg.graces[key]
	if !ok || e.gen != gen {
		reg.mu.Unlock()
		return
	}
	delete(reg.graces, key)
	room := reg.rooms[key.roomID]
	reg.mu.Unlock()

	if room == nil {
		return
	}
	res, err := room.RemovePlayer(key.playerID, "disconnect timeout")
	if err != nil {
		return
	}
	reg.logger.Info("Disconnect grace expired, seat removed",
		"room", key.roomID, "player", key.playerID, "chips", res.Chips)
	reg.noteMaybeEmpty(room)
	if reg.settle != nil && res.Chips > 0 {
		go reg.settle(room, res)
	}
}

// noteMaybeEmpty schedules removal of an ephemeral room that just emptied.
// The check re-runs when the timer fires, so a player joining in between
// keeps the room alive.
func (reg *Registry) noteMaybeEmpty(room *Room) {
	if room.Persistent() || !room.Empty() {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()

	id := room.ID()
	if e, ok := reg.cleanups[id]; ok {
		e.timer.Stop()
	}
	reg.gen++
	gen := reg.gen
	entry := &timerEntry{gen: gen}
	entry.timer = reg.clock.AfterFunc(reg.grace, func() {
		reg.cleanupExpired(id, gen)
	})
	reg.cleanups[id] = entry
}

func (reg *Registry) cleanupExpired(id string, gen uint64) {
	reg.mu.Lock()
	e, ok := reg.cleanups[id]
	if !ok || e.gen != gen {
		reg.mu.Unlock()
		return
	}
	delete(reg.cleanups, id)
	room := reg.rooms[id]
	if room == nil || room.Persistent() || !room.Empty() {
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, id)
	reg.mu.Unlock()

	room.Close()
	reg.logger.Info("Empty room removed", "room", id)
	reg.notif.LobbyChanged(id)
}

// LobbySnapshot is one row of the table listing.
type LobbySnapshot struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	CreatorID     string       `json:"creatorId,omitempty"`
	SmallBlind    int64        `json:"smallBlind"`
	BigBlind      int64        `json:"bigBlind"`
	MinBuyIn      int64        `json:"minBuyIn"`
	MaxBuyIn      int64        `json:"maxBuyIn"`
	MaxPlayers    int          `json:"maxPlayers"`
	Seated        int          `json:"seated"`
	Phase         engine.Phase `json:"phase"`
	OccupiedSeats []int        `json:"occupiedSeats"`
	ReservedSeats []int        `json:"reservedSeats"`
	Token         string       `json:"token,omitempty"`
	Premium       bool         `json:"premium,omitempty"`
	Vault         bool         `json:"vault"`
	Persistent    bool         `json:"persistent"`
}

// LobbyInfo summarizes the room for the lobby listing.
func (r *Room) LobbyInfo() LobbySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	occupied := make([]int, 0, len(r.seats))
	for seat := range r.seats {
		occupied = append(occupied, seat)
	}
	sort.Ints(occupied)
	reserved := make([]int, 0, len(r.reservations))
	for seat := range r.reservations {
		reserved = append(reserved, seat)
	}
	sort.Ints(reserved)

	return LobbySnapshot{
		ID:            r.id,
		Name:          r.name,
		CreatorID:     r.creatorID,
		SmallBlind:    r.table.SmallBlind,
		BigBlind:      r.table.BigBlind,
		MinBuyIn:      r.table.MinBuyIn,
		MaxBuyIn:      r.table.MaxBuyIn,
		MaxPlayers:    r.table.MaxPlayers,
		Seated:        len(r.seats),
		Phase:         r.phase(),
		OccupiedSeats: occupied,
		ReservedSeats: reserved,
		Token:         r.table.Token,
		Premium:       r.table.Premium,
		Vault:         r.vault,
		Persistent:    r.persistent,
	}
}
