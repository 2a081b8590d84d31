// Package room hosts the table runtime: seats, reservations, timers, and the
// orchestration of one hand after another on top of the engine. A Room is a
// single-writer domain; every mutation happens under its mutex, and timer
// callbacks re-enter through the same lock. Slow work (on-chain verification,
// payouts) always happens outside the lock, before join or after leave.
package room

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
	"github.com/easwar16/Golden-Flop-sub000/internal/gameid"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

var zeroTime time.Time

var (
	ErrRoomClosed      = errors.New("room is closed")
	ErrRoomFull        = errors.New("table is full")
	ErrSeatTaken       = errors.New("seat is occupied")
	ErrSeatReserved    = errors.New("seat is reserved by another player")
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrAlreadySeated   = errors.New("already seated at this table")
	ErrNotSeated       = errors.New("not seated at this table")
	ErrBuyInRange      = errors.New("buy-in outside table limits")
)

// Store is the durable slice of the room runtime: the seat map of persistent
// rooms, finished hand results, and accrued rake. All methods must be safe
// for concurrent use. Failures on these paths never block gameplay; the room
// logs and moves on.
type Store interface {
	SaveSeat(ctx context.Context, seat *store.Seat) error
	DeleteSeat(ctx context.Context, roomID, address string) error
	RoomSeats(ctx context.Context, roomID string) ([]*store.Seat, error)
	SaveHandResult(ctx context.Context, roomID string, res *engine.Result) error
	AccrueRake(ctx context.Context, roomID string, amount int64) error
}

// Timing collects the room's scheduling constants.
type Timing struct {
	Turn          time.Duration // per-action deadline
	CountdownTick int           // seconds from second player seated to first deal
	Reservation   time.Duration // seat hold while a deposit is in flight
	NextHand      time.Duration // pause between hands
	Runout        time.Duration // pause between auto-run streets
	Showdown      time.Duration // pause before settlement broadcasts
}

// withDefaults fills zero fields with the reference values.
func (t Timing) withDefaults() Timing {
	if t.Turn <= 0 {
		t.Turn = 30 * time.Second
	}
	if t.CountdownTick <= 0 {
		t.CountdownTick = 3
	}
	if t.Reservation <= 0 {
		t.Reservation = 30 * time.Second
	}
	if t.NextHand <= 0 {
		t.NextHand = 5 * time.Second
	}
	if t.Runout <= 0 {
		t.Runout = time.Second
	}
	if t.Showdown <= 0 {
		t.Showdown = 2 * time.Second
	}
	return t
}

// Config describes one table.
type Config struct {
	ID         string
	Name       string
	CreatorID  string
	Persistent bool // survives restarts, seat map durable
	Vault      bool // buy-ins arrive through the room's on-chain vault
	Table      engine.Config
	Timing     Timing

	// RakePercent of each resolved pot goes to the house, bounded by
	// RakeCap when positive. Zero disables rake.
	RakePercent int
	RakeCap     int64

	Logger   *log.Logger
	Clock    quartz.Clock
	Notifier Notifier
	Store    Store

	// History receives every resolved hand for archival. Nil disables
	// recording.
	History HandRecorder
}

// Player is one occupied seat.
type Player struct {
	ID         string
	SessionID  string
	Name       string
	AvatarSeed string
	Wallet     string
	Chips      int64
	Seat       int
	Connected  bool
	Vault      bool   // chips are escrowed in the room vault
	SeatRef    string // stable reference for this sit-down, used as payout ref
}

// reservation is a short-lived hold on an empty seat. The pointer doubles as
// the expiry guard: a timer only releases the exact reservation it was armed
// for.
type reservation struct {
	seat     int
	playerID string
	name     string
	since    time.Time
	timer    *quartz.Timer
}

// LeaveResult is what the caller needs to settle a departed player outside
// the room lock: a vault cash-out for vault-settled seats, a ledger credit
// otherwise.
type LeaveResult struct {
	PlayerID string
	Name     string
	Seat     int
	Chips    int64
	Wallet   string
	Vault    bool
	SeatRef  string
}

// JoinRequest carries everything join needs to seat a player.
type JoinRequest struct {
	PlayerID   string
	SessionID  string
	Name       string
	AvatarSeed string
	Wallet     string
	BuyIn      int64
	Seat       int  // -1 picks the lowest free seat
	Vault      bool // buy-in was escrowed on-chain; requires a live reservation for a named seat
}

// Room is one table. All exported methods lock; unexported helpers assume
// the lock is held.
type Room struct {
	id          string
	name        string
	creatorID   string
	persistent  bool
	vault       bool
	table       engine.Config
	timing      Timing
	rakePercent int
	rakeCap     int64

	logger  *log.Logger
	clock   quartz.Clock
	notif   Notifier
	store   Store
	history HandRecorder

	mu           sync.Mutex
	closed       bool
	seats        map[int]*Player
	reservations map[int]*reservation
	hand         *engine.Hand
	dealerSeat   int
	countdown    int // seconds remaining, 0 when inactive
	turnDeadline time.Time

	countdownGen, turnGen, runoutGen, finishGen, nextGen uint64

	countdownTimer, turnTimer, runoutTimer, finishTimer, nextTimer *quartz.Timer

	// deckFn, when set, overrides the seeded shuffle for the next hand.
	// Test seam only.
	deckFn func() *engine.Deck
}

// NewRoom builds a table from its config. The table config must validate.
func NewRoom(cfg Config) (*Room, error) {
	if cfg.ID == "" {
		return nil, errors.New("room id required")
	}
	if err := cfg.Table.Validate(); err != nil {
		return nil, fmt.Errorf("table config: %w", err)
	}
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
	return &Room{
		id:           cfg.ID,
		name:         cfg.Name,
		creatorID:    cfg.CreatorID,
		persistent:   cfg.Persistent,
		vault:        cfg.Vault,
		table:        cfg.Table,
		timing:       cfg.Timing.withDefaults(),
		rakePercent:  cfg.RakePercent,
		rakeCap:      cfg.RakeCap,
		logger:       logger.WithPrefix("room").With("room", cfg.ID),
		clock:        clock,
		notif:        notif,
		store:        cfg.Store,
		history:      cfg.History,
		seats:        make(map[int]*Player),
		reservations: make(map[int]*reservation),
		dealerSeat:   -1,
	}, nil
}

func (r *Room) ID() string           { return r.id }
func (r *Room) Name() string         { return r.name }
func (r *Room) CreatorID() string    { return r.creatorID }
func (r *Room) Persistent() bool     { return r.persistent }
func (r *Room) Vault() bool          { return r.vault }
func (r *Room) Table() engine.Config { return r.table }

// Empty reports whether no seat is occupied.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seats) == 0
}

// HasPlayer reports whether the player occupies a seat.
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerByID(playerID) != nil
}

// ReserveSeat places a hold on an empty seat for the player. A player holds
// at most one reservation per room; reserving again moves it. The hold lapses
// on its own unless a sit or release ends it first.
func (r *Room) ReserveSeat(playerID, name string, seat int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if seat < 0 || seat >= r.table.MaxPlayers {
		return fmt.Errorf("seat %d out of range", seat)
	}
	if r.playerByID(playerID) != nil {
		return ErrAlreadySeated
	}
	if _, ok := r.seats[seat]; ok {
		return ErrSeatTaken
	}
	if res, ok := r.reservations[seat]; ok && res.playerID != playerID {
		return ErrSeatReserved
	}

	// One reservation per player: drop any prior hold, including a
	// re-reserve of the same seat, which resets the timer.
	r.clearReservationFor(playerID, true)

	res := &reservation{
		seat:     seat,
		playerID: playerID,
		name:     name,
		since:    r.clock.Now(),
	}
	res.timer = r.clock.AfterFunc(r.timing.Reservation, func() {
		r.reservationExpired(seat, res)
	})
	r.reservations[seat] = res

	r.logger.Info("Seat reserved", "player", playerID, "seat", seat)
	r.notif.ToRoom(r.id, EventSeatReserved, SeatReservedEvent{
		TableID:   r.id,
		Seat:      seat,
		PlayerID:  playerID,
		Name:      name,
		ExpiresAt: res.since.Add(r.timing.Reservation),
	})
	r.broadcastState()
	r.notif.LobbyChanged(r.id)
	return nil
}

// ReleaseSeat drops a reservation. Idempotent. When playerID is non-empty the
// release only applies if that player holds the reservation.
func (r *Room) ReleaseSeat(seat int, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[seat]
	if !ok {
		return
	}
	if playerID != "" && res.playerID != playerID {
		return
	}
	r.dropReservation(res, true)
}

// reservationExpired is the release-timer callback. The pointer comparison
// makes a stale fire harmless after the seat was released and re-reserved.
func (r *Room) reservationExpired(seat int, res *reservation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reservations[seat] != res {
		return
	}
	r.logger.Info("Reservation expired", "player", res.playerID, "seat", seat)
	r.dropReservation(res, true)
}

// dropReservation removes a hold and optionally announces the free seat.
func (r *Room) dropReservation(res *reservation, announce bool) {
	if res.timer != nil {
		res.timer.Stop()
	}
	delete(r.reservations, res.seat)
	if announce {
		r.notif.ToRoom(r.id, EventSeatReleased, SeatReleasedEvent{TableID: r.id, Seat: res.seat})
		r.broadcastState()
		r.notif.LobbyChanged(r.id)
	}
}

// clearReservationFor removes the player's reservation anywhere in the room.
func (r *Room) clearReservationFor(playerID string, announce bool) *reservation {
	for _, res := range r.reservations {
		if res.playerID == playerID {
			r.dropReservation(res, announce)
			return res
		}
	}
	return nil
}

// Join seats a player with their buy-in already charged. For a vault join
// naming a seat, the player must still hold the reservation on it; the slow
// on-chain verification between reserve and sit is exactly what the
// reservation protects.
func (r *Room) Join(req JoinRequest) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return -1, ErrRoomClosed
	}
	if r.playerByID(req.PlayerID) != nil {
		return -1, ErrAlreadySeated
	}
	if req.BuyIn < r.table.MinBuyIn || req.BuyIn > r.table.MaxBuyIn {
		return -1, ErrBuyInRange
	}
	if len(r.seats) >= r.table.MaxPlayers {
		return -1, ErrRoomFull
	}

	seat := req.Seat
	switch {
	case seat >= 0:
		if seat >= r.table.MaxPlayers {
			return -1, fmt.Errorf("seat %d out of range", seat)
		}
		if _, ok := r.seats[seat]; ok {
			return -1, ErrSeatTaken
		}
		res := r.reservations[seat]
		if res != nil && res.playerID != req.PlayerID {
			return -1, ErrSeatReserved
		}
		if req.Vault && (res == nil || res.playerID != req.PlayerID) {
			return -1, ErrSeatUnavailable
		}
	default:
		if res := r.reservationFor(req.PlayerID); res != nil {
			seat = res.seat
		} else if seat = r.lowestFreeSeat(); seat < 0 {
			return -1, ErrRoomFull
		}
	}

	// The seat is theirs; the hold has done its job. No broadcast, the
	// join announcement covers the seat.
	if res := r.reservationFor(req.PlayerID); res != nil {
		r.dropReservation(res, res.seat != seat)
	}

	p := &Player{
		ID:         req.PlayerID,
		SessionID:  req.SessionID,
		Name:       req.Name,
		AvatarSeed: req.AvatarSeed,
		Wallet:     req.Wallet,
		Chips:      req.BuyIn,
		Seat:       seat,
		Connected:  true,
		Vault:      req.Vault,
		SeatRef:    gameid.NewReservationID(),
	}
	r.seats[seat] = p

	r.logger.Info("Player joined", "player", p.ID, "name", p.Name, "seat", seat, "buyIn", req.BuyIn, "vault", req.Vault)
	r.notif.ToRoom(r.id, EventPlayerJoined, PlayerJoinedEvent{
		TableID:  r.id,
		Seat:     seat,
		PlayerID: p.ID,
		Name:     p.Name,
		Chips:    p.Chips,
	})
	r.persistSeat(p)
	r.maybeStartCountdown()
	r.broadcastState()
	r.notif.LobbyChanged(r.id)
	return seat, nil
}

// Leave removes the seat owned by the session. Settlement of the returned
// chips is the caller's job, outside the lock.
func (r *Room) Leave(sessionID string) (*LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerBySession(sessionID)
	if p == nil {
		return nil, ErrNotSeated
	}
	return r.removeLocked(p, "left"), nil
}

// RemovePlayer removes a seat by player id, for disconnect-grace expiry and
// administrative kicks.
func (r *Room) RemovePlayer(playerID, reason string) (*LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(playerID)
	if p == nil {
		return nil, ErrNotSeated
	}
	return r.removeLocked(p, reason), nil
}

// removeLocked vacates a seat mid-anything: a completed hand settles first so
// the stack reflects the result, an in-progress hand folds the player out and
// forfeits their committed chips to whoever wins.
func (r *Room) removeLocked(p *Player, reason string) *LeaveResult {
	if h := r.hand; h != nil && h.Complete && h.IndexOf(p.ID) >= 0 {
		r.finishNow()
	}

	chips := p.Chips
	var refund int64
	foldedOut := false
	wasActor := false
	if h := r.hand; h != nil {
		if idx := h.IndexOf(p.ID); idx >= 0 {
			wasActor = h.Active == idx
			n := h.ForceFold(idx)
			r.hand = n
			chips = n.Players[idx].Chips
			refund = n.Players[idx].TotalBet
			foldedOut = true
		}
	}

	delete(r.seats, p.Seat)
	r.logger.Info("Player left", "player", p.ID, "seat", p.Seat, "reason", reason)
	r.notif.ToRoom(r.id, EventPlayerLeft, PlayerLeftEvent{
		TableID:  r.id,
		Seat:     p.Seat,
		PlayerID: p.ID,
		Name:     p.Name,
	})
	r.deleteSeat(p)

	switch {
	case r.hand == nil:
		if r.countdown > 0 && len(r.eligibleSeats()) < 2 {
			r.cancelCountdown()
		}
		r.broadcastState()
	case r.hand.Complete:
		if foldedOut {
			// The fold ended the hand; settle after the usual pause.
			r.stopTurnTimer()
			r.scheduleFinish()
		} else {
			r.broadcastState()
		}
	case len(r.seats) < 2:
		r.cancelHand("not enough players")
		chips += refund
	case foldedOut:
		switch {
		case r.hand.RoundComplete():
			r.stopTurnTimer()
			r.advance()
		case wasActor:
			r.stopTurnTimer()
			r.beginTurn()
		default:
			r.broadcastState()
		}
	default:
		r.broadcastState()
	}

	r.notif.LobbyChanged(r.id)
	return &LeaveResult{
		PlayerID: p.ID,
		Name:     p.Name,
		Seat:     p.Seat,
		Chips:    chips,
		Wallet:   p.Wallet,
		Vault:    p.Vault,
		SeatRef:  p.SeatRef,
	}
}

// Reconnect attaches a fresh session to an existing seat and pushes the
// personalized snapshot the client needs to rebuild its view.
func (r *Room) Reconnect(playerID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(playerID)
	if p == nil {
		return false
	}
	p.SessionID = sessionID
	p.Connected = true
	r.logger.Info("Player reconnected", "player", playerID, "seat", p.Seat)
	r.notif.ToPlayer(playerID, EventReconnectState, r.snapshotFor(playerID))
	r.broadcastState()
	return true
}

// MarkDisconnected flags the session's seat as detached and reports which
// player it belonged to. The caller owns the grace timer.
func (r *Room) MarkDisconnected(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerBySession(sessionID)
	if p == nil {
		return "", false
	}
	p.Connected = false
	r.logger.Info("Player disconnected", "player", p.ID, "seat", p.Seat)
	r.broadcastState()
	return p.ID, true
}

// RestoreSeats loads the persisted seat map, seating each row as a
// disconnected player whose seat revives on reconnect. Only meaningful for
// persistent rooms before they go live.
func (r *Room) RestoreSeats(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.persistent || r.store == nil {
		return 0, nil
	}
	rows, err := r.store.RoomSeats(ctx, r.id)
	if err != nil {
		return 0, fmt.Errorf("restore seats: %w", err)
	}
	restored := 0
	for _, row := range rows {
		if row.Status != store.SeatOccupied || row.Chips <= 0 {
			continue
		}
		if row.Seat < 0 || row.Seat >= r.table.MaxPlayers {
			continue
		}
		if _, taken := r.seats[row.Seat]; taken {
			continue
		}
		p := &Player{
			ID:      row.Address,
			Name:    row.Name,
			Chips:   row.Chips,
			Seat:    row.Seat,
			SeatRef: gameid.NewReservationID(),
		}
		// Vault rooms only seat vault-settled players, so a restored
		// row in one is a wallet owed an on-chain cash-out.
		if r.vault && chain.ValidAddress(row.Address) {
			p.Vault = true
			p.Wallet = row.Address
		}
		r.seats[row.Seat] = p
		restored++
	}
	if restored > 0 {
		r.logger.Info("Restored seats", "count", restored)
	}
	return restored, nil
}

// Close stops every timer and rejects further mutations. In-flight chips are
// not settled here; callers drain seats first if they need payouts.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.cancelCountdown()
	r.stopTurnTimer()
	r.stopTimer(&r.runoutTimer, &r.runoutGen)
	r.stopTimer(&r.finishTimer, &r.finishGen)
	r.stopTimer(&r.nextTimer, &r.nextGen)
	for _, res := range r.reservations {
		if res.timer != nil {
			res.timer.Stop()
		}
	}
	r.reservations = make(map[int]*reservation)
}

// maybeStartCountdown arms the pre-hand countdown once two connected stacks
// are ready and nothing else is running. Restored-but-disconnected seats do
// not count; their owners cannot act.
func (r *Room) maybeStartCountdown() {
	if r.hand != nil || r.countdown > 0 || len(r.eligibleSeats()) < 2 {
		return
	}
	r.countdown = r.timing.CountdownTick
	r.logger.Info("Countdown started", "seconds", r.countdown)
	r.armCountdownTick()
	r.notif.LobbyChanged(r.id)
}

func (r *Room) armCountdownTick() {
	r.countdownGen++
	gen := r.countdownGen
	r.countdownTimer = r.clock.AfterFunc(time.Second, func() {
		r.countdownTick(gen)
	})
}

func (r *Room) countdownTick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.countdownGen || r.countdown <= 0 || r.closed {
		return
	}
	if len(r.eligibleSeats()) < 2 {
		r.cancelCountdown()
		r.broadcastState()
		return
	}
	r.countdown--
	if r.countdown > 0 {
		r.broadcastState()
		r.armCountdownTick()
		return
	}
	r.startHand()
}

func (r *Room) cancelCountdown() {
	r.countdown = 0
	r.stopTimer(&r.countdownTimer, &r.countdownGen)
}

// stopTimer bumps the generation so a concurrent fire becomes a no-op, then
// stops the handle if one is armed.
func (r *Room) stopTimer(t **quartz.Timer, gen *uint64) {
	*gen++
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// phase is the room's externally visible phase.
func (r *Room) phase() engine.Phase {
	switch {
	case r.hand != nil:
		return r.hand.Phase
	case r.countdown > 0:
		return engine.Countdown
	default:
		return engine.Waiting
	}
}

// eligibleSeats lists seats that can be dealt into the next hand, in seat
// order: connected with a positive stack.
func (r *Room) eligibleSeats() []int {
	seats := make([]int, 0, len(r.seats))
	for idx, p := range r.seats {
		if p.Connected && p.Chips > 0 {
			seats = append(seats, idx)
		}
	}
	sort.Ints(seats)
	return seats
}

func (r *Room) lowestFreeSeat() int {
	for seat := 0; seat < r.table.MaxPlayers; seat++ {
		if _, ok := r.seats[seat]; ok {
			continue
		}
		if res, ok := r.reservations[seat]; ok && res != nil {
			continue
		}
		return seat
	}
	return -1
}

func (r *Room) playerByID(playerID string) *Player {
	for _, p := range r.seats {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) playerBySession(sessionID string) *Player {
	if sessionID == "" {
		return nil
	}
	for _, p := range r.seats {
		if p.SessionID == sessionID {
			return p
		}
	}
	return nil
}

func (r *Room) reservationFor(playerID string) *reservation {
	for _, res := range r.reservations {
		if res.playerID == playerID {
			return res
		}
	}
	return nil
}

// persistSeat writes one seat row for a persistent room. Failures are logged
// and swallowed; the durable map is a convenience, not a gameplay dependency.
func (r *Room) persistSeat(p *Player) {
	if r.store == nil || !r.persistent {
		return
	}
	err := r.store.SaveSeat(context.Background(), &store.Seat{
		RoomID:  r.id,
		Address: p.ID,
		Name:    p.Name,
		Seat:    p.Seat,
		Chips:   p.Chips,
		Status:  store.SeatOccupied,
	})
	if err != nil {
		r.logger.Error("Failed to persist seat", "player", p.ID, "error", err)
	}
}

func (r *Room) deleteSeat(p *Player) {
	if r.store == nil || !r.persistent {
		return
	}
	if err := r.store.DeleteSeat(context.Background(), r.id, p.ID); err != nil {
		r.logger.Error("Failed to delete persisted seat", "player", p.ID, "error", err)
	}
}

func (r *Room) persistSeats() {
	for _, p := range r.seats {
		r.persistSeat(p)
	}
}
