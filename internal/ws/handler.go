package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
	"github.com/easwar16/Golden-Flop-sub000/internal/room"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
	"github.com/easwar16/Golden-Flop-sub000/internal/vault"
)

type joinKey struct {
	playerID string
	roomID   string
}

// Handler executes client commands against the registry, the chip ledger
// and the vault engine. Commands run on the calling session's read loop, so
// a single connection's commands apply in order; chain verification happens
// here, never inside a room lock.
type Handler struct {
	logger   *log.Logger
	registry *room.Registry
	store    *store.Store
	vault    *vault.Engine // nil when the chain is not configured
	settler  *Settler
	hub      *Hub

	mu     sync.Mutex
	joined map[joinKey]struct{}
}

func newHandler(logger *log.Logger, registry *room.Registry, st *store.Store, vlt *vault.Engine, settler *Settler, hub *Hub) *Handler {
	return &Handler{
		logger:   logger.WithPrefix("ws"),
		registry: registry,
		store:    st,
		vault:    vlt,
		settler:  settler,
		hub:      hub,
		joined:   make(map[joinKey]struct{}),
	}
}

// attached runs once per session after the handshake: reattach every seat
// the player holds, then prime the lobby.
func (h *Handler) attached(s *Session) {
	for _, r := range h.registry.Reconnect(s.playerID, s.id) {
		h.hub.subscribe(s, r.ID(), subPlayer)
	}
	s.Send(room.EventTablesList, TablesList{Tables: h.registry.Lobby()})
}

// disconnected runs when the session's read loop exits.
func (h *Handler) disconnected(s *Session) {
	h.hub.detach(s)
	h.registry.Disconnect(s.id)
	h.logger.Info("Session closed", "session", s.id, "player", s.playerID)
}

func (h *Handler) handle(s *Session, msg *Message) {
	s.logger.Debug("Received command", "type", msg.Type, "requestId", msg.RequestID)

	switch msg.Type {
	case CmdGetTables, CmdRequestTables:
		s.respond(room.EventTablesList, msg.RequestID, TablesList{Tables: h.registry.Lobby()})

	case CmdCreateTable:
		var req CreateTableRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed create_table payload")
			return
		}
		h.handleCreateTable(s, msg, req)

	case CmdReserveSeat:
		var req SeatRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed reserve_seat payload")
			return
		}
		r, ok := h.lookup(s, msg, req.TableID)
		if !ok {
			return
		}
		if err := r.ReserveSeat(s.playerID, s.name, req.Seat); err != nil {
			h.replyErr(s, msg, err.Error())
			return
		}
		s.respond(msg.Type, msg.RequestID, OKReply{OK: true})

	case CmdReleaseSeat:
		var req SeatRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed release_seat payload")
			return
		}
		if r, ok := h.registry.Get(req.TableID); ok {
			r.ReleaseSeat(req.Seat, s.playerID)
		}

	case CmdSitAtSeat:
		var req SitRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed sit_at_seat payload")
			return
		}
		h.handleSit(s, msg, req)

	case CmdJoinTable:
		var req JoinTableRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed join_table payload")
			return
		}
		h.handleJoinTable(s, msg, req)

	case CmdLeaveTable:
		var req TableRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed leave_table payload")
			return
		}
		h.handleLeaveTable(s, msg, req)

	case CmdWatchTable:
		var req TableRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed watch_table payload")
			return
		}
		r, ok := h.lookup(s, msg, req.TableID)
		if !ok {
			return
		}
		h.hub.subscribe(s, r.ID(), subWatcher)
		s.respond(room.EventTableState, msg.RequestID, r.Snapshot(s.playerID))

	case CmdPlayerAction:
		var req ActionRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.replyErr(s, msg, "malformed player_action payload")
			return
		}
		r, ok := h.lookup(s, msg, req.TableID)
		if !ok {
			return
		}
		action, err := engine.ParseAction(req.Action)
		if err != nil {
			h.replyErr(s, msg, err.Error())
			return
		}
		r.Act(s.playerID, action, req.Amount)

	case CmdPing:
		s.respond(TypePong, msg.RequestID, PongReply{Time: time.Now()})

	default:
		s.respond(room.EventError, msg.RequestID, room.ErrorEvent{Message: "unknown command: " + msg.Type})
	}
}

func (h *Handler) handleCreateTable(s *Session, msg *Message, req CreateTableRequest) {
	table := engine.Config{
		SmallBlind: req.SmallBlind,
		BigBlind:   req.BigBlind,
		MinBuyIn:   req.MinBuyIn,
		MaxBuyIn:   req.MaxBuyIn,
		MaxPlayers: req.MaxPlayers,
	}
	if table.MaxPlayers == 0 {
		table.MaxPlayers = 6
	}

	r, err := h.registry.CreateRoom(req.Name, s.playerID, table)
	if err != nil {
		h.replyErr(s, msg, err.Error())
		return
	}
	s.respond(msg.Type, msg.RequestID, CreateTableReply{TableID: r.ID()})
}

func (h *Handler) handleSit(s *Session, msg *Message, req SitRequest) {
	r, ok := h.lookup(s, msg, req.TableID)
	if !ok {
		return
	}

	if !h.beginJoin(s.playerID, r.ID()) {
		h.replyErr(s, msg, "join already in progress")
		return
	}
	defer h.endJoin(s.playerID, r.ID())

	name := req.Profile.Name
	if name == "" {
		name = s.name
	}
	jr := room.JoinRequest{
		PlayerID:   s.playerID,
		SessionID:  s.id,
		Name:       name,
		AvatarSeed: req.Profile.AvatarSeed,
		Wallet:     s.wallet,
		BuyIn:      req.BuyIn,
		Seat:       -1,
	}
	if req.Seat != nil {
		jr.Seat = *req.Seat
	}
	if jr.AvatarSeed == "" {
		jr.AvatarSeed = s.avatarSeed
	}

	if r.Vault() {
		if err := h.escrowBuyIn(s, r, &req, name); err != nil {
			h.replyErr(s, msg, err.Error())
			return
		}
		jr.Vault = true
		seatIndex, err := r.Join(jr)
		if err != nil {
			// The deposit stays consumed and any reservation stays held;
			// the player recovers by sitting again with the same txId.
			h.replyErr(s, msg, err.Error())
			return
		}
		h.hub.subscribe(s, r.ID(), subPlayer)
		s.respond(msg.Type, msg.RequestID, SitReply{SeatIndex: seatIndex})
		return
	}

	ctx := context.Background()
	if err := h.store.Debit(ctx, s.playerID, req.BuyIn, store.KindBuyIn, r.ID()); err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			h.replyErr(s, msg, "insufficient balance")
			return
		}
		h.replyErr(s, msg, err.Error())
		return
	}
	seatIndex, err := r.Join(jr)
	if err != nil {
		if cerr := h.store.Credit(ctx, s.playerID, req.BuyIn, store.KindRefund, r.ID()); cerr != nil {
			h.logger.Error("Buy-in refund failed", "player", s.playerID, "room", r.ID(), "amount", req.BuyIn, "error", cerr)
		}
		h.replyErr(s, msg, err.Error())
		return
	}
	h.hub.subscribe(s, r.ID(), subPlayer)
	s.respond(msg.Type, msg.RequestID, SitReply{SeatIndex: seatIndex})
}

// escrowBuyIn clears a vault table buy-in: the named transaction must be a
// confirmed on-chain transfer from the session's wallet to the room vault,
// and each transaction seats exactly one player in one room, ever. Reseating
// on a transaction this player already consumed for this room is allowed so
// a dropped connection cannot strand a deposit.
func (h *Handler) escrowBuyIn(s *Session, r *room.Room, req *SitRequest, name string) error {
	if h.vault == nil {
		return errors.New("vault deposits are not enabled")
	}
	if s.wallet == "" {
		return errors.New("wallet login required for vault tables")
	}
	if req.TxID == "" || req.WalletAddress == "" {
		return errors.New("vault tables require txId and walletAddress")
	}
	if req.WalletAddress != s.wallet {
		return errors.New("walletAddress does not match session wallet")
	}

	ctx := context.Background()
	dep, err := h.store.DepositByTx(ctx, req.TxID)
	if err == nil {
		if dep.Address != s.wallet || dep.RoomID != r.ID() {
			return errors.New("deposit already claimed")
		}
		if dep.Amount < req.BuyIn {
			return fmt.Errorf("deposit %d does not cover buy-in %d", dep.Amount, req.BuyIn)
		}
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deposit lookup: %w", err)
	}

	tx, err := h.vault.VerifyVaultDeposit(ctx, r.ID(), req.TxID, s.wallet, req.BuyIn)
	if err != nil {
		return err
	}
	if err := h.store.UpsertUser(ctx, s.wallet, name); err != nil {
		h.logger.Error("Upsert user failed", "wallet", s.wallet, "error", err)
	}
	if err := h.store.RecordDeposit(ctx, req.TxID, s.wallet, r.ID(), tx.Amount); err != nil {
		if errors.Is(err, store.ErrDuplicateTx) {
			dep, derr := h.store.DepositByTx(ctx, req.TxID)
			if derr == nil && dep.Address == s.wallet && dep.RoomID == r.ID() && dep.Amount >= req.BuyIn {
				return nil
			}
			return errors.New("deposit already claimed")
		}
		return fmt.Errorf("record deposit: %w", err)
	}
	return nil
}

func (h *Handler) handleJoinTable(s *Session, msg *Message, req JoinTableRequest) {
	r, ok := h.lookup(s, msg, req.TableID)
	if !ok {
		return
	}
	if r.Vault() {
		h.replyErr(s, msg, "vault tables require sit_at_seat with a deposit")
		return
	}

	if !h.beginJoin(s.playerID, r.ID()) {
		h.replyErr(s, msg, "join already in progress")
		return
	}
	defer h.endJoin(s.playerID, r.ID())

	name := req.PlayerName
	if name == "" {
		name = s.name
	}

	ctx := context.Background()
	if err := h.store.Debit(ctx, s.playerID, req.BuyIn, store.KindBuyIn, r.ID()); err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			h.replyErr(s, msg, "insufficient balance")
			return
		}
		h.replyErr(s, msg, err.Error())
		return
	}
	if _, err := r.Join(room.JoinRequest{
		PlayerID:   s.playerID,
		SessionID:  s.id,
		Name:       name,
		AvatarSeed: s.avatarSeed,
		Wallet:     s.wallet,
		BuyIn:      req.BuyIn,
		Seat:       -1,
	}); err != nil {
		if cerr := h.store.Credit(ctx, s.playerID, req.BuyIn, store.KindRefund, r.ID()); cerr != nil {
			h.logger.Error("Buy-in refund failed", "player", s.playerID, "room", r.ID(), "amount", req.BuyIn, "error", cerr)
		}
		h.replyErr(s, msg, err.Error())
		return
	}
	h.hub.subscribe(s, r.ID(), subPlayer)
	s.respond(msg.Type, msg.RequestID, nil)
}

func (h *Handler) handleLeaveTable(s *Session, msg *Message, req TableRequest) {
	r, ok := h.lookup(s, msg, req.TableID)
	if !ok {
		return
	}
	res, err := h.registry.Leave(r.ID(), s.id)
	if err != nil {
		h.replyErr(s, msg, err.Error())
		return
	}
	// Settlement does chain I/O; the player_left broadcast already demoted
	// this session to a watcher, so the read loop stays free.
	go h.settler.Settle(r, res)
}

func (h *Handler) lookup(s *Session, msg *Message, tableID string) (*room.Room, bool) {
	r, ok := h.registry.Get(tableID)
	if !ok {
		h.replyErr(s, msg, "unknown table: "+tableID)
		return nil, false
	}
	return r, true
}

func (h *Handler) replyErr(s *Session, msg *Message, text string) {
	s.respond(msg.Type, msg.RequestID, ErrorReply{Error: text})
}

func (h *Handler) beginJoin(playerID, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := joinKey{playerID, roomID}
	if _, busy := h.joined[key]; busy {
		return false
	}
	h.joined[key] = struct{}{}
	return true
}

func (h *Handler) endJoin(playerID, roomID string) {
	h.mu.Lock()
	delete(h.joined, joinKey{playerID, roomID})
	h.mu.Unlock()
}
