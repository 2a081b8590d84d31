package room

import (
	"context"
	"errors"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
	"github.com/easwar16/Golden-Flop-sub000/internal/gameid"
)

// startHand deals a fresh hand to every eligible seat. Callers hold the lock
// and have verified at least two eligible seats.
func (r *Room) startHand() {
	r.countdown = 0
	seats := r.eligibleSeats()
	if len(seats) < 2 {
		r.broadcastState()
		return
	}

	r.dealerSeat = nextDealerSeat(seats, r.dealerSeat)
	players := make([]*engine.Player, 0, len(seats))
	button := 0
	for i, seat := range seats {
		p := r.seats[seat]
		players = append(players, &engine.Player{
			ID:        p.ID,
			Seat:      seat,
			Name:      p.Name,
			Chips:     p.Chips,
			Connected: p.Connected,
		})
		if seat == r.dealerSeat {
			button = i
		}
	}

	var opts []engine.HandOption
	if r.deckFn != nil {
		opts = append(opts, engine.WithDeck(r.deckFn()))
	}
	hand, err := engine.NewHand(gameid.NewHandID(), engine.NewSeed(), players, button, r.table, opts...)
	if err != nil {
		r.logger.Error("Failed to deal hand", "error", err)
		r.broadcastState()
		return
	}
	r.hand = hand

	r.logger.Info("Hand started", "hand", hand.ID, "players", len(players), "dealerSeat", r.dealerSeat)
	r.notif.ToRoom(r.id, EventGameStarted, GameStartedEvent{
		TableID:    r.id,
		HandID:     hand.ID,
		DealerSeat: r.dealerSeat,
		Players:    len(players),
	})
	r.notif.LobbyChanged(r.id)
	r.afterTransition()
}

// nextDealerSeat rotates the button to the next eligible seat after prev.
func nextDealerSeat(seats []int, prev int) int {
	for _, seat := range seats {
		if seat > prev {
			return seat
		}
	}
	return seats[0]
}

// Act applies one player action. Submissions from anyone but the active
// player are dropped silently; engine rejections go back to the actor alone.
func (r *Room) Act(playerID string, action engine.Action, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.hand
	if h == nil || h.Complete {
		return
	}
	if h.ActivePlayerID() != playerID {
		return
	}

	next, err := h.Apply(action, amount)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidAction) {
			r.notif.ToPlayer(playerID, EventError, ErrorEvent{TableID: r.id, Message: err.Error()})
			return
		}
		r.logger.Error("Hand transition failed", "hand", h.ID, "error", err)
		r.cancelHand("internal fault")
		return
	}

	r.stopTurnTimer()
	r.hand = next
	rec := next.Actions[len(next.Actions)-1]
	r.notif.ToPlayer(playerID, EventActionAck, ActionAckEvent{
		TableID: r.id,
		HandID:  next.ID,
		Seq:     rec.Seq,
		Seat:    rec.Seat,
		Action:  rec.Action.String(),
		Amount:  rec.Amount,
	})
	r.afterTransition()
}

// afterTransition routes the hand to its next stage after any engine
// transition: settlement, the next street, or the next actor.
func (r *Room) afterTransition() {
	h := r.hand
	switch {
	case h == nil:
		return
	case h.Complete:
		r.scheduleFinish()
	case h.RoundComplete():
		r.advance()
	default:
		r.beginTurn()
	}
}

// advance collects the settled betting round and deals the next street. When
// nobody is left to act the remaining streets run out on a timer so watchers
// see each card land.
func (r *Room) advance() {
	next, err := r.hand.AdvanceStreet()
	if err != nil {
		r.logger.Error("Street advance failed", "hand", r.hand.ID, "error", err)
		r.cancelHand("internal fault")
		return
	}
	r.hand = next

	switch {
	case next.Complete:
		r.scheduleFinish()
	case next.Active < 0:
		r.broadcastState()
		r.armRunout()
	default:
		r.beginTurn()
	}
}

func (r *Room) armRunout() {
	r.runoutGen++
	gen := r.runoutGen
	r.runoutTimer = r.clock.AfterFunc(r.timing.Runout, func() {
		r.runoutStep(gen)
	})
}

func (r *Room) runoutStep(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.runoutGen || r.hand == nil || r.hand.Complete {
		return
	}
	r.advance()
}

// beginTurn arms the action deadline, publishes the new state, and tells the
// actor their clock is running. The deadline is armed first so the actor's
// snapshot already carries it.
func (r *Room) beginTurn() {
	h := r.hand
	if h == nil || h.Active < 0 {
		r.broadcastState()
		return
	}
	r.turnGen++
	gen := r.turnGen
	r.turnDeadline = r.clock.Now().Add(r.timing.Turn)
	r.turnTimer = r.clock.AfterFunc(r.timing.Turn, func() {
		r.turnExpired(gen)
	})

	actor := h.Players[h.Active]
	r.broadcastState()
	r.notif.ToPlayer(actor.ID, EventTurnStart, TurnStartEvent{
		TableID:   r.id,
		HandID:    h.ID,
		Seat:      actor.Seat,
		TimeoutAt: r.turnDeadline,
	})
}

func (r *Room) stopTurnTimer() {
	r.turnDeadline = zeroTime
	r.stopTimer(&r.turnTimer, &r.turnGen)
}

// turnExpired folds the actor whose clock ran out and moves the hand along.
func (r *Room) turnExpired(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.hand
	if gen != r.turnGen || h == nil || h.Complete || h.Active < 0 {
		return
	}
	p := h.Players[h.Active]
	r.logger.Info("Turn timer expired, auto-folding", "hand", h.ID, "player", p.ID, "seat", p.Seat)
	r.hand = h.ForceFold(h.Active)
	r.turnDeadline = zeroTime
	r.afterTransition()
}

// scheduleFinish pauses before settlement so clients can watch the final
// street land, then resolves.
func (r *Room) scheduleFinish() {
	r.stopTurnTimer()
	r.broadcastState()
	r.finishGen++
	gen := r.finishGen
	r.finishTimer = r.clock.AfterFunc(r.timing.Showdown, func() {
		r.finishAfterPause(gen)
	})
}

func (r *Room) finishAfterPause(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.finishGen || r.hand == nil || !r.hand.Complete {
		return
	}
	r.finishHand()
}

// finishNow settles a completed hand immediately, cancelling the showdown
// pause. Used when a participant leaves before the pause elapses.
func (r *Room) finishNow() {
	r.stopTimer(&r.finishTimer, &r.finishGen)
	if r.hand != nil && r.hand.Complete {
		r.finishHand()
	}
}

// finishHand resolves the completed hand: rake comes off the winners, stacks
// move to the seats, the result goes out and into the store, busted seats
// are kicked, and the next hand is scheduled if the table still has a game.
func (r *Room) finishHand() {
	h := r.hand
	res, err := h.Resolve()
	if err != nil {
		r.logger.Error("Hand resolution failed", "hand", h.ID, "error", err)
		r.cancelHand("internal fault")
		return
	}

	r.applyRake(res)

	won := make(map[string]int64, len(res.Winners))
	for _, w := range res.Winners {
		won[w.PlayerID] += w.Amount
	}
	names := make(map[string]string, len(h.Players))
	for _, ep := range h.Players {
		names[ep.ID] = ep.Name
		seat, ok := r.seats[ep.Seat]
		if !ok || seat.ID != ep.ID {
			continue // left mid-hand
		}
		seat.Chips = ep.Chips + won[ep.ID]
	}

	r.logger.Info("Hand finished", "hand", h.ID, "pot", res.Pot, "rake", res.Rake, "winners", len(res.Winners))
	r.notif.ToRoom(r.id, EventHandResult, HandResultEvent{
		TableID:     r.id,
		Result:      res,
		PlayerNames: names,
	})
	r.hand = nil
	r.stopTimer(&r.runoutTimer, &r.runoutGen)

	r.recordResult(res)
	if r.history != nil {
		r.history.RecordHand(h, res)
	}
	r.persistSeats()
	r.kickBusted()
	r.broadcastState()
	r.notif.LobbyChanged(r.id)

	if len(r.eligibleSeats()) >= 2 {
		r.armNextHand()
	}
}

// applyRake fills res.Rake and deducts it from the winners in proportion to
// their gross shares, remainder charged to the largest share. Winner amounts
// end up net; the pot stays gross.
func (r *Room) applyRake(res *engine.Result) {
	if r.rakePercent <= 0 || len(res.Winners) == 0 {
		return
	}
	_, rake := engine.Rake(res.Pot, r.rakePercent, r.rakeCap)
	if rake <= 0 {
		return
	}
	res.Rake = rake

	var total int64
	for _, w := range res.Winners {
		total += w.Amount
	}
	shares := make([]int64, len(res.Winners))
	var paid int64
	biggest := 0
	for i, w := range res.Winners {
		shares[i] = rake * w.Amount / total
		paid += shares[i]
		if w.Amount > res.Winners[biggest].Amount {
			biggest = i
		}
	}
	shares[biggest] += rake - paid
	for i := range res.Winners {
		res.Winners[i].Amount -= shares[i]
	}
}

// recordResult persists the audit trail and the accrued rake. Both are
// non-critical: failures are logged and play continues.
func (r *Room) recordResult(res *engine.Result) {
	if r.store == nil {
		return
	}
	ctx := context.Background()
	if err := r.store.SaveHandResult(ctx, r.id, res); err != nil {
		r.logger.Error("Failed to record hand result", "hand", res.HandID, "error", err)
	}
	if res.Rake > 0 {
		if err := r.store.AccrueRake(ctx, r.id, res.Rake); err != nil {
			r.logger.Error("Failed to accrue rake", "hand", res.HandID, "error", err)
		}
	}
}

// kickBusted removes seats whose stacks hit zero.
func (r *Room) kickBusted() {
	for seat, p := range r.seats {
		if p.Chips > 0 {
			continue
		}
		delete(r.seats, seat)
		r.logger.Info("Player busted", "player", p.ID, "seat", seat)
		r.notif.ToRoom(r.id, EventPlayerKicked, PlayerKickedEvent{
			TableID:  r.id,
			Seat:     seat,
			PlayerID: p.ID,
			Reason:   "busted",
		})
		r.deleteSeat(p)
	}
}

func (r *Room) armNextHand() {
	r.nextGen++
	gen := r.nextGen
	r.nextTimer = r.clock.AfterFunc(r.timing.NextHand, func() {
		r.nextHand(gen)
	})
}

func (r *Room) nextHand(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.nextGen || r.hand != nil || r.closed {
		return
	}
	if len(r.eligibleSeats()) < 2 {
		return
	}
	r.startHand()
}

// cancelHand abandons an in-progress hand and dissolves the pot back into
// the stacks that built it. Used when the table loses its quorum mid-hand
// and for unrecoverable engine faults.
func (r *Room) cancelHand(reason string) {
	h := r.hand
	if h == nil {
		return
	}
	r.stopTurnTimer()
	r.stopTimer(&r.runoutTimer, &r.runoutGen)
	r.stopTimer(&r.finishTimer, &r.finishGen)

	for _, ep := range h.Players {
		seat, ok := r.seats[ep.Seat]
		if !ok || seat.ID != ep.ID {
			continue
		}
		seat.Chips = ep.Chips + ep.TotalBet
	}
	r.hand = nil
	r.logger.Warn("Hand cancelled", "hand", h.ID, "reason", reason)
	r.persistSeats()
	r.broadcastState()
	r.notif.LobbyChanged(r.id)
	r.maybeStartCountdown()
}
