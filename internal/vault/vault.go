// Package vault moves money between room vaults, player wallets, and the
// treasury. Every outbound transfer is recorded durably before it is signed,
// serialized per vault, capped by the vault's reserve, and retried with
// backoff on transient chain failures.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/easwar16/Golden-Flop-sub000/internal/chain"
	"github.com/easwar16/Golden-Flop-sub000/internal/store"
)

var (
	// ErrNoVault means the room has no vault keypair configured.
	ErrNoVault = errors.New("vault: no vault for room")

	// ErrNoTreasury means no treasury keypair is configured.
	ErrNoTreasury = errors.New("vault: no treasury configured")

	// ErrBelowReserve means the vault cannot send anything without dipping
	// under its rent-exempt floor plus fee buffer.
	ErrBelowReserve = errors.New("vault: balance below reserve")

	// ErrDepositInvalid means an on-chain deposit failed verification.
	ErrDepositInvalid = errors.New("vault: deposit verification failed")
)

// Defaults for Config zero values.
const (
	DefaultFeeBuffer   = 5_000
	DefaultMaxAttempts = 3
	DefaultRetryBase   = 500 * time.Millisecond
)

// Config wires an Engine.
type Config struct {
	Store  *store.Store
	Chain  chain.Client
	Logger *log.Logger
	Clock  quartz.Clock // nil for the real clock

	// Treasury signs withdrawals and receives non-vault deposits.
	Treasury *chain.Keypair
	// RakeAddress receives rake transfers. Empty disables them.
	RakeAddress string

	FeeBuffer   int64
	MaxAttempts int
	RetryBase   time.Duration
}

// Vault is one room's on-chain account. The mutex serializes every outbound
// transfer signed with its key.
type Vault struct {
	roomID string
	keys   *chain.Keypair
	mu     sync.Mutex
}

// Address is the vault's deposit destination.
func (v *Vault) Address() string {
	return v.keys.Address()
}

// Engine executes the payout lifecycle for all vaults.
type Engine struct {
	store       *store.Store
	chain       chain.Client
	logger      *log.Logger
	clock       quartz.Clock
	treasury    *Vault
	rakeAddress string
	feeBuffer   int64
	maxAttempts int
	retryBase   time.Duration

	mu     sync.Mutex
	vaults map[string]*Vault
}

// NewEngine builds an Engine from cfg, applying defaults for zero values.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		store:       cfg.Store,
		chain:       cfg.Chain,
		logger:      cfg.Logger.WithPrefix("vault"),
		clock:       cfg.Clock,
		rakeAddress: cfg.RakeAddress,
		feeBuffer:   cfg.FeeBuffer,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		vaults:      make(map[string]*Vault),
	}
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	if e.feeBuffer == 0 {
		e.feeBuffer = DefaultFeeBuffer
	}
	if e.maxAttempts == 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.retryBase == 0 {
		e.retryBase = DefaultRetryBase
	}
	if cfg.Treasury != nil {
		e.treasury = &Vault{roomID: "treasury", keys: cfg.Treasury}
	}
	return e
}

// AddVault registers a room's keypair.
func (e *Engine) AddVault(roomID string, keys *chain.Keypair) *Vault {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := &Vault{roomID: roomID, keys: keys}
	e.vaults[roomID] = v
	return v
}

// RemoveVault forgets a room's keypair. Callers sweep remaining funds first.
func (e *Engine) RemoveVault(roomID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vaults, roomID)
}

// VaultFor returns the room's vault, or ErrNoVault.
func (e *Engine) VaultFor(roomID string) (*Vault, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vaults[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoVault, roomID)
	}
	return v, nil
}

// VaultAddress returns the deposit address for a room, or ErrNoVault.
func (e *Engine) VaultAddress(roomID string) (string, error) {
	v, err := e.VaultFor(roomID)
	if err != nil {
		return "", err
	}
	return v.Address(), nil
}

// TreasuryAddress returns the treasury deposit address, or ErrNoTreasury.
func (e *Engine) TreasuryAddress() (string, error) {
	if e.treasury == nil {
		return "", ErrNoTreasury
	}
	return e.treasury.Address(), nil
}

// Balances reports each vault's on-chain balance keyed by room id.
func (e *Engine) Balances(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, v := range e.allVaults() {
		balance, err := e.chain.Balance(ctx, v.Address())
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", v.roomID, err)
		}
		out[v.roomID] = balance
	}
	return out, nil
}

func (e *Engine) allVaults() []*Vault {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Vault, 0, len(e.vaults))
	for _, v := range e.vaults {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].roomID < out[j].roomID })
	return out
}

// sendResult describes one executed transfer.
type sendResult struct {
	txID      string
	amount    int64
	attempts  int
	capped    bool
	confirmed bool
}

// transferLocked signs and broadcasts a transfer from v. The caller must
// hold v.mu. When allowCap is set the amount shrinks to the maximum payable
// above the reserve; otherwise a short vault is an error. Transient chain
// failures retry with exponential backoff up to the attempt budget.
func (e *Engine) transferLocked(ctx context.Context, v *Vault, dest string, amount int64, allowCap bool) (sendResult, error) {
	res := sendResult{}
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		res.attempts = attempt
		if attempt > 1 {
			if err := e.backoff(ctx, attempt); err != nil {
				return res, err
			}
		}

		err := e.attemptTransfer(ctx, v, dest, amount, allowCap, &res)
		if err == nil {
			return res, nil
		}
		if !retryable(err) {
			return res, err
		}
		lastErr = err
		e.logger.Warn("transfer attempt failed",
			"vault", v.roomID, "dest", dest, "attempt", attempt, "error", err)
	}
	return res, fmt.Errorf("attempts exhausted: %w", lastErr)
}

func (e *Engine) attemptTransfer(ctx context.Context, v *Vault, dest string, amount int64, allowCap bool, res *sendResult) error {
	rentExempt, err := e.chain.RentExemptMinimum(ctx)
	if err != nil {
		return err
	}
	balance, err := e.chain.Balance(ctx, v.Address())
	if err != nil {
		return err
	}

	payable := balance - rentExempt - e.feeBuffer
	send := amount
	switch {
	case payable <= 0:
		return fmt.Errorf("%w: balance %d, reserve %d",
			ErrBelowReserve, balance, rentExempt+e.feeBuffer)
	case send > payable && !allowCap:
		return fmt.Errorf("%w: payable %d of %d", ErrBelowReserve, payable, send)
	case send > payable:
		send = payable
		res.capped = true
	}

	txID, err := e.chain.Transfer(ctx, v.keys, dest, send)
	if err != nil {
		return err
	}
	res.txID = txID
	res.amount = send
	res.confirmed = e.isConfirmed(ctx, txID)
	return nil
}

func (e *Engine) backoff(ctx context.Context, attempt int) error {
	delay := e.retryBase << (attempt - 2)
	timer := e.clock.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) isConfirmed(ctx context.Context, txID string) bool {
	tx, err := e.chain.Tx(ctx, txID)
	return err == nil && tx.Confirmed
}

// retryable reports whether a chain error is worth another attempt.
func retryable(err error) bool {
	return errors.Is(err, chain.ErrUnavailable)
}
