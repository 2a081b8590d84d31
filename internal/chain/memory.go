package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// DefaultRentExemptMinimum is the simulator's account floor.
const DefaultRentExemptMinimum = 890_880

// Memory is an in-process chain for development and tests. It verifies
// envelope signatures and nonces the way a real node would, and supports
// injecting failures to exercise retry paths.
type Memory struct {
	mu          sync.Mutex
	balances    map[string]int64
	txs         map[string]*Tx
	order       []string
	seenNonces  map[string]bool
	rentExempt  int64
	autoConfirm bool
	unavailable bool
	failNext    []error
}

// NewMemory creates an empty simulated chain. Transfers confirm immediately
// until SetAutoConfirm(false).
func NewMemory() *Memory {
	return &Memory{
		balances:    make(map[string]int64),
		txs:         make(map[string]*Tx),
		seenNonces:  make(map[string]bool),
		rentExempt:  DefaultRentExemptMinimum,
		autoConfirm: true,
	}
}

// Fund mints amount to address.
func (m *Memory) Fund(address string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] += amount
}

// SetAutoConfirm controls whether submitted transfers confirm immediately.
func (m *Memory) SetAutoConfirm(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoConfirm = v
}

// Confirm marks a pending transaction confirmed.
func (m *Memory) Confirm(txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[txID]
	if !ok {
		return ErrTxNotFound
	}
	tx.Confirmed = true
	return nil
}

// SetUnavailable makes every call fail with ErrUnavailable until reset.
func (m *Memory) SetUnavailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = v
}

// FailNext queues errs to be returned by the next calls to Transfer, in
// order, before normal processing resumes.
func (m *Memory) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, errs...)
}

// SetRentExemptMinimum overrides the simulator's account floor.
func (m *Memory) SetRentExemptMinimum(v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rentExempt = v
}

// Txs returns the submitted transactions in order. Test helper.
func (m *Memory) Txs() []*Tx {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Tx, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.txs[id]
		out = append(out, &cp)
	}
	return out
}

// Balance implements Client.
func (m *Memory) Balance(_ context.Context, address string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return 0, ErrUnavailable
	}
	return m.balances[address], nil
}

// Transfer implements Client. The envelope is built and verified exactly as
// a node would verify it.
func (m *Memory) Transfer(ctx context.Context, from *Keypair, to string, amount int64) (string, error) {
	env, err := NewTransferEnvelope(from, to, amount)
	if err != nil {
		return "", err
	}
	return m.Submit(ctx, env)
}

// Submit applies a signed transfer envelope.
func (m *Memory) Submit(_ context.Context, env *TxEnvelope) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return "", ErrUnavailable
	}
	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]
		return "", err
	}

	if env.Type != TypeTransfer {
		return "", fmt.Errorf("unknown tx type %q", env.Type)
	}
	if err := env.Verify(); err != nil {
		return "", err
	}
	nonceKey := env.Signer + "/" + env.Nonce
	if m.seenNonces[nonceKey] {
		return "", ErrNonceReplayed
	}

	var value TransferTx
	if err := json.Unmarshal(env.Value, &value); err != nil {
		return "", fmt.Errorf("invalid tx value: %w", err)
	}
	if value.From != env.Signer {
		return "", fmt.Errorf("%w: transfer from %s signed by %s", ErrBadSignature, value.From, env.Signer)
	}
	if m.balances[value.From] < value.Amount {
		return "", fmt.Errorf("%w: %s has %d, needs %d",
			ErrInsufficientFunds, value.From, m.balances[value.From], value.Amount)
	}

	m.seenNonces[nonceKey] = true
	m.balances[value.From] -= value.Amount
	m.balances[value.To] += value.Amount

	id := env.TxID()
	m.txs[id] = &Tx{
		ID:        id,
		From:      value.From,
		To:        value.To,
		Amount:    value.Amount,
		Confirmed: m.autoConfirm,
	}
	m.order = append(m.order, id)
	return id, nil
}

// Tx implements Client.
func (m *Memory) Tx(_ context.Context, id string) (*Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, ErrUnavailable
	}
	tx, ok := m.txs[id]
	if !ok {
		return nil, ErrTxNotFound
	}
	cp := *tx
	return &cp, nil
}

// RentExemptMinimum implements Client.
func (m *Memory) RentExemptMinimum(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return 0, ErrUnavailable
	}
	return m.rentExempt, nil
}

// Health implements Client.
func (m *Memory) Health(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	return nil
}
