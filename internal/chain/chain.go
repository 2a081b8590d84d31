// Package chain talks to the settlement chain. Deposits into room vaults,
// payouts back to player wallets, and withdrawal transfers all go through
// the Client interface; the concrete implementations are an HTTP JSON-RPC
// client for a real node and an in-process simulator for development and
// tests.
package chain

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTxNotFound indicates the transaction id is unknown to the chain.
	ErrTxNotFound = errors.New("chain: transaction not found")

	// ErrInsufficientFunds indicates the sending account cannot cover the
	// transfer.
	ErrInsufficientFunds = errors.New("chain: insufficient funds")

	// ErrUnavailable indicates the node is unreachable. Callers treat this
	// as retryable.
	ErrUnavailable = errors.New("chain: node unavailable")

	// ErrBadSignature indicates an envelope signature or signer mismatch.
	ErrBadSignature = errors.New("chain: bad signature")

	// ErrNonceReplayed indicates a (signer, nonce) pair was submitted twice.
	ErrNonceReplayed = errors.New("chain: nonce replayed")
)

// Tx is a transfer as recorded on chain.
type Tx struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Confirmed bool   `json:"confirmed"`
}

// Client is the chain surface the service needs.
type Client interface {
	// Balance returns the spendable balance of an address.
	Balance(ctx context.Context, address string) (int64, error)

	// Transfer moves amount from the keypair's account to the destination
	// address and returns the transaction id.
	Transfer(ctx context.Context, from *Keypair, to string, amount int64) (string, error)

	// Tx looks up a transaction by id. Returns ErrTxNotFound when the
	// chain has no record of it.
	Tx(ctx context.Context, id string) (*Tx, error)

	// RentExemptMinimum is the balance an account must keep to stay
	// alive. Vault sweeps leave this much behind.
	RentExemptMinimum(ctx context.Context) (int64, error)

	// Health reports whether the node is reachable and synced.
	Health(ctx context.Context) error
}

// txDomain separates transfer signatures from any other ed25519 use of the
// same key.
const txDomain = "goldenflop/tx/v1"

// TypeTransfer routes an envelope to the bank transfer handler.
const TypeTransfer = "bank/transfer"

// TxEnvelope is the signed transaction container submitted to the chain.
type TxEnvelope struct {
	Type   string          `json:"type"`
	Value  json.RawMessage `json:"value"`
	Nonce  string          `json:"nonce"`
	Signer string          `json:"signer"`
	Sig    []byte          `json:"sig"`
}

// TransferTx is the value payload of a TypeTransfer envelope.
type TransferTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// signBytes builds the message an envelope signature covers:
// domain || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value).
func signBytes(typ string, value []byte, nonce, signer string) []byte {
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txDomain)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, txDomain...)
	out = append(out, 0)
	out = append(out, typ...)
	out = append(out, 0)
	out = append(out, nonce...)
	out = append(out, 0)
	out = append(out, signer...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

// NewTransferEnvelope builds and signs a transfer envelope. The nonce is
// random; the chain rejects a (signer, nonce) pair it has seen before.
func NewTransferEnvelope(from *Keypair, to string, amount int64) (*TxEnvelope, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if _, err := DecodeAddress(to); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	value, err := json.Marshal(TransferTx{From: from.Address(), To: to, Amount: amount})
	if err != nil {
		return nil, err
	}
	env := &TxEnvelope{
		Type:   TypeTransfer,
		Value:  value,
		Nonce:  newNonce(),
		Signer: from.Address(),
	}
	env.Sig = from.Sign(signBytes(env.Type, env.Value, env.Nonce, env.Signer))
	return env, nil
}

// Verify checks the envelope signature against the signer address.
func (e *TxEnvelope) Verify() error {
	if e.Nonce == "" || e.Signer == "" {
		return fmt.Errorf("%w: missing nonce or signer", ErrBadSignature)
	}
	if len(e.Sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: sig length %d", ErrBadSignature, len(e.Sig))
	}
	pub, err := DecodeAddress(e.Signer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !ed25519.Verify(pub, signBytes(e.Type, e.Value, e.Nonce, e.Signer), e.Sig) {
		return ErrBadSignature
	}
	return nil
}

// TxID derives the transaction id from the signature, so resubmitting an
// identical signed envelope yields the same id.
func (e *TxEnvelope) TxID() string {
	sum := sha256.Sum256(e.Sig)
	return hex.EncodeToString(sum[:])
}
