package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// JSON-RPC error codes the node returns for conditions callers branch on.
const (
	rpcCodeTxNotFound        = -32001
	rpcCodeInsufficientFunds = -32002
	rpcCodeBadSignature      = -32003
	rpcCodeNonceReplayed     = -32004
)

// RPCClient talks JSON-RPC 2.0 to a chain node over HTTP.
type RPCClient struct {
	url    string
	client *http.Client
	nextID atomic.Uint64
}

// NewRPCClient creates a client for the node at url.
func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: http status %d", ErrUnavailable, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if rpcResp.Error != nil {
		switch rpcResp.Error.Code {
		case rpcCodeTxNotFound:
			return fmt.Errorf("%w: %s", ErrTxNotFound, rpcResp.Error.Message)
		case rpcCodeInsufficientFunds:
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, rpcResp.Error.Message)
		case rpcCodeBadSignature:
			return fmt.Errorf("%w: %s", ErrBadSignature, rpcResp.Error.Message)
		case rpcCodeNonceReplayed:
			return fmt.Errorf("%w: %s", ErrNonceReplayed, rpcResp.Error.Message)
		}
		return rpcResp.Error
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// Balance implements Client.
func (c *RPCClient) Balance(ctx context.Context, address string) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	err := c.call(ctx, "bank_balance", map[string]string{"address": address}, &out)
	if err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// Transfer implements Client.
func (c *RPCClient) Transfer(ctx context.Context, from *Keypair, to string, amount int64) (string, error) {
	env, err := NewTransferEnvelope(from, to, amount)
	if err != nil {
		return "", err
	}
	var out struct {
		TxID string `json:"txId"`
	}
	if err := c.call(ctx, "bank_submitTransfer", env, &out); err != nil {
		return "", err
	}
	if out.TxID == "" {
		return "", errors.New("chain: node returned empty tx id")
	}
	return out.TxID, nil
}

// Tx implements Client.
func (c *RPCClient) Tx(ctx context.Context, id string) (*Tx, error) {
	var out Tx
	if err := c.call(ctx, "bank_transaction", map[string]string{"txId": id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RentExemptMinimum implements Client.
func (c *RPCClient) RentExemptMinimum(ctx context.Context) (int64, error) {
	var out struct {
		Minimum int64 `json:"minimum"`
	}
	if err := c.call(ctx, "bank_rentExemptMinimum", nil, &out); err != nil {
		return 0, err
	}
	return out.Minimum, nil
}

// Health implements Client.
func (c *RPCClient) Health(ctx context.Context) error {
	return c.call(ctx, "node_health", nil, nil)
}
