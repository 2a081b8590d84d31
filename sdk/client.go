// Package sdk is the Go client for the poker service's websocket interface.
// A Client correlates command replies by requestId and delivers everything
// else, table broadcasts and lobby updates, on its Events channel.
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned once the connection is gone.
var ErrClosed = errors.New("sdk: connection closed")

// ServerError is a command the server rejected.
type ServerError struct {
	Command string
	Message string
}

func (e *ServerError) Error() string {
	return e.Command + ": " + e.Message
}

// Identity names the connecting player. Token carries a wallet login and
// takes precedence; the session's player id is then the wallet address.
// Without a token, PlayerID is required.
type Identity struct {
	PlayerID   string
	Name       string
	AvatarSeed string
	Token      string
}

// Client is one websocket session. Methods are safe for concurrent use;
// drain Events promptly or broadcasts are dropped.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *Message
	readErr error
	nextReq uint64

	events chan *Message

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects and attaches the identity as query parameters. The server
// URL may use an http, https, ws or wss scheme; a bare host gets the /ws
// path appended.
func Dial(ctx context.Context, serverURL string, id Identity, logger *log.Logger) (*Client, error) {
	if id.Token == "" && id.PlayerID == "" {
		return nil, errors.New("sdk: identity needs a player id or a token")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	q := u.Query()
	if id.Token != "" {
		q.Set("token", id.Token)
	} else {
		q.Set("playerId", id.PlayerID)
	}
	if id.Name != "" {
		q.Set("name", id.Name)
	}
	if id.AvatarSeed != "" {
		q.Set("avatarSeed", id.AvatarSeed)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u.Host, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[string]chan *Message),
		events:  make(chan *Message, 256),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events carries every message that is not a reply to a pending request:
// table broadcasts, lobby updates, and the tables_list pushed on connect.
// The channel closes when the connection ends; Err then has the reason.
func (c *Client) Events() <-chan *Message {
	return c.events
}

// Err reports why the read loop stopped. Nil while the connection lives,
// ErrClosed after a clean Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()
	})
	return nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
				err = ErrClosed
			default:
			}
			c.mu.Lock()
			if c.readErr == nil {
				c.readErr = err
			}
			pending := c.pending
			c.pending = nil
			c.mu.Unlock()
			for _, ch := range pending {
				close(ch)
			}
			return
		}

		if msg.RequestID != "" {
			c.mu.Lock()
			ch, ok := c.pending[msg.RequestID]
			if ok {
				delete(c.pending, msg.RequestID)
			}
			c.mu.Unlock()
			if ok {
				ch <- &msg
				continue
			}
		}

		select {
		case c.events <- &msg:
		default:
			c.logger.Warn("Event buffer full, dropping", "type", msg.Type)
		}
	}
}

// Send delivers a command without awaiting a reply.
func (c *Client) Send(msgType string, payload any) error {
	return c.write(msgType, "", payload)
}

func (c *Client) write(msgType, requestID string, payload any) error {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	msg.RequestID = requestID

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.conn.WriteJSON(msg)
}

// request sends a command and waits for the message echoing its requestId.
// A reply whose payload carries an error field becomes a *ServerError.
func (c *Client) request(ctx context.Context, cmd string, payload any) (*Message, error) {
	c.mu.Lock()
	if c.pending == nil {
		err := c.readErr
		c.mu.Unlock()
		if err == nil {
			err = ErrClosed
		}
		return nil, err
	}
	c.nextReq++
	reqID := fmt.Sprintf("r%d", c.nextReq)
	ch := make(chan *Message, 1)
	c.pending[reqID] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		if c.pending != nil {
			delete(c.pending, reqID)
		}
		c.mu.Unlock()
	}

	if err := c.write(cmd, reqID, payload); err != nil {
		forget()
		return nil, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			err := c.Err()
			if err == nil {
				err = ErrClosed
			}
			return nil, err
		}
		if len(reply.Data) > 0 {
			var er ErrorReply
			if json.Unmarshal(reply.Data, &er) == nil && er.Error != "" {
				return nil, &ServerError{Command: cmd, Message: er.Error}
			}
		}
		return reply, nil
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	}
}

// Tables asks for the lobby listing.
func (c *Client) Tables(ctx context.Context) ([]Table, error) {
	reply, err := c.request(ctx, CmdGetTables, nil)
	if err != nil {
		return nil, err
	}
	var list TablesList
	if err := json.Unmarshal(reply.Data, &list); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	return list.Tables, nil
}

// CreateTable opens an ephemeral table and returns its id.
func (c *Client) CreateTable(ctx context.Context, req CreateTableRequest) (string, error) {
	reply, err := c.request(ctx, CmdCreateTable, req)
	if err != nil {
		return "", err
	}
	var created CreateTableReply
	if err := json.Unmarshal(reply.Data, &created); err != nil {
		return "", fmt.Errorf("decode create_table reply: %w", err)
	}
	return created.TableID, nil
}

// Watch subscribes to a table's broadcasts and returns the current
// snapshot. Further snapshots arrive on Events.
func (c *Client) Watch(ctx context.Context, tableID string) (*TableState, error) {
	reply, err := c.request(ctx, CmdWatchTable, TableRequest{TableID: tableID})
	if err != nil {
		return nil, err
	}
	var state TableState
	if err := json.Unmarshal(reply.Data, &state); err != nil {
		return nil, fmt.Errorf("decode table state: %w", err)
	}
	return &state, nil
}

// ReserveSeat holds a seat while a deposit is arranged.
func (c *Client) ReserveSeat(ctx context.Context, tableID string, seat int) error {
	_, err := c.request(ctx, CmdReserveSeat, SeatRequest{TableID: tableID, Seat: seat})
	return err
}

// ReleaseSeat gives up a reservation. The server does not acknowledge it;
// the seat_released broadcast is the confirmation.
func (c *Client) ReleaseSeat(tableID string, seat int) error {
	return c.Send(CmdReleaseSeat, SeatRequest{TableID: tableID, Seat: seat})
}

// Sit takes a seat and returns the seat index granted.
func (c *Client) Sit(ctx context.Context, req SitRequest) (int, error) {
	reply, err := c.request(ctx, CmdSitAtSeat, req)
	if err != nil {
		return 0, err
	}
	var sat SitReply
	if err := json.Unmarshal(reply.Data, &sat); err != nil {
		return 0, fmt.Errorf("decode sit reply: %w", err)
	}
	return sat.SeatIndex, nil
}

// Join quick-seats at an off-chain table at the lowest free seat.
func (c *Client) Join(ctx context.Context, tableID string, buyIn int64) error {
	_, err := c.request(ctx, CmdJoinTable, JoinTableRequest{TableID: tableID, BuyIn: buyIn})
	return err
}

// Leave stands up. There is no success reply; the player_left broadcast
// and a cash_out_complete event report the outcome.
func (c *Client) Leave(tableID string) error {
	return c.Send(CmdLeaveTable, TableRequest{TableID: tableID})
}

// Act submits a betting decision. Acceptance arrives as an action_ack
// event, rejection as an error event.
func (c *Client) Act(tableID, action string, amount int64) error {
	return c.Send(CmdPlayerAction, ActionRequest{TableID: tableID, Action: action, Amount: amount})
}

// Ping measures a round trip through the server.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := c.request(ctx, CmdPing, nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
