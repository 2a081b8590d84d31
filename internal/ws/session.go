package ws

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrSessionClosed = websocket.ErrCloseSent

// Session is one WebSocket connection with a fixed identity. Identity is
// established during the handshake and never changes; a player reconnecting
// gets a fresh session.
type Session struct {
	id         string
	playerID   string
	name       string
	avatarSeed string
	wallet     string

	conn      *websocket.Conn
	send      chan *Message
	logger    *log.Logger
	handler   *Handler
	onClose   func(*Session)
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newSession(id, playerID, name, avatarSeed, wallet string, conn *websocket.Conn, logger *log.Logger, handler *Handler, onClose func(*Session)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         id,
		playerID:   playerID,
		name:       name,
		avatarSeed: avatarSeed,
		wallet:     wallet,
		conn:       conn,
		send:       make(chan *Message, 256),
		logger:     logger.WithPrefix("session").With("player", playerID),
		handler:    handler,
		onClose:    onClose,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the read and write pumps.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// Close tears the session down.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.send)
		err = s.conn.Close()
	})
	return err
}

// Send wraps data in an envelope and enqueues it.
func (s *Session) Send(event string, data any) {
	msg, err := NewMessage(event, data)
	if err != nil {
		s.logger.Error("Failed to build message", "type", event, "error", err)
		return
	}
	_ = s.SendMessage(msg)
}

// SendMessage enqueues a prebuilt message. A full send buffer closes the
// session rather than blocking the room that produced the event.
func (s *Session) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown
			s.logger.Debug("Send on closed session", "error", r)
		}
	}()

	select {
	case s.send <- msg:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		s.logger.Warn("Session send buffer full, closing connection")
		_ = s.Close()
		return ErrSessionClosed
	}
}

// respond echoes a command back with its requestId attached.
func (s *Session) respond(replyType, requestID string, data any) {
	msg, err := NewMessage(replyType, data)
	if err != nil {
		s.logger.Error("Failed to build reply", "type", replyType, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = s.SendMessage(msg)
}

func (s *Session) readPump() {
	defer func() {
		_ = s.Close()
		if s.onClose != nil {
			s.onClose(s)
		}
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		// Commands run on this goroutine so one connection's commands
		// apply in the order they were sent.
		s.handler.handle(s, &msg)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.ctx.Done():
			return
		}
	}
}
