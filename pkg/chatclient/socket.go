package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dealersense/chat-api/pkg/protocol"
)

var (
	ErrNotConnected = errors.New("socket is not connected")
	ErrDisconnected = errors.New("socket disconnected before the server replied")
)

type SocketHandler struct {
	OnMessage   func(protocol.Message)
	OnReconnect func()
	OnError     func(error)
}

// Socket is a Transport over the chat websocket. Run keeps it connected.
type Socket struct {
	url     string
	token   string
	dialer  *websocket.Dialer
	handler SocketHandler

	newBackOff func() backoff.BackOff

	writeMu sync.Mutex
	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan protocol.SendAck
	joins   map[string][]chan error
	ready   chan struct{}
}

// NewSocket targets wsURL, e.g. ws://localhost:5001/api/v1/ws.
func NewSocket(wsURL, token string, handler SocketHandler) *Socket {
	return &Socket{
		url:     wsURL,
		token:   token,
		dialer:  websocket.DefaultDialer,
		handler: handler,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
		pending: make(map[string]chan protocol.SendAck),
		joins:   make(map[string][]chan error),
		ready:   make(chan struct{}),
	}
}

// Ready is closed after the first successful connection.
func (s *Socket) Ready() <-chan struct{} {
	return s.ready
}

// Run connects, reads until the connection drops and reconnects with exponential
// backoff until ctx is done. OnReconnect fires on its own goroutine after every
// reconnection.
func (s *Socket) Run(ctx context.Context) error {
	first := true
	for {
		conn, err := s.connect(ctx)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		if first {
			close(s.ready)
			first = false
		} else if s.handler.OnReconnect != nil {
			go s.handler.OnReconnect()
		}

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		err = s.readLoop(conn)
		stop()
		s.drop(conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.handler.OnError != nil {
			s.handler.OnError(err)
		}
	}
}

func (s *Socket) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	var conn *websocket.Conn
	op := func() error {
		c, resp, err := s.dialer.DialContext(ctx, s.url, header)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return backoff.Permanent(fmt.Errorf("dial: %w", err))
			}
			return err
		}
		conn = c
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		return nil, fmt.Errorf("backoff.Retry -> %w", err)
	}

	return conn, nil
}

func (s *Socket) readLoop(conn *websocket.Conn) error {
	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}

		switch frame.Event {
		case protocol.EventReceiveMessage:
			var msg protocol.Message
			if err := json.Unmarshal(frame.Data, &msg); err == nil && s.handler.OnMessage != nil {
				s.handler.OnMessage(msg)
			}
		case protocol.EventSendAck:
			var ack protocol.SendAck
			if err := json.Unmarshal(frame.Data, &ack); err == nil {
				s.resolve(ack)
			}
		case protocol.EventJoined:
			var j protocol.Joined
			if err := json.Unmarshal(frame.Data, &j); err == nil {
				s.resolveJoin(j.RoomID, nil)
			}
		case protocol.EventError:
			var e protocol.Error
			if err := json.Unmarshal(frame.Data, &e); err != nil {
				continue
			}
			if e.RoomID != "" && s.resolveJoin(e.RoomID, errors.New(e.Error)) {
				continue
			}
			if s.handler.OnError != nil {
				s.handler.OnError(errors.New(e.Error))
			}
		}
	}
}

// Join writes a joinRoom frame and waits until the server has added the connection
// to the room, so messages stored from then on are delivered.
func (s *Socket) Join(ctx context.Context, roomID string) error {
	wait := make(chan error, 1)
	s.mu.Lock()
	s.joins[roomID] = append(s.joins[roomID], wait)
	s.mu.Unlock()
	defer s.forgetJoin(roomID, wait)

	if err := s.write(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID}); err != nil {
		return err
	}

	select {
	case err, ok := <-wait:
		if !ok {
			return ErrDisconnected
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send writes a sendMessage frame and waits for its acknowledgement.
func (s *Socket) Send(ctx context.Context, msg protocol.SendMessage) (protocol.SendAck, error) {
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}

	wait := make(chan protocol.SendAck, 1)
	s.mu.Lock()
	s.pending[msg.RequestID] = wait
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.RequestID)
		s.mu.Unlock()
	}()

	if err := s.write(protocol.EventSendMessage, msg); err != nil {
		return protocol.SendAck{}, err
	}

	select {
	case ack, ok := <-wait:
		if !ok {
			return protocol.SendAck{}, ErrDisconnected
		}
		return ack, nil
	case <-ctx.Done():
		return protocol.SendAck{}, ctx.Err()
	}
}

func (s *Socket) write(event string, data any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(protocol.Envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("conn.WriteJSON -> %w", err)
	}

	return nil
}

func (s *Socket) resolve(ack protocol.SendAck) {
	s.mu.Lock()
	wait, ok := s.pending[ack.RequestID]
	if ok {
		delete(s.pending, ack.RequestID)
	}
	s.mu.Unlock()

	if ok {
		wait <- ack
	}
}

// resolveJoin answers the oldest join waiting on roomID and reports whether there was one.
func (s *Socket) resolveJoin(roomID string, err error) bool {
	s.mu.Lock()
	waiters := s.joins[roomID]
	if len(waiters) == 0 {
		s.mu.Unlock()
		return false
	}
	wait := waiters[0]
	if len(waiters) == 1 {
		delete(s.joins, roomID)
	} else {
		s.joins[roomID] = waiters[1:]
	}
	s.mu.Unlock()

	wait <- err
	return true
}

func (s *Socket) forgetJoin(roomID string, wait chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiters := s.joins[roomID]
	for i, w := range waiters {
		if w == wait {
			waiters = append(waiters[:i:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(s.joins, roomID)
	} else {
		s.joins[roomID] = waiters
	}
}

// drop fails every send and join still waiting on conn.
func (s *Socket) drop(conn *websocket.Conn) {
	_ = conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == conn {
		s.conn = nil
	}
	for id, wait := range s.pending {
		close(wait)
		delete(s.pending, id)
	}
	for room, waiters := range s.joins {
		for _, wait := range waiters {
			close(wait)
		}
		delete(s.joins, room)
	}
}
