// Package chatclient is the Go client for the chat API. Session keeps one
// conversation view consistent while history loads and live messages arrive.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dealersense/chat-api/pkg/protocol"
	"github.com/dealersense/chat-api/pkg/roomid"
)

var (
	ErrNoConversation = errors.New("no conversation selected")
	ErrEmptyMessage   = errors.New("message is empty")
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Transport interface {
	// Join returns once messages stored in roomID from now on will be delivered.
	Join(ctx context.Context, roomID string) error
	Send(ctx context.Context, msg protocol.SendMessage) (protocol.SendAck, error)
}

type HistoryFetcher interface {
	History(ctx context.Context, roomID string) ([]protocol.Message, error)
}

// SendError is a send the server refused. Nothing was stored.
type SendError struct {
	RequestID string
	Reason    string
}

func (e *SendError) Error() string {
	return "send rejected: " + e.Reason
}

// Snapshot is a consistent copy of the session for rendering.
type Snapshot struct {
	State    State
	Peer     string
	RoomID   string
	Messages []protocol.Message
	Err      error
}

type Session struct {
	self      string
	transport Transport
	history   HistoryFetcher
	onChange  func(Snapshot)

	mu       sync.Mutex
	state    State
	peer     string
	room     string
	gen      uint64
	cancel   context.CancelFunc
	messages []protocol.Message
	seen     map[string]struct{}
	buffered []protocol.Message
	err      error
}

type Option func(*Session)

// WithOnChange registers a callback that receives a snapshot after every change. It is
// called without the session lock held.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// NewSession builds the session for the logged-in identity self.
func NewSession(self string, transport Transport, history HistoryFetcher, opts ...Option) *Session {
	s := &Session{
		self:      self,
		transport: transport,
		history:   history,
		seen:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Select opens the conversation with peer: joins the room and loads its history in the
// background. A previous selection's pending load is cancelled and its result ignored.
func (s *Session) Select(ctx context.Context, peer string) error {
	room, err := roomid.Derive(s.self, peer)
	if err != nil {
		return fmt.Errorf("roomid.Derive -> %w", err)
	}

	s.mu.Lock()
	s.reset()
	s.gen++
	gen := s.gen
	s.state = StateLoading
	s.peer = peer
	s.room = room
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(snap)

	if err = s.transport.Join(ctx, room); err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.reset()
			s.err = err
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.emit(snap)

		return fmt.Errorf("s.transport.Join -> %w", err)
	}

	go s.load(loadCtx, gen, room)

	return nil
}

func (s *Session) load(ctx context.Context, gen uint64, room string) {
	found, err := s.history.History(ctx, room)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}

	s.messages = s.messages[:0]
	s.seen = make(map[string]struct{}, len(found)+len(s.buffered))
	for _, m := range found {
		s.appendLocked(m)
	}
	for _, m := range s.buffered {
		s.appendLocked(m)
	}
	s.buffered = nil
	s.err = err
	s.state = StateActive
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
}

// Deliver hands a live message to the session. It is kept only when it belongs to the
// selected room and has not been seen before.
func (s *Session) Deliver(msg protocol.Message) bool {
	s.mu.Lock()
	if s.state == StateIdle || msg.RoomID != s.room {
		s.mu.Unlock()
		return false
	}

	if s.state == StateLoading {
		for _, b := range s.buffered {
			if b.ID == msg.ID {
				s.mu.Unlock()
				return false
			}
		}
		s.buffered = append(s.buffered, msg)
		s.mu.Unlock()
		return true
	}

	added := s.appendLocked(msg)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if added {
		s.emit(snap)
	}

	return added
}

// Send posts text to the selected peer. The message shows up once the server echoes it.
func (s *Session) Send(ctx context.Context, text string) (protocol.SendAck, error) {
	if strings.TrimSpace(text) == "" {
		return protocol.SendAck{}, ErrEmptyMessage
	}

	return s.send(ctx, protocol.SendMessage{Message: text})
}

// SendImage posts an image, as a data URL or link, to the selected peer.
func (s *Session) SendImage(ctx context.Context, imageURL string) (protocol.SendAck, error) {
	if imageURL == "" {
		return protocol.SendAck{}, ErrEmptyMessage
	}

	return s.send(ctx, protocol.SendMessage{ImageURL: imageURL})
}

func (s *Session) send(ctx context.Context, msg protocol.SendMessage) (protocol.SendAck, error) {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return protocol.SendAck{}, ErrNoConversation
	}
	msg.RequestID = uuid.NewString()
	msg.RoomID = s.room
	msg.SenderID = s.self
	msg.ReceiverID = s.peer
	s.mu.Unlock()

	ack, err := s.transport.Send(ctx, msg)
	if err != nil {
		return protocol.SendAck{}, fmt.Errorf("s.transport.Send -> %w", err)
	}
	if !ack.OK {
		return ack, &SendError{RequestID: msg.RequestID, Reason: ack.Error}
	}

	return ack, nil
}

// Deselect closes the conversation. The server subscription is left in place; live
// messages for the old room are ignored from now on.
func (s *Session) Deselect() {
	s.mu.Lock()
	s.reset()
	s.gen++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(snap)
}

// Resync rejoins the selected room and reloads its history, e.g. after the transport
// reconnected and may have missed messages.
func (s *Session) Resync(ctx context.Context) error {
	s.mu.Lock()
	state, peer := s.state, s.peer
	s.mu.Unlock()

	if state == StateIdle {
		return nil
	}

	return s.Select(ctx, peer)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:    s.state,
		Peer:     s.peer,
		RoomID:   s.room,
		Messages: append([]protocol.Message(nil), s.messages...),
		Err:      s.err,
	}
}

func (s *Session) appendLocked(m protocol.Message) bool {
	if _, ok := s.seen[m.ID]; ok {
		return false
	}
	s.seen[m.ID] = struct{}{}
	s.messages = append(s.messages, m)

	return true
}

func (s *Session) reset() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
	s.peer = ""
	s.room = ""
	s.messages = nil
	s.buffered = nil
	s.seen = make(map[string]struct{})
	s.err = nil
}

func (s *Session) emit(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
