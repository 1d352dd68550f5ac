package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/pkg/protocol"
	"github.com/dealersense/chat-api/pkg/roomid"
)

var ErrHubClosed = errors.New("hub is not running")

type MessageStore interface {
	Append(ctx context.Context, message domain.Message) (domain.Message, error)
}

type Authorizer interface {
	Authorize(roomID, identity string) error
}

type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, message domain.Message) error
}

// Relay carries stored messages to every hub instance subscribed to the room,
// including the one that stored them.
type Relay interface {
	Publish(ctx context.Context, message domain.Message) error
	Start(ctx context.Context, deliver func(domain.Message)) error
}

type Options struct {
	EnforceParticipants bool
	SendBuffer          int
	SendRate            float64
	SendBurst           int
	MaxMessageBytes     int64
}

// SendInput is what a sender supplies. Id and createdAt are always assigned by the store.
type SendInput struct {
	RoomID     string
	SenderID   string
	ReceiverID string
	Message    string
	ImageURL   string
}

type joinRequest struct {
	client *Client
	roomID string
	done   chan struct{}
}

type directEvent struct {
	client *Client
	event  protocol.Envelope
}

// Hub owns the live room memberships. Only Run mutates clients and rooms.
type Hub struct {
	store  MessageStore
	auth   Authorizer
	relay  Relay
	events EventPublisher
	opts   Options

	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	deliver    chan domain.Message
	direct     chan directEvent

	locks   *roomLocks
	running chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewHub(store MessageStore, auth Authorizer, relay Relay, events EventPublisher, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if relay == nil {
		relay = NewLocalRelay()
	}

	return &Hub{
		store:      store,
		auth:       auth,
		relay:      relay,
		events:     events,
		opts:       opts,
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		deliver:    make(chan domain.Message, 1024),
		direct:     make(chan directEvent, 256),
		locks:      newRoomLocks(),
		running:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes hub operations until ctx is cancelled. It must be started before
// clients are registered.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.relay.Start(ctx, h.enqueueDelivery); err != nil {
		h.shutdown()
		return fmt.Errorf("h.relay.Start -> %w", err)
	}
	close(h.running)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			h.remove(c)
		case req := <-h.join:
			if _, ok := h.clients[req.client]; ok {
				h.subscribe(req.client, req.roomID)
			}
			close(req.done)
		case msg := <-h.deliver:
			h.broadcast(msg)
		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				h.push(d.client, d.event)
			}
		}
	}
}

// Ready is closed once Run accepts operations.
func (h *Hub) Ready() <-chan struct{} {
	return h.running
}

func (h *Hub) shutdown() {
	h.once.Do(func() {
		close(h.done)
		for c := range h.clients {
			h.remove(c)
		}
	})
}

// Register adds a connection for identity. The returned client receives events on Outbound.
func (h *Hub) Register(identity string) (*Client, error) {
	c := &Client{
		ID:       uuid.NewString(),
		Identity: identity,
		send:     make(chan protocol.Envelope, h.opts.SendBuffer),
		rooms:    make(map[string]struct{}),
	}
	if h.opts.SendRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(h.opts.SendRate), max(h.opts.SendBurst, 1))
	}

	select {
	case h.register <- c:
		return c, nil
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Unregister removes c from every room and closes its outbound channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join subscribes c to roomID. Joining a room twice is a no-op. When Join returns nil,
// every message broadcast afterwards reaches c.
func (h *Hub) Join(c *Client, roomID string) error {
	if err := h.auth.Authorize(roomID, c.Identity); err != nil {
		return err
	}

	req := joinRequest{client: c, roomID: roomID, done: make(chan struct{})}
	select {
	case h.join <- req:
	case <-h.done:
		return ErrHubClosed
	}
	<-req.done

	return nil
}

// Send stores a message and then broadcasts the stored copy to the room. Nothing is
// broadcast when the store rejects the write. Messages to one room are stored and
// broadcast in the same order.
func (h *Hub) Send(ctx context.Context, identity string, in SendInput) (domain.Message, error) {
	msg := domain.Message{
		RoomID:     in.RoomID,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Message:    in.Message,
		ImageURL:   in.ImageURL,
	}
	if err := msg.Validate(); err != nil {
		return domain.Message{}, err
	}
	if h.opts.EnforceParticipants {
		if msg.SenderID != identity {
			return domain.Message{}, domain.ErrForbidden
		}
		if peer, ok := roomid.Peer(msg.RoomID, identity); msg.ReceiverID != domain.BroadcastReceiver && (!ok || msg.ReceiverID != peer) {
			return domain.Message{}, domain.ErrForbidden
		}
	}
	if err := h.auth.Authorize(msg.RoomID, identity); err != nil {
		return domain.Message{}, err
	}

	stored, err := h.appendAndRelay(ctx, msg)
	if err != nil {
		return domain.Message{}, err
	}

	if h.events != nil {
		if err := h.events.PublishMessageCreated(ctx, stored); err != nil {
			zap.L().Warn("failed to publish message event", zap.String("message_id", stored.ID), zap.Error(err))
		}
	}

	return stored, nil
}

func (h *Hub) appendAndRelay(ctx context.Context, msg domain.Message) (domain.Message, error) {
	unlock := h.locks.lock(msg.RoomID)
	defer unlock()

	stored, err := h.store.Append(ctx, msg)
	if err != nil {
		zap.L().Error("failed to store message", zap.String("room_id", msg.RoomID), zap.Error(err))
		return domain.Message{}, fmt.Errorf("h.store.Append -> %w", err)
	}

	// The message is durable at this point; a relay failure only costs live delivery.
	if err := h.relay.Publish(ctx, stored); err != nil {
		zap.L().Error("failed to relay message", zap.String("message_id", stored.ID), zap.Error(err))
	}

	return stored, nil
}

// Reply queues an event for a single connection.
func (h *Hub) Reply(c *Client, event string, data any) {
	select {
	case h.direct <- directEvent{client: c, event: protocol.Envelope{Event: event, Data: data}}:
	case <-h.done:
	}
}

func (h *Hub) enqueueDelivery(msg domain.Message) {
	select {
	case h.deliver <- msg:
	case <-h.done:
	}
}

func (h *Hub) subscribe(c *Client, roomID string) {
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[c] = struct{}{}
	c.rooms[roomID] = struct{}{}
}

func (h *Hub) broadcast(msg domain.Message) {
	event := protocol.Envelope{Event: protocol.EventReceiveMessage, Data: ToWire(msg)}
	for c := range h.rooms[msg.RoomID] {
		h.push(c, event)
	}
}

// push never blocks the loop. A connection that cannot keep up is dropped.
func (h *Hub) push(c *Client, event protocol.Envelope) {
	select {
	case c.send <- event:
	default:
		zap.L().Warn("dropping slow connection", zap.String("conn_id", c.ID), zap.String("user_id", c.Identity))
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for roomID := range c.rooms {
		members := h.rooms[roomID]
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	close(c.send)
}

func ToWire(m domain.Message) protocol.Message {
	return protocol.Message{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Message,
		ImageURL:   m.ImageURL,
		CreatedAt:  m.CreatedAt,
	}
}

type roomLock struct {
	sync.Mutex
	refs int
}

// roomLocks hands out one mutex per room and forgets it when nobody holds it.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

func (l *roomLocks) lock(roomID string) func() {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()

	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}
