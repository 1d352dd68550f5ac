package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live connection. Its rooms set and send channel belong to the hub loop.
type Client struct {
	ID       string
	Identity string

	send    chan protocol.Envelope
	rooms   map[string]struct{}
	limiter *rate.Limiter
}

// Outbound yields events for this connection. It is closed when the hub drops the client.
func (c *Client) Outbound() <-chan protocol.Envelope {
	return c.send
}

// Allow reports whether the connection may send another message now.
func (c *Client) Allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// Serve runs an upgraded connection for identity until either side closes it.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, identity string) {
	client, err := h.Register(identity)
	if err != nil {
		zap.L().Warn("rejecting connection", zap.String("user_id", identity), zap.Error(err))
		_ = conn.Close()
		return
	}

	go h.writePump(conn, client)
	h.readPump(ctx, conn, client)
}

func (h *Hub) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				zap.L().Debug("write failed", zap.String("conn_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn, c *Client) {
	defer func() {
		h.Unregister(c)
		_ = conn.Close()
	}()

	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.Reply(c, protocol.EventError, protocol.Error{Error: "malformed frame"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Info("connection closed", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}

		h.dispatch(ctx, c, frame)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, frame protocol.Frame) {
	switch frame.Event {
	case protocol.EventJoinRoom:
		var payload protocol.JoinRoom
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			h.Reply(c, protocol.EventError, protocol.Error{Error: "malformed joinRoom payload"})
			return
		}
		if err := h.Join(c, payload.RoomID); err != nil {
			h.Reply(c, protocol.EventError, protocol.Error{RoomID: payload.RoomID, Error: err.Error()})
			return
		}
		h.Reply(c, protocol.EventJoined, protocol.Joined{RoomID: payload.RoomID})

	case protocol.EventSendMessage:
		var payload protocol.SendMessage
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			h.Reply(c, protocol.EventSendAck, protocol.SendAck{Error: "malformed sendMessage payload"})
			return
		}
		h.Reply(c, protocol.EventSendAck, h.handleSend(ctx, c, payload))

	default:
		h.Reply(c, protocol.EventError, protocol.Error{Error: "unknown event " + frame.Event})
	}
}

func (h *Hub) handleSend(ctx context.Context, c *Client, payload protocol.SendMessage) protocol.SendAck {
	ack := protocol.SendAck{RequestID: payload.RequestID}
	if !c.Allow() {
		ack.Error = domain.ErrRateLimited.Error()
		return ack
	}

	stored, err := h.Send(ctx, c.Identity, SendInput{
		RoomID:     payload.RoomID,
		SenderID:   payload.SenderID,
		ReceiverID: payload.ReceiverID,
		Message:    payload.Message,
		ImageURL:   payload.ImageURL,
	})
	if err != nil {
		ack.Error = ackError(err)
		return ack
	}

	wire := ToWire(stored)
	ack.OK = true
	ack.MessageID = stored.ID
	ack.Message = &wire

	return ack
}

// ackError keeps store internals out of what the client sees.
func ackError(err error) string {
	switch {
	case domain.IsStoreUnavailable(err):
		return "message could not be stored"
	case errors.Is(err, domain.ErrForbidden):
		return domain.ErrForbidden.Error()
	default:
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return vErr.Error()
		}
		return "internal error"
	}
}
