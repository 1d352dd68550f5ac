package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dealersense/chat-api/internal/api/handler/v1/request"
	"github.com/dealersense/chat-api/internal/api/handler/v1/response"
	"github.com/dealersense/chat-api/internal/api/middleware"
	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/realtime"
)

type ChatService interface {
	History(ctx context.Context, roomID, identity string) ([]domain.Message, error)
}

type Hub interface {
	Send(ctx context.Context, identity string, in realtime.SendInput) (domain.Message, error)
	Serve(ctx context.Context, conn *websocket.Conn, identity string)
}

type ChatHandler struct {
	svc      ChatService
	hub      Hub
	upgrader websocket.Upgrader
}

func NewChatHandler(svc ChatService, hub Hub, allowedOrigins []string) *ChatHandler {
	return &ChatHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// HandleGetChatMessages godoc
// @Summary      Get room history
// @Description  Every message of the room, oldest first.
// @Tags         chat
// @Produce      json
// @Param        roomID  path      string  true  "Room ID, the two identities sorted and joined by '-'"
// @Success      200  {array}   domain.Message
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /chat/{roomID} [get]
// @Router       /rooms/{roomID}/messages [get]
// @Security     BearerAuth
func (h *ChatHandler) HandleGetChatMessages(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	messages, err := h.svc.History(ctx.Request.Context(), ctx.Param("roomID"), user.Identity())
	if err != nil {
		renderChatErr(ctx, fmt.Errorf("v1.HandleGetChatMessages -> h.svc.History -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, messages)
}

// HandleSendMessage godoc
// @Summary      Send a message
// @Description  Stores the message and delivers it to everyone connected to the room.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      request.SendMessageRequest  true  "request body"
// @Success      201  {object}  domain.Message
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /chat/send [post]
// @Security     BearerAuth
func (h *ChatHandler) HandleSendMessage(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	stored, err := h.hub.Send(ctx.Request.Context(), user.Identity(), realtime.SendInput{
		RoomID:     req.RoomID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Message:    req.Message,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		renderChatErr(ctx, fmt.Errorf("v1.HandleSendMessage -> h.hub.Send -> %w", err))
		return
	}

	ctx.JSON(http.StatusCreated, stored)
}

// HandleWebSocket godoc
// @Summary      Open the realtime chat connection
// @Description  Upgrades to a websocket. Browsers pass the JWT in the token query parameter.
// @Tags         chat
// @Param        token  query     string  false  "JWT when the Authorization header cannot be set"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      401  {object}  response.Err
// @Router       /ws [get]
// @Security     BearerAuth
func (h *ChatHandler) HandleWebSocket(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		zap.L().Info("websocket upgrade failed", zap.String("user_id", user.Identity()), zap.Error(err))
		return
	}

	h.hub.Serve(ctx.Request.Context(), conn, user.Identity())
}

func renderChatErr(ctx *gin.Context, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		response.RenderErr(ctx, response.ErrBadRequest(vErr))
	case errors.Is(err, domain.ErrForbidden):
		response.RenderErr(ctx, response.ErrPermissionDenied(domain.ErrForbidden))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}
