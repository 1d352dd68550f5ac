package service

import (
	"context"
	"errors"

	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/pkg/roomid"
)

var (
	ErrMissingRoomID = errors.New("roomId is required")
	ErrForbidden     = domain.ErrForbidden
)

type MessageStore interface {
	Append(ctx context.Context, message domain.Message) (domain.Message, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error)
}

// ChatService serves room history. Writes go through the realtime hub so that every
// stored message is also broadcast.
type ChatService struct {
	store               MessageStore
	enforceParticipants bool
}

func NewChatService(store MessageStore, enforceParticipants bool) *ChatService {
	return &ChatService{
		store:               store,
		enforceParticipants: enforceParticipants,
	}
}

// Authorize reports whether identity may read or write roomID.
func (s *ChatService) Authorize(roomID, identity string) error {
	if roomID == "" {
		return domain.NewValidationError(ErrMissingRoomID)
	}
	if s.enforceParticipants && !roomid.Includes(roomID, identity) {
		return ErrForbidden
	}

	return nil
}

func (s *ChatService) History(ctx context.Context, roomID, identity string) ([]domain.Message, error) {
	if err := s.Authorize(roomID, identity); err != nil {
		return nil, err
	}

	// Store errors are already typed; no partial results are returned.
	return s.store.ListByRoom(ctx, roomID)
}
