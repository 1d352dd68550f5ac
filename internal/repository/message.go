package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/repository/dao"
)

type MessageDAO interface {
	Insert(ctx context.Context, message dao.Message) (dao.Message, error)
	FindByRoom(ctx context.Context, roomID string) ([]dao.Message, error)
}

// MessageRepository is the append-only message store. It is the only place that
// assigns message ids and timestamps.
type MessageRepository struct {
	dao MessageDAO

	now   func() time.Time
	mu    sync.Mutex
	lastT time.Time
}

func NewMessageRepository(dao MessageDAO) *MessageRepository {
	return &MessageRepository{
		dao: dao,
		now: time.Now,
	}
}

// stamp returns the store clock: millisecond precision, never behind a value it
// returned before, so a room read back in createdAt order matches append order.
func (r *MessageRepository) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now().UTC().Truncate(time.Millisecond)
	if t.Before(r.lastT) {
		t = r.lastT
	}
	r.lastT = t

	return t
}

func (r *MessageRepository) Append(ctx context.Context, message domain.Message) (domain.Message, error) {
	if err := message.Validate(); err != nil {
		return domain.Message{}, err
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.stamp()
	}
	message.ID = uuid.NewString()

	stored, err := r.dao.Insert(ctx, r.domainToDAO(message))
	if err != nil {
		return domain.Message{}, &domain.StoreUnavailableError{Op: "r.dao.Insert", Err: err}
	}

	return r.daoToDomain(stored), nil
}

func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	found, err := r.dao.FindByRoom(ctx, roomID)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "r.dao.FindByRoom", Err: err}
	}

	messages := make([]domain.Message, len(found))
	for i, m := range found {
		messages[i] = r.daoToDomain(m)
	}

	return messages, nil
}

func (r *MessageRepository) domainToDAO(m domain.Message) dao.Message {
	return dao.Message{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Message,
		ImageURL:   m.ImageURL,
		CreatedAt:  m.CreatedAt,
	}
}

func (r *MessageRepository) daoToDomain(m dao.Message) domain.Message {
	return domain.Message{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Message,
		ImageURL:   m.ImageURL,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}
