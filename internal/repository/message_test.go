package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/repository/dao"
)

// memoryMessageDAO mirrors the ordering contract of the real DAOs.
type memoryMessageDAO struct {
	mu       sync.Mutex
	seq      uint64
	messages []dao.Message
}

func (d *memoryMessageDAO) Insert(_ context.Context, m dao.Message) (dao.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	m.Seq = d.seq
	d.messages = append(d.messages, m)

	return m, nil
}

func (d *memoryMessageDAO) FindByRoom(_ context.Context, roomID string) ([]dao.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := []dao.Message{}
	for _, m := range d.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

type mockMessageDAO struct {
	mock.Mock
}

func (m *mockMessageDAO) Insert(ctx context.Context, message dao.Message) (dao.Message, error) {
	args := m.Called(ctx, message)
	return args.Get(0).(dao.Message), args.Error(1)
}

func (m *mockMessageDAO) FindByRoom(ctx context.Context, roomID string) ([]dao.Message, error) {
	args := m.Called(ctx, roomID)
	messages, _ := args.Get(0).([]dao.Message)
	return messages, args.Error(1)
}

func TestMessageRepositoryAppend(t *testing.T) {
	repo := NewMessageRepository(&memoryMessageDAO{})
	ctx := context.Background()

	stored, err := repo.Append(ctx, domain.Message{RoomID: "u1-u2", SenderID: "u1", ReceiverID: "u2", Message: "hello"})
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, "hello", stored.Message)

	history, err := repo.ListByRoom(ctx, "u1-u2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, stored, history[0])
}

func TestMessageRepositoryAppendKeepsSuppliedTimestamp(t *testing.T) {
	repo := NewMessageRepository(&memoryMessageDAO{})
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	stored, err := repo.Append(context.Background(), domain.Message{RoomID: "1-2", SenderID: "1", ReceiverID: "2", Message: "x", CreatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, at, stored.CreatedAt)
}

func TestMessageRepositoryAppendAssignsUniqueIDs(t *testing.T) {
	repo := NewMessageRepository(&memoryMessageDAO{})
	seen := map[string]bool{}

	for i := 0; i < 50; i++ {
		stored, err := repo.Append(context.Background(), domain.Message{RoomID: "1-2", SenderID: "1", ReceiverID: "2", Message: "x"})
		require.NoError(t, err)
		assert.False(t, seen[stored.ID])
		seen[stored.ID] = true
	}
}

func TestMessageRepositoryAppendValidation(t *testing.T) {
	d := &mockMessageDAO{}
	repo := NewMessageRepository(d)

	_, err := repo.Append(context.Background(), domain.Message{SenderID: "1", ReceiverID: "2", Message: "x"})
	assert.True(t, domain.IsValidationError(err))

	_, err = repo.Append(context.Background(), domain.Message{RoomID: "1-2", SenderID: "1", ReceiverID: "2"})
	assert.True(t, domain.IsValidationError(err))

	d.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestMessageRepositoryStoreUnavailable(t *testing.T) {
	d := &mockMessageDAO{}
	dbErr := errors.New("connection refused")
	d.On("Insert", mock.Anything, mock.Anything).Return(dao.Message{}, dbErr)
	d.On("FindByRoom", mock.Anything, "1-2").Return(nil, dbErr)
	repo := NewMessageRepository(d)

	_, err := repo.Append(context.Background(), domain.Message{RoomID: "1-2", SenderID: "1", ReceiverID: "2", Message: "x"})
	assert.True(t, domain.IsStoreUnavailable(err))
	assert.ErrorIs(t, err, dbErr)

	_, err = repo.ListByRoom(context.Background(), "1-2")
	assert.True(t, domain.IsStoreUnavailable(err))

	d.AssertExpectations(t)
}

func TestMessageRepositoryListByRoomEmpty(t *testing.T) {
	repo := NewMessageRepository(&memoryMessageDAO{})

	history, err := repo.ListByRoom(context.Background(), "nobody-here")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestMessageRepositoryOrderMatchesAppendOrder(t *testing.T) {
	repo := NewMessageRepository(&memoryMessageDAO{})

	// A clock that jumps backwards must not reorder the room.
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Duration{0, 5 * time.Millisecond, 2 * time.Millisecond, 5 * time.Millisecond, 9 * time.Millisecond}
	i := 0
	repo.now = func() time.Time {
		t := base.Add(ticks[i%len(ticks)])
		i++
		return t
	}

	var want []string
	for n := 0; n < len(ticks); n++ {
		stored, err := repo.Append(context.Background(), domain.Message{RoomID: "1-2", SenderID: "1", ReceiverID: "2", Message: "m"})
		require.NoError(t, err)
		want = append(want, stored.ID)
	}

	history, err := repo.ListByRoom(context.Background(), "1-2")
	require.NoError(t, err)
	require.Len(t, history, len(want))
	for n, m := range history {
		assert.Equal(t, want[n], m.ID)
		if n > 0 {
			assert.False(t, m.CreatedAt.Before(history[n-1].CreatedAt))
		}
	}
}
