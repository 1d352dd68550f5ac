package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dealersense/chat-api/internal/domain"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByRoleAndLocation(ctx context.Context, role, location string) ([]domain.User, error) {
	args := m.Called(ctx, role, location)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) Append(ctx context.Context, message domain.Message) (domain.Message, error) {
	args := m.Called(ctx, message)
	return args.Get(0).(domain.Message), args.Error(1)
}

func (m *mockMessageStore) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	args := m.Called(ctx, roomID)
	messages, _ := args.Get(0).([]domain.Message)
	return messages, args.Error(1)
}
