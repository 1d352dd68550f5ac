package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"

	"github.com/dealersense/chat-api/internal/api/middleware"
	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/realtime"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Signup(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.User), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockUserService) FindByRoleAndLocation(ctx context.Context, role, location string) ([]domain.User, error) {
	args := m.Called(ctx, role, location)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserService) Contacts(ctx context.Context, user domain.User) ([]domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]domain.User), args.Error(1)
}

type mockChatService struct {
	mock.Mock
}

func (m *mockChatService) History(ctx context.Context, roomID, identity string) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, identity)
	return args.Get(0).([]domain.Message), args.Error(1)
}

type mockHub struct {
	mock.Mock
}

func (m *mockHub) Send(ctx context.Context, identity string, in realtime.SendInput) (domain.Message, error) {
	args := m.Called(ctx, identity, in)
	return args.Get(0).(domain.Message), args.Error(1)
}

func (m *mockHub) Serve(ctx context.Context, conn *websocket.Conn, identity string) {
	m.Called(ctx, conn, identity)
}

// asUser stands in for the JWT middleware.
func asUser(user domain.User) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextKeyUser, user)
		ctx.Next()
	}
}
