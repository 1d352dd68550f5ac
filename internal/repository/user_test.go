package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/repository/dao"
)

type mockUserDAO struct {
	mock.Mock
}

func (m *mockUserDAO) Insert(ctx context.Context, user dao.User) (dao.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(dao.User), args.Error(1)
}

func (m *mockUserDAO) FindByID(ctx context.Context, id uint) (dao.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(dao.User), args.Error(1)
}

func (m *mockUserDAO) FindByEmail(ctx context.Context, email string) (dao.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(dao.User), args.Error(1)
}

func (m *mockUserDAO) FindByRoleAndLocation(ctx context.Context, role, location string) ([]dao.User, error) {
	args := m.Called(ctx, role, location)
	users, _ := args.Get(0).([]dao.User)
	return users, args.Error(1)
}

func TestUserRepositoryCreate(t *testing.T) {
	d := &mockUserDAO{}
	d.On("Insert", mock.Anything, dao.User{Email: "a@b.c", Password: "hash", Name: "A", Role: domain.RoleDealer, Location: "Pune"}).
		Return(dao.User{ID: 3, Email: "a@b.c", Password: "hash", Name: "A", Role: domain.RoleDealer, Location: "Pune"}, nil)

	repo := NewUserRepository(d)
	created, err := repo.Create(context.Background(), domain.User{Email: "a@b.c", Password: "hash", Name: "A", Role: domain.RoleDealer, Location: "Pune"})
	require.NoError(t, err)
	assert.Equal(t, uint(3), created.ID)
	assert.Equal(t, "Pune", created.Location)
	d.AssertExpectations(t)
}

func TestUserRepositoryWrapsSentinels(t *testing.T) {
	d := &mockUserDAO{}
	d.On("Insert", mock.Anything, mock.Anything).Return(dao.User{}, dao.ErrUserEmailExists)
	d.On("FindByID", mock.Anything, uint(9)).Return(dao.User{}, dao.ErrUserNotFound)

	repo := NewUserRepository(d)

	_, err := repo.Create(context.Background(), domain.User{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrUserEmailExists)

	_, err = repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepositoryFindByRoleAndLocation(t *testing.T) {
	d := &mockUserDAO{}
	d.On("FindByRoleAndLocation", mock.Anything, domain.RoleSalesExec, "Pune").
		Return([]dao.User{{ID: 1, Role: domain.RoleSalesExec, Location: "Pune"}, {ID: 2, Role: domain.RoleSalesExec, Location: "Pune"}}, nil)
	d.On("FindByRoleAndLocation", mock.Anything, domain.RoleDealer, "Pune").
		Return(nil, errors.New("boom"))

	repo := NewUserRepository(d)

	users, err := repo.FindByRoleAndLocation(context.Background(), domain.RoleSalesExec, "Pune")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = repo.FindByRoleAndLocation(context.Background(), domain.RoleDealer, "Pune")
	assert.Error(t, err)
}
