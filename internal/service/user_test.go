package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealersense/chat-api/internal/domain"
)

func TestUserServiceContacts(t *testing.T) {
	repo := &mockUserRepo{}
	repo.On("FindByRoleAndLocation", mock.Anything, domain.RoleSalesExec, "Pune").
		Return([]domain.User{{ID: 2, Role: domain.RoleSalesExec, Location: "Pune"}}, nil)
	repo.On("FindByRoleAndLocation", mock.Anything, domain.RoleDealer, "Pune").
		Return([]domain.User{{ID: 1, Role: domain.RoleDealer, Location: "Pune"}}, nil)
	svc := NewUserService(repo)

	execs, err := svc.Contacts(context.Background(), domain.User{ID: 1, Role: domain.RoleDealer, Location: "Pune"})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, uint(2), execs[0].ID)

	dealers, err := svc.Contacts(context.Background(), domain.User{ID: 2, Role: domain.RoleSalesExec, Location: "Pune"})
	require.NoError(t, err)
	require.Len(t, dealers, 1)
	assert.Equal(t, uint(1), dealers[0].ID)

	_, err = svc.Contacts(context.Background(), domain.User{ID: 3, Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestUserServiceFindByRoleAndLocationRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(&mockUserRepo{})

	_, err := svc.FindByRoleAndLocation(context.Background(), "organizer", "Pune")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
