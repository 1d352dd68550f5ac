package service

import (
	"context"
	"fmt"

	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/repository"
)

var (
	ErrUserNotFound = repository.ErrUserNotFound
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByRoleAndLocation(ctx context.Context, role, location string) ([]domain.User, error)
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

func (s *UserService) FindByRoleAndLocation(ctx context.Context, role, location string) ([]domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	users, err := s.repo.FindByRoleAndLocation(ctx, role, location)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByRoleAndLocation -> %w", err)
	}

	return users, nil
}

// Contacts lists the people user can chat with: the counterpart role in the same location.
func (s *UserService) Contacts(ctx context.Context, user domain.User) ([]domain.User, error) {
	role := domain.CounterpartRole(user.Role)
	if role == "" {
		return nil, ErrInvalidRole
	}

	return s.FindByRoleAndLocation(ctx, role, user.Location)
}
