package service

import (
	"context"
	"fmt"

	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*models.User, error)
	RemoveUser(ctx context.Context, userID int64) error
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{
		u: u,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*models.User, error) {
	user, isExist, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isExist {
		return nil, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}

	return user, nil
}

func (s *userService) RemoveUser(ctx context.Context, userID int64) error {
	_, isExist, err := s.u.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !isExist {
		return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}

	return s.u.Remove(ctx, userID)
}
