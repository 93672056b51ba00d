package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
)

// PostLifecycleService owns the post status state machine. Every status
// write in the system goes through Transition, which lands as one
// conditional update so racing callers resolve to exactly one winner.
type PostLifecycleService interface {
	Transition(ctx context.Context, postID int64, target models.PostStatus, attrs *repository.PostUpdateFields, expected []models.PostStatus) (*models.Post, error)
}

type postLifecycleService struct {
	pr repository.PostRepository
}

func NewPostLifecycleService(pr repository.PostRepository) PostLifecycleService {
	return &postLifecycleService{pr: pr}
}

func (s *postLifecycleService) Transition(ctx context.Context, postID int64, target models.PostStatus, attrs *repository.PostUpdateFields, expected []models.PostStatus) (*models.Post, error) {
	// Drop expected statuses with no legal edge to the target, so the
	// conditional write can never commit a forbidden transition.
	allowed := make([]models.PostStatus, 0, len(expected))
	for _, status := range expected {
		if status.CanTransitionTo(target) {
			allowed = append(allowed, status)
		}
	}
	if len(allowed) == 0 {
		err := fmt.Errorf("no allowed transition to %s from any of %v: %w", target, expected, apperr.ErrConflict)
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.UpdateStatusWhere(ctx, postID, target, allowed, attrs)
	if err != nil {
		return nil, err
	}
	if post != nil {
		return post, nil
	}

	// No row matched. Re-read to tell a missing post from a lost race.
	current, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}

	return nil, fmt.Errorf("post %d is %s, expected one of %v: %w", postID, current.Status, expected, apperr.ErrConflict)
}
