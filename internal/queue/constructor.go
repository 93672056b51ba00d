package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"github.com/reelflow/reelflow-api/internal/repository"
	"github.com/reelflow/reelflow-api/internal/service"
)

type Queue struct {
	client      *asynq.Client
	pr          repository.PostRepository
	ps          service.PublishService
	lc          service.PostLifecycleService
	reconcileIn time.Duration
}

func NewQueue(
	client *asynq.Client,
	pr repository.PostRepository,
	ps service.PublishService,
	lc service.PostLifecycleService,
	reconcileIn time.Duration) *Queue {
	return &Queue{
		client:      client,
		pr:          pr,
		ps:          ps,
		lc:          lc,
		reconcileIn: reconcileIn,
	}
}

const (
	TaskTypePublishPost      = "publish:post"
	TaskTypeReconcilePublish = "publish:reconcile"
)

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

// ReconcilePayload pins the reconcile check to one submission attempt, so a
// stale task can never fail a later resubmission of the same post.
type ReconcilePayload struct {
	PostID    int64  `json:"post_id"`
	PublishID string `json:"publish_id"`
}
