package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/hibiken/asynq"

	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
)

// HandlePublishPostTask drives a scheduled post through the same submit
// path a direct API call uses. Failures are not retried by the queue: a
// post that passed the gate is already resolved to FAILED by the submit
// path, and a post that lost the gate is being handled elsewhere.
func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := j.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		log.Printf("Scheduled post %d no longer exists, dropping task", payload.PostID)
		return nil
	}
	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusInbox {
		log.Printf("Scheduled post %d is %s, dropping task", post.ID, post.Status)
		return nil
	}

	publishID, err := j.ps.Submit(ctx, post.UserID, post.ID)
	if err != nil {
		log.Printf("Scheduled publish of post %d failed: %v", post.ID, err)
		return nil
	}

	if err := EnqueueReconcile(j.client, ReconcilePayload{PostID: post.ID, PublishID: publishID}, j.reconcileIn); err != nil {
		log.Printf("Error scheduling reconcile for post %d: %v", post.ID, err)
	}

	return nil
}

// HandleReconcileTask resolves a submission that never received a webhook.
// The conditional transition makes the race with a late webhook safe:
// whichever write lands first wins, the other is a no-op.
func (j *Queue) HandleReconcileTask(ctx context.Context, task *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := j.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		return nil
	}
	if !post.PublishID.Valid || post.PublishID.String != payload.PublishID {
		return nil
	}
	if post.Status != models.PostStatusProcessing {
		return nil
	}

	reason := "publish timed out"
	_, err = j.lc.Transition(ctx, post.ID, models.PostStatusFailed, &repository.PostUpdateFields{FailureReason: &reason}, []models.PostStatus{models.PostStatusProcessing})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}

	log.Printf("Post %d reconciled to FAILED after publish %s timed out", post.ID, payload.PublishID)
	return nil
}
