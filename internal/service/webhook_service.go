package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
	"github.com/reelflow/reelflow-api/internal/transfer"
)

// WebhookService ingests publish callbacks from the platform. Deliveries
// may arrive out of order and more than once; everything here must stay
// safe under duplication, so business failures are absorbed and logged
// rather than returned. Handle only errors on an unparsable body.
type WebhookService interface {
	Handle(ctx context.Context, raw []byte) error
}

type webhookService struct {
	pr repository.PostRepository
	lc PostLifecycleService
}

func NewWebhookService(pr repository.PostRepository, lc PostLifecycleService) WebhookService {
	return &webhookService{pr: pr, lc: lc}
}

var webhookStatusByEvent = map[string]models.PostStatus{
	"post.publish.complete":        models.PostStatusPublished,
	"post.publish.failed":          models.PostStatusFailed,
	"post.publish.inbox_delivered": models.PostStatusInbox,
}

func (s *webhookService) Handle(ctx context.Context, raw []byte) error {
	var payload transfer.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("unparsable webhook body: %w", apperr.ErrValidation)
	}

	target, ok := webhookStatusByEvent[payload.Event]
	if !ok {
		log.Printf("Ignoring unknown webhook event %q", payload.Event)
		return nil
	}

	publishID, reason := extractPublishID(&payload)
	if publishID == "" {
		log.Printf("Webhook event %q carries no publish id, ignoring", payload.Event)
		return nil
	}

	post, err := s.pr.GetByPublishID(ctx, publishID)
	if err != nil {
		slog.Error(err.Error())
		return nil
	}
	if post == nil {
		log.Printf("No post matches publish id %s, ignoring", publishID)
		return nil
	}

	attrs := &repository.PostUpdateFields{}
	switch target {
	case models.PostStatusPublished:
		if payload.ShareURL != "" {
			attrs.PublicURL = &payload.ShareURL
		}
	case models.PostStatusFailed:
		if reason != "" {
			attrs.FailureReason = &reason
		}
	}

	_, err = s.lc.Transition(ctx, post.ID, target, attrs, []models.PostStatus{models.PostStatusProcessing, models.PostStatusInbox})
	if err == nil {
		return nil
	}

	if errors.Is(err, apperr.ErrConflict) {
		// Expected under redelivery: swallow once the stored status already
		// matches what this event wanted.
		current, ferr := s.pr.GetByID(ctx, post.ID)
		if ferr == nil && current != nil && current.Status == target {
			return nil
		}
		slog.Error(fmt.Sprintf("webhook %s conflicted on post %d without converging: %v", payload.Event, post.ID, err))
		return nil
	}

	slog.Error(fmt.Sprintf("webhook %s failed on post %d: %v", payload.Event, post.ID, err))
	return nil
}

// extractPublishID tries the flat shape first, then the nested shape where
// content is a JSON-encoded string holding publish_id and reason.
func extractPublishID(payload *transfer.WebhookPayload) (string, string) {
	if payload.PublishID != "" {
		return payload.PublishID, ""
	}
	if payload.Content == "" {
		return "", ""
	}

	var content transfer.WebhookContent
	if err := json.Unmarshal([]byte(payload.Content), &content); err != nil {
		slog.Info(err.Error())
		return "", ""
	}
	return content.PublishID, content.Reason
}
