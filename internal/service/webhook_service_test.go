package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
)

func newWebhookFixture(status models.PostStatus, publishID string) (*memPostRepo, WebhookService) {
	pr := newMemPostRepo()
	pr.put(&models.Post{
		UserID:    1,
		Title:     "clip",
		Status:    status,
		PublishID: sql.NullString{String: publishID, Valid: publishID != ""},
	})
	return pr, NewWebhookService(pr, NewPostLifecycleService(pr))
}

func TestWebhookPublishCompleteFlatShape(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	body := []byte(`{"event":"post.publish.complete","publish_id":"pub-123","share_url":"https://example.com/v/1"}`)
	err := ws.Handle(context.Background(), body)
	assert.NoError(t, err)

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.Equal(t, "https://example.com/v/1", post.PublicURL.String)
}

func TestWebhookPublishFailedNestedShape(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	body := []byte(`{"event":"post.publish.failed","content":"{\"publish_id\":\"pub-123\",\"reason\":\"video too long\"}"}`)
	err := ws.Handle(context.Background(), body)
	assert.NoError(t, err)

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusFailed, post.Status)
	assert.Equal(t, "video too long", post.FailureReason.String)
}

func TestWebhookInboxDelivered(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	body := []byte(`{"event":"post.publish.inbox_delivered","publish_id":"pub-123"}`)
	err := ws.Handle(context.Background(), body)
	assert.NoError(t, err)

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusInbox, post.Status)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	body := []byte(`{"event":"post.publish.complete","publish_id":"pub-123","share_url":"https://example.com/v/1"}`)
	assert.NoError(t, ws.Handle(context.Background(), body))
	assert.NoError(t, ws.Handle(context.Background(), body))
	assert.NoError(t, ws.Handle(context.Background(), body))

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusPublished, post.Status)
}

func TestWebhookFailedAfterCompleteDoesNotRegress(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	complete := []byte(`{"event":"post.publish.complete","publish_id":"pub-123"}`)
	failed := []byte(`{"event":"post.publish.failed","content":"{\"publish_id\":\"pub-123\",\"reason\":\"late failure\"}"}`)

	assert.NoError(t, ws.Handle(context.Background(), complete))
	assert.NoError(t, ws.Handle(context.Background(), failed))

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.False(t, post.FailureReason.Valid)
}

func TestWebhookCompleteFromInbox(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusInbox, "pub-123")

	body := []byte(`{"event":"post.publish.complete","publish_id":"pub-123"}`)
	assert.NoError(t, ws.Handle(context.Background(), body))

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusPublished, post.Status)
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	body := []byte(`{"event":"post.comment.created","publish_id":"pub-123"}`)
	assert.NoError(t, ws.Handle(context.Background(), body))

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusProcessing, post.Status)
}

func TestWebhookMissingPublishIDIgnored(t *testing.T) {
	pr, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	body := []byte(`{"event":"post.publish.complete"}`)
	assert.NoError(t, ws.Handle(context.Background(), body))

	post, _ := pr.GetByID(context.Background(), 1)
	assert.Equal(t, models.PostStatusProcessing, post.Status)
}

func TestWebhookUnmatchedPublishIDIgnored(t *testing.T) {
	_, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	body := []byte(`{"event":"post.publish.complete","publish_id":"pub-999"}`)
	assert.NoError(t, ws.Handle(context.Background(), body))
}

func TestWebhookUnparsableBody(t *testing.T) {
	_, ws := newWebhookFixture(models.PostStatusProcessing, "pub-123")

	err := ws.Handle(context.Background(), []byte(`{not json`))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
