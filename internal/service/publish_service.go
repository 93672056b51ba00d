package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	cfg "github.com/reelflow/reelflow-api/configs"
	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
	"github.com/reelflow/reelflow-api/internal/transfer"
	"github.com/reelflow/reelflow-api/pkg/utils"
)

// PublishService hands a post's assets to the platform. The transition
// into PROCESSING is the single-flight gate: it happens before any call
// leaves the process, so a post can never be submitted twice concurrently.
// A post that passes the gate always ends in PROCESSING with a publish id
// recorded, or in FAILED; it is never left stranded.
type PublishService interface {
	Submit(ctx context.Context, userID, postID int64) (string, error)
}

type publishService struct {
	cfg cfg.Config
	pr  repository.PostRepository
	ar  repository.PostAssetRepository
	sa  repository.SocialAccountRepository
	lc  PostLifecycleService
	su  SignedURLResolver
}

func NewPublishService(
	c cfg.Config,
	pr repository.PostRepository,
	ar repository.PostAssetRepository,
	sa repository.SocialAccountRepository,
	lc PostLifecycleService,
	su SignedURLResolver) PublishService {
	return &publishService{
		cfg: c,
		pr:  pr,
		ar:  ar,
		sa:  sa,
		lc:  lc,
		su:  su,
	}
}

func (s *publishService) Submit(ctx context.Context, userID, postID int64) (string, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	if post == nil || post.UserID != userID {
		return "", fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}

	if post.Title == "" {
		return "", fmt.Errorf("title is required: %w", apperr.ErrValidation)
	}

	account, err := s.sa.GetByID(ctx, post.AccountID)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", fmt.Errorf("post %d has no target account: %w", postID, apperr.ErrValidation)
	}

	assets, err := s.ar.ListByPostID(ctx, postID)
	if err != nil {
		return "", err
	}
	if len(assets) == 0 {
		return "", fmt.Errorf("post %d has no assets: %w", postID, apperr.ErrValidation)
	}

	// Concurrency gate. If this loses, someone else already moved the post
	// and the platform is never contacted.
	if _, err = s.lc.Transition(ctx, postID, models.PostStatusProcessing, nil, []models.PostStatus{models.PostStatusDraft, models.PostStatusInbox}); err != nil {
		return "", err
	}

	publishID, err := s.submitToPlatform(ctx, post, account, assets)
	if err != nil {
		s.markFailed(ctx, postID, err.Error())
		return "", err
	}

	updated, err := s.pr.UpdateStatusWhere(ctx, postID, models.PostStatusProcessing, []models.PostStatus{models.PostStatusProcessing}, &repository.PostUpdateFields{PublishID: &publishID})
	if err != nil {
		// The platform accepted but the publish id never landed, so no
		// webhook can ever match this post. Resolve it now rather than
		// leave it stuck in PROCESSING.
		s.markFailed(ctx, postID, "unable to record publish id "+publishID)
		return "", err
	}
	if updated == nil {
		// The post left PROCESSING before the publish id landed. The webhook
		// for this submission will be dropped as unmatched; log loudly.
		slog.Error(fmt.Sprintf("post %d changed status before publish id %s was recorded", postID, publishID))
	}

	return publishID, nil
}

func (s *publishService) submitToPlatform(ctx context.Context, post *models.Post, account *models.SocialAccount, assets []*models.PostAsset) (string, error) {
	paths := make([]string, len(assets))
	for i, asset := range assets {
		paths[i] = asset.StoragePath
	}

	urls, err := s.su.Resolve(ctx, paths)
	if err != nil || len(urls) < len(paths) {
		slog.Info(fmt.Sprintf("unable to sign media for post %d: %v", post.ID, err))
		return "", fmt.Errorf("unable to sign media URLs: %w", apperr.ErrExternalAPI)
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	endpoint, body, err := s.buildPublishRequest(post, assets, urls)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PlatformAPIBaseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	client := &http.Client{Timeout: s.cfg.PublishTimeout}
	resp, err := client.Do(req)
	if err != nil {
		// Timeouts land here too; the caller resolves the post to FAILED so
		// it never sits in PROCESSING without a webhook on the way.
		slog.Info(err.Error())
		return "", fmt.Errorf("publish request failed: %w", apperr.ErrExternalAPI)
	}
	defer resp.Body.Close()

	var result transfer.PublishInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("invalid publish response: %w", apperr.ErrExternalAPI)
	}

	if resp.StatusCode != http.StatusOK || result.Data.PublishID == "" {
		log.Printf("Platform rejected publish for post %d: %s", post.ID, result.Error.Message)
		return "", fmt.Errorf("publish rejected: %s: %w", result.Error.Message, apperr.ErrExternalAPI)
	}

	log.Printf("Publish accepted for post %d: %s", post.ID, result.Data.PublishID)
	return result.Data.PublishID, nil
}

func (s *publishService) buildPublishRequest(post *models.Post, assets []*models.PostAsset, urls map[string]string) (string, []byte, error) {
	if len(assets) == 1 && assets[0].AssetType == models.AssetTypeVideo {
		request := transfer.VideoPublishRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 post.Title,
				Description:           post.Description,
				PrivacyLevel:          "PUBLIC_TO_EVERYONE",
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.VideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: urls[assets[0].StoragePath],
			},
		}

		body, err := json.Marshal(request)
		if err != nil {
			slog.Info(err.Error())
			return "", nil, err
		}
		return "/v2/post/publish/video/init/", body, nil
	}

	images := make([]string, len(assets))
	for i, asset := range assets {
		images[i] = urls[asset.StoragePath]
	}

	request := transfer.PhotoPublishRequest{
		PostInfo: transfer.PhotoPostInfo{
			Title:        post.Title,
			Description:  post.Description,
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
			AutoAddMusic: true,
		},
		SourceInfo: transfer.PhotoSourceInfo{
			Source:      "PULL_FROM_URL",
			PhotoImages: images,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}

	body, err := json.Marshal(request)
	if err != nil {
		slog.Info(err.Error())
		return "", nil, err
	}
	return "/v2/post/publish/content/init/", body, nil
}

func (s *publishService) markFailed(ctx context.Context, postID int64, reason string) {
	_, err := s.lc.Transition(ctx, postID, models.PostStatusFailed, &repository.PostUpdateFields{FailureReason: &reason}, []models.PostStatus{models.PostStatusProcessing})
	if err != nil && !errors.Is(err, apperr.ErrConflict) {
		slog.Error(fmt.Sprintf("unable to fail post %d: %v", postID, err))
	}
}
