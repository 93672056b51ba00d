package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
	"github.com/reelflow/reelflow-api/internal/transfer"
)

// StorageCopier duplicates one storage object under a new key.
type StorageCopier interface {
	CopyObject(ctx context.Context, srcKey, dstKey string) error
}

// CloneService duplicates a post and its assets. Duplication is
// best-effort: a failed object copy skips that asset and the clone keeps
// going, so the result may hold fewer assets than the source. The result
// reports exactly which source paths were skipped.
type CloneService interface {
	Clone(ctx context.Context, userID, sourcePostID int64) (*transfer.CloneResult, error)
}

type cloneService struct {
	pr repository.PostRepository
	ar repository.PostAssetRepository
	st StorageCopier
}

func NewCloneService(pr repository.PostRepository, ar repository.PostAssetRepository, st StorageCopier) CloneService {
	return &cloneService{
		pr: pr,
		ar: ar,
		st: st,
	}
}

func (s *cloneService) Clone(ctx context.Context, userID, sourcePostID int64) (*transfer.CloneResult, error) {
	source, err := s.pr.GetByID(ctx, sourcePostID)
	if err != nil {
		return nil, err
	}
	if source == nil || source.UserID != userID {
		return nil, fmt.Errorf("post %d: %w", sourcePostID, apperr.ErrNotFound)
	}

	clone := models.Post{
		UserID:      source.UserID,
		AccountID:   source.AccountID,
		Title:       source.Title + " (copy)",
		Description: source.Description,
		Status:      models.PostStatusDraft,
	}

	cloneID, err := s.pr.Create(ctx, nil, &clone)
	if err != nil {
		return nil, err
	}

	sourceAssets, err := s.ar.ListByPostID(ctx, sourcePostID)
	if err != nil {
		return nil, err
	}

	result := &transfer.CloneResult{}

	nextOrder := 0
	for _, asset := range sourceAssets {
		key, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			result.SkippedPaths = append(result.SkippedPaths, asset.StoragePath)
			continue
		}
		dstPath := fmt.Sprintf("posts/%d/%s", cloneID, key)

		if err := s.st.CopyObject(ctx, asset.StoragePath, dstPath); err != nil {
			// Intentional partial-failure policy: skip and keep going.
			log.Printf("Skipping asset %d of post %d, copy failed: %v", asset.ID, sourcePostID, err)
			result.SkippedPaths = append(result.SkippedPaths, asset.StoragePath)
			continue
		}

		copied := models.PostAsset{
			PostID:       cloneID,
			DisplayOrder: nextOrder,
			AssetType:    asset.AssetType,
			StoragePath:  dstPath,
		}

		assetID, err := s.ar.Create(ctx, nil, &copied)
		if err != nil {
			result.SkippedPaths = append(result.SkippedPaths, asset.StoragePath)
			continue
		}
		copied.ID = assetID

		result.Assets = append(result.Assets, &copied)
		nextOrder++
	}

	cloned, err := s.pr.GetByID(ctx, cloneID)
	if err != nil {
		return nil, err
	}

	result.Post = cloned
	result.Partial = len(result.SkippedPaths) > 0
	return result, nil
}
