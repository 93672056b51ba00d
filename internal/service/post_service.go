package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/reelflow/reelflow-api/internal/apperr"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
	"github.com/reelflow/reelflow-api/internal/transfer"
)

// StorageUploader writes one object into media storage.
type StorageUploader interface {
	UploadToR2(ctx context.Context, key string, file []byte, filetype string) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostWithAssets, error)
	UpdateDraft(ctx context.Context, userID int64, pu *transfer.PostUpdate) error
	RemoveAsset(ctx context.Context, userID, postID, assetID int64) error
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	ar repository.PostAssetRepository
	sa repository.SocialAccountRepository
	st StorageUploader
	su SignedURLResolver
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ar repository.PostAssetRepository,
	sa repository.SocialAccountRepository,
	st StorageUploader,
	su SignedURLResolver) PostService {
	return &postService{
		db: db,
		pr: pr,
		ar: ar,
		sa: sa,
		st: st,
		su: su,
	}
}

var videoExtensions = map[string]struct{}{
	"mp4": {}, "mov": {},
}

var imageExtensions = map[string]struct{}{
	"jpeg": {}, "png": {}, "jpg": {},
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := fmt.Errorf("post creation data is nil: %w", apperr.ErrValidation)
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Title == "" {
		err := fmt.Errorf("title cannot be empty: %w", apperr.ErrValidation)
		slog.Info(err.Error())
		return 0, 0, err
	}

	accountID, err := strconv.ParseInt(pc.AccountID, 10, 64)
	if err != nil {
		err = fmt.Errorf("invalid account id: %w", apperr.ErrValidation)
		slog.Info(err.Error())
		return 0, 0, err
	}

	exists, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return 0, 0, err
	}
	if !exists {
		err = fmt.Errorf("social account %d does not exist: %w", accountID, apperr.ErrValidation)
		slog.Info(err.Error())
		return 0, 0, err
	}

	var scheduledTime sql.NullTime
	if pc.ScheduledTime != "" {
		parsed, err := time.Parse("2006-01-02T15:04", pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", apperr.ErrValidation)
			slog.Error(err.Error())
			return 0, 0, err
		}
		scheduledTime = sql.NullTime{Time: parsed, Valid: true}
	}

	if len(files) == 0 {
		err := fmt.Errorf("no files provided for the post: %w", apperr.ErrValidation)
		slog.Error(err.Error())
		return 0, 0, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:        userID,
		AccountID:     accountID,
		Title:         pc.Title,
		Description:   pc.Description,
		Status:        models.PostStatusDraft,
		ScheduledTime: scheduledTime,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.processFiles(ctx, tx, postID, files); err != nil {
		return 0, 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	var delay time.Duration
	if scheduledTime.Valid {
		delay = time.Until(scheduledTime.Time)
		if delay < 0 {
			delay = 0
		}
	}

	return postID, delay, nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, postID int64, files []*multipart.FileHeader) error {
	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}

		fileBytes, err := io.ReadAll(fileContent)
		fileContent.Close()
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", apperr.ErrValidation)
		}

		var assetType string
		if _, ok := videoExtensions[fileType.Extension]; ok {
			assetType = models.AssetTypeVideo
		} else if _, ok := imageExtensions[fileType.Extension]; ok {
			assetType = models.AssetTypeImageSequence
		} else {
			return fmt.Errorf("file type %s is not allowed: %w", fileType.Extension, apperr.ErrValidation)
		}

		key, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			return err
		}
		storagePath := fmt.Sprintf("posts/%d/%s", postID, key)

		if err = s.st.UploadToR2(ctx, storagePath, fileBytes, fileType.MIME.Value); err != nil {
			slog.Info(err.Error())
			return fmt.Errorf("error uploading file: %w", apperr.ErrStorage)
		}

		asset := models.PostAsset{
			PostID:       postID,
			DisplayOrder: i,
			AssetType:    assetType,
			StoragePath:  storagePath,
		}
		if _, err = s.ar.Create(ctx, tx, &asset); err != nil {
			return fmt.Errorf("error saving asset: %w", err)
		}
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostWithAssets, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	assets, err := s.ar.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(assets))
	for i, asset := range assets {
		paths[i] = asset.StoragePath
	}

	urls, err := s.su.Resolve(ctx, paths)
	if err != nil {
		// Paths that failed to sign are simply absent from the map.
		slog.Info(err.Error())
	}

	return &transfer.PostWithAssets{
		Post:      post,
		Assets:    assets,
		AssetURLs: urls,
	}, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

func (s *postService) UpdateDraft(ctx context.Context, userID int64, pu *transfer.PostUpdate) error {
	if pu == nil || pu.Title == "" {
		return fmt.Errorf("title cannot be empty: %w", apperr.ErrValidation)
	}

	isValid, err := s.pr.CheckByUserID(ctx, pu.PostID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		return fmt.Errorf("post %d: %w", pu.PostID, apperr.ErrNotFound)
	}

	updated, err := s.pr.UpdateDraft(ctx, pu.PostID, pu.Title, pu.Description)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("post %d is not editable: %w", pu.PostID, apperr.ErrConflict)
	}

	return nil
}

func (s *postService) RemoveAsset(ctx context.Context, userID, postID, assetID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.UserID != userID {
		return fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}
	if post.Status != models.PostStatusDraft {
		return fmt.Errorf("post %d is not editable: %w", postID, apperr.ErrConflict)
	}

	asset, err := s.ar.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if asset == nil || asset.PostID != postID {
		return fmt.Errorf("asset %d: %w", assetID, apperr.ErrNotFound)
	}

	if err = s.ar.RemoveAndRenumber(ctx, postID, assetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("asset %d: %w", assetID, apperr.ErrNotFound)
		}
		return err
	}

	s.su.Invalidate(asset.StoragePath)
	return nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		return fmt.Errorf("post %d: %w", postID, apperr.ErrNotFound)
	}

	if err = s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}
