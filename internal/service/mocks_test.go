package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
)

var errAssetCopy = errors.New("copy failed")

// memPostRepo is an in-memory PostRepository with the same conditional
// update semantics as the SQL implementation.
type memPostRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: make(map[int64]*models.Post)}
}

func (r *memPostRepo) put(post *models.Post) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.ID == 0 {
		r.nextID++
		post.ID = r.nextID
	} else if post.ID > r.nextID {
		r.nextID = post.ID
	}
	copied := *post
	r.posts[post.ID] = &copied
	return post
}

func (r *memPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	copied := *post
	return &copied, nil
}

func (r *memPostRepo) GetByPublishID(ctx context.Context, publishID string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, post := range r.posts {
		if post.PublishID.Valid && post.PublishID.String == publishID {
			copied := *post
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var posts []*models.Post
	for _, post := range r.posts {
		if post.UserID == userID {
			copied := *post
			posts = append(posts, &copied)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (r *memPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return r.put(post).ID, nil
}

func (r *memPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	return ok && post.UserID == userID, nil
}

func (r *memPostRepo) UpdateStatusWhere(ctx context.Context, postID int64, target models.PostStatus, expected []models.PostStatus, fields *repository.PostUpdateFields) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return nil, nil
	}

	matched := false
	for _, status := range expected {
		if post.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}

	post.Status = target
	if fields != nil {
		if fields.PublishID != nil {
			post.PublishID = sql.NullString{String: *fields.PublishID, Valid: true}
		}
		if fields.PublicURL != nil {
			post.PublicURL = sql.NullString{String: *fields.PublicURL, Valid: true}
		}
		if fields.FailureReason != nil {
			post.FailureReason = sql.NullString{String: *fields.FailureReason, Valid: true}
		}
	}
	post.UpdatedAt = time.Now()

	copied := *post
	return &copied, nil
}

func (r *memPostRepo) UpdateDraft(ctx context.Context, postID int64, title, description string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	if !ok || post.Status != models.PostStatusDraft {
		return false, nil
	}
	post.Title = title
	post.Description = description
	return true, nil
}

func (r *memPostRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type memAssetRepo struct {
	mu     sync.Mutex
	nextID int64
	assets map[int64]*models.PostAsset
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{assets: make(map[int64]*models.PostAsset)}
}

func (r *memAssetRepo) Create(ctx context.Context, tx *sql.Tx, asset *models.PostAsset) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	asset.ID = r.nextID
	copied := *asset
	r.assets[asset.ID] = &copied
	return asset.ID, nil
}

func (r *memAssetRepo) GetByID(ctx context.Context, id int64) (*models.PostAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, nil
	}
	copied := *asset
	return &copied, nil
}

func (r *memAssetRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var assets []*models.PostAsset
	for _, asset := range r.assets {
		if asset.PostID == postID {
			copied := *asset
			assets = append(assets, &copied)
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].DisplayOrder < assets[j].DisplayOrder })
	return assets, nil
}

func (r *memAssetRepo) RemoveAndRenumber(ctx context.Context, postID, assetID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[assetID]
	if !ok || asset.PostID != postID {
		return sql.ErrNoRows
	}
	delete(r.assets, assetID)

	var rest []*models.PostAsset
	for _, a := range r.assets {
		if a.PostID == postID {
			rest = append(rest, a)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].DisplayOrder < rest[j].DisplayOrder })
	for i, a := range rest {
		a.DisplayOrder = i
	}
	return nil
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.SocialAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[int64]*models.SocialAccount)}
}

func (r *memAccountRepo) put(account *models.SocialAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *account
	r.accounts[account.ID] = &copied
}

func (r *memAccountRepo) Create(ctx context.Context, tx *sql.Tx, account *models.SocialAccount) (int64, error) {
	r.put(account)
	return account.ID, nil
}

func (r *memAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (r *memAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	return ok && account.UserID == userID, nil
}

func (r *memAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []*models.SocialAccount
	for _, account := range r.accounts {
		if account.UserID == userID {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	return accounts, nil
}

func (r *memAccountRepo) ListByExpiryInterval(ctx context.Context, from, to time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (r *memAccountRepo) SetToken(ctx context.Context, accountID int64, account *models.SocialAccount) error {
	return nil
}

func (r *memAccountRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

// fakeResolver serves signed URLs from a fixed map.
type fakeResolver struct {
	urls map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, paths []string) (map[string]string, error) {
	urls := make(map[string]string, len(paths))
	for _, path := range paths {
		if url, ok := f.urls[path]; ok {
			urls[path] = url
		}
	}
	return urls, nil
}

func (f *fakeResolver) Invalidate(path string) {}

type fakeUploader struct {
	mu      sync.Mutex
	fail    bool
	uploads map[string]string
}

func (f *fakeUploader) UploadToR2(ctx context.Context, key string, file []byte, filetype string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("upload failed")
	}
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[key] = filetype
	return nil
}

type fakeCopier struct {
	mu     sync.Mutex
	failOn map[string]bool
	copies [][2]string
}

func (f *fakeCopier) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[srcKey] {
		return errAssetCopy
	}
	f.copies = append(f.copies, [2]string{srcKey, dstKey})
	return nil
}
