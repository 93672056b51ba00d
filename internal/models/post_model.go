package models

import (
	"database/sql"
	"time"
)

type PostStatus string

const (
	PostStatusDraft      PostStatus = "DRAFT"
	PostStatusInbox      PostStatus = "INBOX"
	PostStatusProcessing PostStatus = "PROCESSING"
	PostStatusPublished  PostStatus = "PUBLISHED"
	PostStatusFailed     PostStatus = "FAILED"
)

// allowedTransitions is the single source of truth for the post state
// machine. PUBLISHED and FAILED are terminal.
var allowedTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:      {PostStatusProcessing},
	PostStatusInbox:      {PostStatusProcessing, PostStatusPublished, PostStatusFailed},
	PostStatusProcessing: {PostStatusInbox, PostStatusPublished, PostStatusFailed},
}

func (s PostStatus) CanTransitionTo(target PostStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed
}

type Post struct {
	ID            int64          `db:"id" json:"id"`
	UserID        int64          `db:"user_id" json:"user_id"`
	AccountID     int64          `db:"account_id" json:"account_id"`
	Title         string         `db:"title" json:"title"`
	Description   string         `db:"description" json:"description"`
	Status        PostStatus     `db:"status" json:"status"`
	PublishID     sql.NullString `db:"publish_id" json:"publish_id"`
	PublicURL     sql.NullString `db:"public_url" json:"public_url"`
	FailureReason sql.NullString `db:"failure_reason" json:"failure_reason"`
	ScheduledTime sql.NullTime   `db:"scheduled_time" json:"scheduled_time"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	AssetTypeVideo         = "video"
	AssetTypeImageSequence = "image-sequence"
)

// PostAsset rows of a post form a contiguous, order-unique sequence
// starting at zero.
type PostAsset struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	AssetType    string    `db:"asset_type" json:"asset_type"`
	StoragePath  string    `db:"storage_path" json:"storage_path"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
