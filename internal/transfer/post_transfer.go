package transfer

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/reelflow/reelflow-api/internal/models"
)

type PostCreation struct {
	Title         string
	Description   string
	AccountID     string
	ScheduledTime string
}

type PostUpdate struct {
	PostID      int64  `json:"post_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CloneResult reports a best-effort clone. SkippedPaths holds the source
// storage paths whose copy failed; Partial is true when any were skipped.
type CloneResult struct {
	Post         *models.Post        `json:"post"`
	Assets       []*models.PostAsset `json:"assets"`
	SkippedPaths []string            `json:"skipped_paths"`
	Partial      bool                `json:"partial"`
}

type PostWithAssets struct {
	Post      *models.Post        `json:"post"`
	Assets    []*models.PostAsset `json:"assets"`
	AssetURLs map[string]string   `json:"asset_urls"`
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
