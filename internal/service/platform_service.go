package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	config "github.com/reelflow/reelflow-api/configs"
	"github.com/reelflow/reelflow-api/internal/models"
	"github.com/reelflow/reelflow-api/internal/repository"
	"github.com/reelflow/reelflow-api/internal/transfer"
	"github.com/reelflow/reelflow-api/pkg/utils"
)

const platformAuthURL = "https://www.tiktok.com/v2/auth/authorize"

type PlatformService interface {
	GetAuthURL(ctx context.Context, tokenString string) string
	Callback(ctx context.Context, code string, userID int64) error
	RefreshToken(ctx context.Context, account *models.SocialAccount) error
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewPlatformService(cfg config.Config, sa repository.SocialAccountRepository) PlatformService {
	return &platformService{
		cfg: cfg,
		sa:  sa,
	}
}

func (s *platformService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.PlatformClientKey,
		ClientSecret: s.cfg.PlatformClientSecret,
		RedirectURL:  s.cfg.PlatformRedirectURI,
		Scopes:       []string{"user.info.basic", "user.info.profile", "video.publish", "video.upload"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  platformAuthURL,
			TokenURL: s.cfg.PlatformAPIBaseURL + "/v2/oauth/token/",
		},
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, tokenString string) string {
	return s.oauthConfig().AuthCodeURL(tokenString)
}

func (s *platformService) Callback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("token exchange failed: %w", err)
	}

	userInfo, err := s.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		UserID:          userID,
		AccountID:       userInfo.Data.User.OpenID,
		AccountName:     userInfo.Data.User.DisplayName,
		AccountUsername: userInfo.Data.User.Username,
		ProfilePicture:  userInfo.Data.User.AvatarURL,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  token.Expiry,
	}

	_, err = s.sa.Create(ctx, nil, accountInfo)
	if err != nil {
		return err
	}

	return nil
}

func (s *platformService) fetchUserInfo(ctx context.Context, accessToken string) (*transfer.PlatformUserResponse, error) {
	infoURL := s.cfg.PlatformAPIBaseURL + "/v2/user/info/?fields=open_id,avatar_url,display_name,username"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.PlatformUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &result, nil
}

func (s *platformService) RefreshToken(ctx context.Context, account *models.SocialAccount) error {
	decryptedRefreshToken, err := utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	source := s.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: decryptedRefreshToken})
	token, err := source.Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = decryptedRefreshToken
	}
	encryptedRefreshToken, err := utils.Encrypt([]byte(refreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	updated := models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: token.Expiry,
	}

	return s.sa.SetToken(ctx, account.ID, &updated)
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social accounts")
	}

	return accounts, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("Social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	accountInfo, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("Unable to get social account info")
	}

	decryptedAccessToken, err := utils.Decrypt(accountInfo.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	if err = s.revokeAccess(ctx, accountInfo.AccountID, decryptedAccessToken); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("Unable to revoke access")
	}

	if err = s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("Error removing account Info")
	}

	return nil
}

func (s *platformService) revokeAccess(ctx context.Context, openID, accessToken string) error {
	params := url.Values{}
	params.Add("open_id", openID)
	params.Add("access_token", accessToken)

	revokeURL := s.cfg.PlatformAPIBaseURL + "/v2/oauth/revoke/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
