package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/reelflow/reelflow-api/internal/models"
)

type SocialAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, account *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	ListByExpiryInterval(ctx context.Context, from, to time.Time) ([]*models.SocialAccount, error)
	SetToken(ctx context.Context, accountID int64, account *models.SocialAccount) error
	Remove(ctx context.Context, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, account *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts (user_id, account_id, account_name, account_username, profile_picture, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, account_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, account.UserID, account.AccountID, account.AccountName, account.AccountUsername, account.ProfilePicture, account.AccessToken, account.RefreshToken, account.TokenExpiresAt).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, account.UserID, account.AccountID, account.AccountName, account.AccountUsername, account.ProfilePicture, account.AccessToken, account.RefreshToken, account.TokenExpiresAt).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `
		SELECT id, user_id, account_id, account_name, account_username, profile_picture, access_token, refresh_token, token_expires_at, created_at
		FROM social_accounts
		WHERE id = $1
	`

	var account models.SocialAccount
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.AccountID,
		&account.AccountName,
		&account.AccountUsername,
		&account.ProfilePicture,
		&account.AccessToken,
		&account.RefreshToken,
		&account.TokenExpiresAt,
		&account.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &account, nil
}

func (r *socialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *socialAccountRepository) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	query := `
		SELECT id, user_id, account_id, account_name, account_username, profile_picture, token_expires_at, created_at
		FROM social_accounts
		WHERE user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var account models.SocialAccount
		err := rows.Scan(&account.ID, &account.UserID, &account.AccountID, &account.AccountName, &account.AccountUsername, &account.ProfilePicture, &account.TokenExpiresAt, &account.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

func (r *socialAccountRepository) ListByExpiryInterval(ctx context.Context, from, to time.Time) ([]*models.SocialAccount, error) {
	query := `
		SELECT id, user_id, account_id, account_name, account_username, profile_picture, access_token, refresh_token, token_expires_at, created_at
		FROM social_accounts
		WHERE token_expires_at BETWEEN $1 AND $2
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var account models.SocialAccount
		err := rows.Scan(&account.ID, &account.UserID, &account.AccountID, &account.AccountName, &account.AccountUsername, &account.ProfilePicture, &account.AccessToken, &account.RefreshToken, &account.TokenExpiresAt, &account.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

func (r *socialAccountRepository) SetToken(ctx context.Context, accountID int64, account *models.SocialAccount) error {
	query := `
		UPDATE social_accounts
		SET access_token = $1,
			refresh_token = $2,
			token_expires_at = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, account.AccessToken, account.RefreshToken, account.TokenExpiresAt, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
