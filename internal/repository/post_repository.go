package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/reelflow/reelflow-api/internal/models"
)

// PostUpdateFields carries the attribute writes that ride along with a
// status transition. Nil pointers leave the stored value untouched.
type PostUpdateFields struct {
	PublishID     *string
	PublicURL     *string
	FailureReason *string
}

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByPublishID(ctx context.Context, publishID string) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	UpdateStatusWhere(ctx context.Context, postID int64, target models.PostStatus, expected []models.PostStatus, fields *PostUpdateFields) (*models.Post, error)
	UpdateDraft(ctx context.Context, postID int64, title, description string) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, account_id, title, description, status, publish_id, public_url, failure_reason, scheduled_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.AccountID,
		&post.Title,
		&post.Description,
		&post.Status,
		&post.PublishID,
		&post.PublicURL,
		&post.FailureReason,
		&post.ScheduledTime,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, account_id, title, description, status, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.AccountID, post.Title, post.Description, post.Status, post.ScheduledTime).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.AccountID, post.Title, post.Description, post.Status, post.ScheduledTime).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByPublishID(ctx context.Context, publishID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE publish_id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, publishID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// UpdateStatusWhere performs the status transition as a single conditional
// write. The row is only updated when its current status is one of expected,
// so two racing callers can never both succeed. Returns nil when no row
// matched (missing post or stale precondition).
func (r *postRepository) UpdateStatusWhere(ctx context.Context, postID int64, target models.PostStatus, expected []models.PostStatus, fields *PostUpdateFields) (*models.Post, error) {
	query := `
		UPDATE posts
		SET status = $1,
			publish_id = COALESCE($2, publish_id),
			public_url = COALESCE($3, public_url),
			failure_reason = COALESCE($4, failure_reason),
			updated_at = $5
		WHERE id = $6 AND status = ANY($7)
		RETURNING ` + postColumns

	if fields == nil {
		fields = &PostUpdateFields{}
	}

	statuses := make([]string, len(expected))
	for i, s := range expected {
		statuses[i] = string(s)
	}

	post, err := scanPost(r.db.QueryRowContext(ctx, query,
		target,
		fields.PublishID,
		fields.PublicURL,
		fields.FailureReason,
		time.Now(),
		postID,
		pq.Array(statuses),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) UpdateDraft(ctx context.Context, postID int64, title, description string) (bool, error) {
	query := `
		UPDATE posts
		SET title = $1,
			description = $2,
			updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, title, description, time.Now(), postID, models.PostStatusDraft)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	return affected > 0, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
