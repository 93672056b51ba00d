package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/reelflow/reelflow-api/internal/models"
)

type PostAssetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, asset *models.PostAsset) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PostAsset, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostAsset, error)
	RemoveAndRenumber(ctx context.Context, postID, assetID int64) error
}

type postAssetRepository struct {
	db *sql.DB
}

func NewPostAssetRepository(db *sql.DB) PostAssetRepository {
	return &postAssetRepository{db: db}
}

func (r *postAssetRepository) Create(ctx context.Context, tx *sql.Tx, asset *models.PostAsset) (int64, error) {
	query := `
		INSERT INTO post_assets (post_id, display_order, asset_type, storage_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, asset.PostID, asset.DisplayOrder, asset.AssetType, asset.StoragePath).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, asset.PostID, asset.DisplayOrder, asset.AssetType, asset.StoragePath).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postAssetRepository) GetByID(ctx context.Context, id int64) (*models.PostAsset, error) {
	query := `
		SELECT id, post_id, display_order, asset_type, storage_path, created_at
		FROM post_assets
		WHERE id = $1
	`

	var asset models.PostAsset
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.PostID,
		&asset.DisplayOrder,
		&asset.AssetType,
		&asset.StoragePath,
		&asset.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &asset, nil
}

func (r *postAssetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAsset, error) {
	query := `
		SELECT id, post_id, display_order, asset_type, storage_path, created_at
		FROM post_assets
		WHERE post_id = $1
		ORDER BY display_order
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assets []*models.PostAsset
	for rows.Next() {
		var asset models.PostAsset
		if err := rows.Scan(&asset.ID, &asset.PostID, &asset.DisplayOrder, &asset.AssetType, &asset.StoragePath, &asset.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assets = append(assets, &asset)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return assets, nil
}

// RemoveAndRenumber deletes one asset and compacts the display order of the
// remaining rows in the same transaction, keeping the sequence contiguous.
func (r *postAssetRepository) RemoveAndRenumber(ctx context.Context, postID, assetID int64) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	deleteQuery := `
		DELETE FROM post_assets
		WHERE id = $1 AND post_id = $2
	`

	result, err := tx.ExecContext(ctx, deleteQuery, assetID, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	renumberQuery := `
		WITH ordered AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY display_order) - 1 AS new_order
			FROM post_assets
			WHERE post_id = $1
		)
		UPDATE post_assets
		SET display_order = ordered.new_order
		FROM ordered
		WHERE post_assets.id = ordered.id
	`

	if _, err = tx.ExecContext(ctx, renumberQuery, postID); err != nil {
		slog.Info(err.Error())
		return err
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
