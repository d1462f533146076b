package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

type MediaAssetRepository interface {
	GetByID(ctx context.Context, id int64) (*models.MediaAsset, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*models.MediaAsset, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

const mediaAssetColumns = `id, user_id, file_name, file_type, file_url, storage_key, created_at`

func scanMediaAsset(row rowScanner) (*models.MediaAsset, error) {
	var ma models.MediaAsset
	var fileURL, storageKey sql.NullString
	err := row.Scan(&ma.ID, &ma.UserID, &ma.FileName, &ma.FileType, &fileURL, &storageKey, &ma.CreatedAt)
	if err != nil {
		return nil, err
	}
	ma.FileURL = fileURL.String
	ma.StorageKey = storageKey.String
	return &ma, nil
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	query := `SELECT ` + mediaAssetColumns + ` FROM media_assets WHERE id = $1`

	ma, err := scanMediaAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return ma, nil
}

// ListByIDs returns the assets in the order of ids. Unknown ids are skipped.
func (r *mediaAssetRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.MediaAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + mediaAssetColumns + ` FROM media_assets WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]*models.MediaAsset, len(ids))
	for rows.Next() {
		ma, err := scanMediaAsset(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		byID[ma.ID] = ma
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	assets := make([]*models.MediaAsset, 0, len(ids))
	for _, id := range ids {
		if ma, ok := byID[id]; ok {
			assets = append(assets, ma)
		}
	}
	return assets, nil
}
