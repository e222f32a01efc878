package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/models"
)

// BlockRepository handles block database operations
type BlockRepository struct {
	db *DB
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(db *DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// Create creates a new block
func (r *BlockRepository) Create(ctx context.Context, block *models.Block) error {
	query := `
		INSERT INTO blocks (id, box_id, user_id, title, content, cover_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		block.ID,
		block.BoxID,
		block.UserID,
		block.Title,
		block.Content,
		block.CoverImageURL,
		now,
		now,
	).Scan(&block.CreatedAt, &block.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create block: %w", err)
	}

	return nil
}

// GetByID retrieves a block by ID
func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Block, error) {
	block := &models.Block{}
	var coverImageURL sql.NullString

	query := `
		SELECT id, box_id, user_id, title, content, cover_image_url, created_at, updated_at
		FROM blocks
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&block.ID,
		&block.BoxID,
		&block.UserID,
		&block.Title,
		&block.Content,
		&coverImageURL,
		&block.CreatedAt,
		&block.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("block not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}

	if coverImageURL.Valid {
		block.CoverImageURL = &coverImageURL.String
	}

	return block, nil
}

// GetByBoxID retrieves all blocks in a box, oldest first
func (r *BlockRepository) GetByBoxID(ctx context.Context, boxID uuid.UUID) ([]*models.Block, error) {
	query := `
		SELECT id, box_id, user_id, title, content, cover_image_url, created_at, updated_at
		FROM blocks
		WHERE box_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, boxID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*models.Block
	for rows.Next() {
		block := &models.Block{}
		var coverImageURL sql.NullString

		if err := rows.Scan(
			&block.ID,
			&block.BoxID,
			&block.UserID,
			&block.Title,
			&block.Content,
			&coverImageURL,
			&block.CreatedAt,
			&block.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}

		if coverImageURL.Valid {
			block.CoverImageURL = &coverImageURL.String
		}

		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocks: %w", err)
	}

	return blocks, nil
}

// Update updates a block's title, content and cover image
func (r *BlockRepository) Update(ctx context.Context, block *models.Block) error {
	query := `
		UPDATE blocks
		SET title = $2, content = $3, cover_image_url = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at
	`

	var coverImageURL sql.NullString
	if block.CoverImageURL != nil {
		coverImageURL = sql.NullString{String: *block.CoverImageURL, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		block.ID,
		block.Title,
		block.Content,
		coverImageURL,
		time.Now(),
	).Scan(&block.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("block not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update block: %w", err)
	}

	return nil
}

// Delete deletes a block by ID
func (r *BlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("block not found")
	}

	return nil
}
