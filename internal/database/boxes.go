package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/models"
)

// BoxRepository handles box database operations
type BoxRepository struct {
	db *DB
}

// NewBoxRepository creates a new box repository
func NewBoxRepository(db *DB) *BoxRepository {
	return &BoxRepository{db: db}
}

// Create creates a new box
func (r *BoxRepository) Create(ctx context.Context, box *models.Box) error {
	query := `
		INSERT INTO boxes (id, workspace_id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		box.ID,
		box.WorkspaceID,
		box.UserID,
		box.Name,
		box.Description,
		now,
		now,
	).Scan(&box.CreatedAt, &box.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create box: %w", err)
	}

	return nil
}

// GetByID retrieves a box by ID
func (r *BoxRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Box, error) {
	box := &models.Box{}
	query := `
		SELECT id, workspace_id, user_id, name, description, created_at, updated_at
		FROM boxes
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&box.ID,
		&box.WorkspaceID,
		&box.UserID,
		&box.Name,
		&box.Description,
		&box.CreatedAt,
		&box.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("box not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get box: %w", err)
	}

	return box, nil
}

// GetByWorkspaceID retrieves all boxes in a workspace, oldest first
func (r *BoxRepository) GetByWorkspaceID(ctx context.Context, workspaceID uuid.UUID) ([]*models.Box, error) {
	query := `
		SELECT id, workspace_id, user_id, name, description, created_at, updated_at
		FROM boxes
		WHERE workspace_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query boxes: %w", err)
	}
	defer rows.Close()

	var boxes []*models.Box
	for rows.Next() {
		box := &models.Box{}
		if err := rows.Scan(
			&box.ID,
			&box.WorkspaceID,
			&box.UserID,
			&box.Name,
			&box.Description,
			&box.CreatedAt,
			&box.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		boxes = append(boxes, box)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boxes: %w", err)
	}

	return boxes, nil
}

// Update updates a box's name and description
func (r *BoxRepository) Update(ctx context.Context, box *models.Box) error {
	query := `
		UPDATE boxes
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		box.ID,
		box.Name,
		box.Description,
		time.Now(),
	).Scan(&box.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("box not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update box: %w", err)
	}

	return nil
}

// Delete deletes a box by ID
func (r *BoxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM boxes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete box: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("box not found")
	}

	return nil
}
