package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/models"
)

// WorkspaceRepositoryInterface defines the interface for workspace repository operations
// This interface enables better testability by allowing mock implementations
type WorkspaceRepositoryInterface interface {
	Create(ctx context.Context, ws *models.Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error)
	Update(ctx context.Context, ws *models.Workspace) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BoxRepositoryInterface defines the interface for box repository operations
type BoxRepositoryInterface interface {
	Create(ctx context.Context, box *models.Box) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Box, error)
	GetByWorkspaceID(ctx context.Context, workspaceID uuid.UUID) ([]*models.Box, error)
	Update(ctx context.Context, box *models.Box) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlockRepositoryInterface defines the interface for block repository operations
type BlockRepositoryInterface interface {
	Create(ctx context.Context, block *models.Block) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Block, error)
	GetByBoxID(ctx context.Context, boxID uuid.UUID) ([]*models.Block, error)
	Update(ctx context.Context, block *models.Block) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ActivityLogRepositoryInterface defines the interface for activity log repository operations
type ActivityLogRepositoryInterface interface {
	Record(ctx context.Context, log *models.ActivityLog) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ActivityLog, error)
	GetSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.ActivityLog, error)
}

// Ensure concrete types implement the interfaces
var (
	_ WorkspaceRepositoryInterface   = (*WorkspaceRepository)(nil)
	_ BoxRepositoryInterface         = (*BoxRepository)(nil)
	_ BlockRepositoryInterface       = (*BlockRepository)(nil)
	_ ActivityLogRepositoryInterface = (*ActivityLogRepository)(nil)
)
