package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/models"
)

// ActivityLogRepository handles activity log database operations.
//
// Writes merge-on-write: the table carries an activity_date column with a
// UNIQUE(user_id, block_id, activity_type, activity_date) constraint, so a
// same-day write for the same block and type folds into the existing row
// atomically instead of racing a read-then-update.
type ActivityLogRepository struct {
	db *DB
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Record persists an activity log entry. If a row for the same
// (user, block, type, calendar day) already exists, its duration_minutes is
// incremented and created_at refreshed; otherwise a new row is inserted.
// The merged row is written back into log.
func (r *ActivityLogRepository) Record(ctx context.Context, log *models.ActivityLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	query := `
		INSERT INTO activity_logs (id, user_id, block_id, activity_type, duration_minutes, activity_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, block_id, activity_type, activity_date) DO UPDATE
		SET duration_minutes = activity_logs.duration_minutes + EXCLUDED.duration_minutes,
		    created_at = EXCLUDED.created_at
		RETURNING id, duration_minutes, created_at
	`

	activityDate := log.CreatedAt.Format("2006-01-02")
	err := r.db.QueryRowContext(ctx, query,
		log.ID,
		log.UserID,
		log.BlockID,
		log.ActivityType,
		log.DurationMinutes,
		activityDate,
		log.CreatedAt,
	).Scan(&log.ID, &log.DurationMinutes, &log.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record activity log: %w", err)
	}

	return nil
}

// GetByUserID retrieves all activity logs for a user, newest first
func (r *ActivityLogRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, user_id, block_id, activity_type, duration_minutes, created_at
		FROM activity_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	return scanActivityLogs(rows)
}

// GetSince retrieves a user's activity logs whose created_at is at or after
// the given time, oldest first.
func (r *ActivityLogRepository) GetSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, user_id, block_id, activity_type, duration_minutes, created_at
		FROM activity_logs
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity logs: %w", err)
	}
	defer rows.Close()

	return scanActivityLogs(rows)
}

type activityRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanActivityLogs(rows activityRows) ([]*models.ActivityLog, error) {
	var logs []*models.ActivityLog
	for rows.Next() {
		log := &models.ActivityLog{}
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.BlockID,
			&log.ActivityType,
			&log.DurationMinutes,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity logs: %w", err)
	}

	return logs, nil
}
