package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType tags one unit of recorded engagement with a block
type ActivityType string

const (
	ActivityBlockCreate     ActivityType = "block_create"
	ActivityBlockEdit       ActivityType = "block_edit"
	ActivityBlockRead       ActivityType = "block_read"
	ActivityBlockDelete     ActivityType = "block_delete"
	ActivityChatInteraction ActivityType = "chat_interaction"
	ActivityImageUpload     ActivityType = "image_upload"
)

// ActivityLog is one persisted engagement record. At most one row exists per
// (user, block, type, calendar day); same-day writes accumulate into
// DurationMinutes and refresh CreatedAt.
type ActivityLog struct {
	ID              uuid.UUID    `json:"id"`
	UserID          uuid.UUID    `json:"user_id"`
	BlockID         uuid.UUID    `json:"block_id"`
	ActivityType    ActivityType `json:"activity_type"`
	DurationMinutes int          `json:"duration_minutes"`
	CreatedAt       time.Time    `json:"created_at"`
}
