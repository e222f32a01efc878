package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user. Rows are created lazily on the first
// request carrying a verified token from the auth provider.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	ProviderID *string   `json:"provider_id,omitempty"`
	Name       *string   `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
