package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("project not found")
	ErrInvalidName = errors.New("project name required")
)

// Project groups loops and is owned by a single user.
// It is intentionally storage-agnostic and used across repository and HTTP layers.
type Project struct {
	ID          uuid.UUID `json:"id"`
	PublicID    string    `json:"public_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OpenLoops   int       `json:"open_loops"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
