package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Nugget is a short label attached to a subject.
type Nugget struct {
	ID          uuid.UUID `json:"id"`
	SubjectType string    `json:"subject_type"`
	SubjectID   uuid.UUID `json:"subject_id"`
	Label       string    `json:"label"`
	CreatedAt   time.Time `json:"created_at"`
}

// TagCollection is the nuggets capability of an entity.
type TagCollection interface {
	AddNugget(ctx context.Context, subjectID uuid.UUID, nugget *Nugget) error
	RemoveNugget(ctx context.Context, subjectID uuid.UUID, label string) error
	Nuggets(ctx context.Context, subjectID uuid.UUID) ([]Nugget, error)
}

// NormalizeLabel trims and lower-cases a nugget label.
func NormalizeLabel(label string) (string, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return "", ErrInvalidNugget
	}
	return l, nil
}
