package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubjectLoop is the subject type under which loop notes and nuggets are stored.
const SubjectLoop = "loop"

// Note is a timestamped, optionally authored markdown body attached to a subject.
type Note struct {
	ID          uuid.UUID  `json:"id"`
	SubjectType string     `json:"subject_type"`
	SubjectID   uuid.UUID  `json:"subject_id"`
	AuthorID    *uuid.UUID `json:"author_id,omitempty"`
	AuthorName  string     `json:"author_name,omitempty"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
}

type NoteOrder int

const (
	OldestFirst NoteOrder = iota
	NewestFirst
)

// NoteCollection is the notes capability of an entity.
type NoteCollection interface {
	AddNote(ctx context.Context, subjectID uuid.UUID, note *Note) error
	Notes(ctx context.Context, subjectID uuid.UUID, order NoteOrder) ([]Note, error)
	// EarliestNote and NewestNote return ErrNoNotes for an empty collection.
	EarliestNote(ctx context.Context, subjectID uuid.UUID) (*Note, error)
	NewestNote(ctx context.Context, subjectID uuid.UUID) (*Note, error)
}

// NoteList is a slice of notes sorted oldest first.
type NoteList []Note

func (n NoteList) Earliest() (*Note, error) {
	if len(n) == 0 {
		return nil, ErrNoNotes
	}
	note := n[0]
	return &note, nil
}

func (n NoteList) Newest() (*Note, error) {
	if len(n) == 0 {
		return nil, ErrNoNotes
	}
	note := n[len(n)-1]
	return &note, nil
}

// OpenedBy returns the author of the earliest note. The author is nil when that
// note was written anonymously.
func (n NoteList) OpenedBy() (*uuid.UUID, error) {
	first, err := n.Earliest()
	if err != nil {
		return nil, err
	}
	return first.AuthorID, nil
}
