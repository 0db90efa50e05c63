package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

const noteSelect = `
SELECT n.id, n.subject_type, n.subject_id, n.user_id, coalesce(u.display_name, ''), n.body, n.created_at
FROM notes n
LEFT JOIN users u ON u.id = n.user_id
WHERE n.subject_type = $1 AND n.subject_id = $2`

// NoteRepository stores notes for one subject type. It implements domain.NoteCollection.
type NoteRepository struct {
	db          DBTX
	subjectType string
}

var _ domain.NoteCollection = (*NoteRepository)(nil)

func NewNoteRepository(db DBTX, subjectType string) *NoteRepository {
	return &NoteRepository{db: db, subjectType: subjectType}
}

func (r *NoteRepository) AddNote(ctx context.Context, subjectID uuid.UUID, note *domain.Note) error {
	if strings.TrimSpace(note.Body) == "" {
		return domain.ErrInvalidNote
	}
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	note.SubjectType = r.subjectType
	note.SubjectID = subjectID

	const q = `
INSERT INTO notes (id, subject_type, subject_id, user_id, body)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at;
`
	err := r.db.QueryRowContext(ctx, q,
		note.ID, note.SubjectType, note.SubjectID, nullUUID(note.AuthorID), note.Body,
	).Scan(&note.CreatedAt)
	if err != nil {
		if mapped := translateFK(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to add note: %w", err)
	}
	return nil
}

func (r *NoteRepository) Notes(ctx context.Context, subjectID uuid.UUID, order domain.NoteOrder) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, noteSelect+orderClause(order), r.subjectType, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Note, 0, 8)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NoteRepository) EarliestNote(ctx context.Context, subjectID uuid.UUID) (*domain.Note, error) {
	return r.firstBy(ctx, subjectID, domain.OldestFirst)
}

func (r *NoteRepository) NewestNote(ctx context.Context, subjectID uuid.UUID) (*domain.Note, error) {
	return r.firstBy(ctx, subjectID, domain.NewestFirst)
}

func (r *NoteRepository) firstBy(ctx context.Context, subjectID uuid.UUID, order domain.NoteOrder) (*domain.Note, error) {
	q := noteSelect + orderClause(order) + "\nLIMIT 1"

	n, err := scanNote(r.db.QueryRowContext(ctx, q, r.subjectType, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoNotes
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

func orderClause(order domain.NoteOrder) string {
	if order == domain.NewestFirst {
		return "\nORDER BY n.created_at DESC, n.id DESC"
	}
	return "\nORDER BY n.created_at ASC, n.id ASC"
}

func scanNote(row rowScanner) (*domain.Note, error) {
	var n domain.Note
	var author uuid.NullUUID

	if err := row.Scan(
		&n.ID,
		&n.SubjectType,
		&n.SubjectID,
		&author,
		&n.AuthorName,
		&n.Body,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}

	n.AuthorID = uuidPtr(author)
	return &n, nil
}
