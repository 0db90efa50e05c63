package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

// NuggetRepository stores nuggets for one subject type. It implements domain.TagCollection.
type NuggetRepository struct {
	db          DBTX
	subjectType string
}

var _ domain.TagCollection = (*NuggetRepository)(nil)

func NewNuggetRepository(db DBTX, subjectType string) *NuggetRepository {
	return &NuggetRepository{db: db, subjectType: subjectType}
}

func (r *NuggetRepository) AddNugget(ctx context.Context, subjectID uuid.UUID, nugget *domain.Nugget) error {
	label, err := domain.NormalizeLabel(nugget.Label)
	if err != nil {
		return err
	}
	if nugget.ID == uuid.Nil {
		nugget.ID = uuid.New()
	}
	nugget.Label = label
	nugget.SubjectType = r.subjectType
	nugget.SubjectID = subjectID

	const q = `
INSERT INTO nuggets (id, subject_type, subject_id, label)
VALUES ($1, $2, $3, $4)
RETURNING created_at;
`
	err = r.db.QueryRowContext(ctx, q, nugget.ID, nugget.SubjectType, nugget.SubjectID, nugget.Label).
		Scan(&nugget.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateNugget
		}
		return fmt.Errorf("failed to add nugget: %w", err)
	}
	return nil
}

func (r *NuggetRepository) RemoveNugget(ctx context.Context, subjectID uuid.UUID, label string) error {
	label, err := domain.NormalizeLabel(label)
	if err != nil {
		return err
	}

	const q = `
DELETE FROM nuggets
WHERE subject_type = $1 AND subject_id = $2 AND label = $3;
`
	result, err := r.db.ExecContext(ctx, q, r.subjectType, subjectID, label)
	if err != nil {
		return fmt.Errorf("failed to remove nugget: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNuggetNotFound
	}
	return nil
}

func (r *NuggetRepository) Nuggets(ctx context.Context, subjectID uuid.UUID) ([]domain.Nugget, error) {
	const q = `
SELECT id, subject_type, subject_id, label, created_at
FROM nuggets
WHERE subject_type = $1 AND subject_id = $2
ORDER BY label;
`
	rows, err := r.db.QueryContext(ctx, q, r.subjectType, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nuggets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Nugget, 0, 8)
	for rows.Next() {
		var n domain.Nugget
		if err := rows.Scan(&n.ID, &n.SubjectType, &n.SubjectID, &n.Label, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LabelsFor loads the labels of many subjects in one query, keyed by subject id.
func (r *NuggetRepository) LabelsFor(ctx context.Context, subjectIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(subjectIDs))
	if len(subjectIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(subjectIDs))
	for i, id := range subjectIDs {
		ids[i] = id.String()
	}

	const q = `
SELECT subject_id, label
FROM nuggets
WHERE subject_type = $1 AND subject_id = ANY($2::uuid[])
ORDER BY label;
`
	rows, err := r.db.QueryContext(ctx, q, r.subjectType, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load nugget labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out[id] = append(out[id], label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
