package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/loops-hq/loops-backend/internal/projects/domain"
)

const projectColumns = `p.id, p.public_id, p.user_id, p.name, p.description,
       (SELECT count(*) FROM loops l WHERE l.project_id = p.id AND l.status = 'open'),
       p.created_at, p.updated_at`

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID,
		&p.PublicID,
		&p.OwnerID,
		&p.Name,
		&p.Description,
		&p.OpenLoops,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new project for the given user.
func (r *ProjectRepository) Create(ctx context.Context, userID uuid.UUID, name, description string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidName
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}

	for i := 0; i < 5; i++ {
		publicID, err := domain.NewPublicID(domain.PublicIDPrefix)
		if err != nil {
			return nil, err
		}

		const q = `
INSERT INTO projects (id, public_id, user_id, name, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, public_id, user_id, name, description, 0, created_at, updated_at;
`
		p, err := scanProject(r.db.QueryRowContext(ctx, q, uuid.New(), publicID, userID, name, description))
		if err == nil {
			return p, nil
		}

		// unique violation on public_id → retry
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique project id")
}

// List returns all non-deleted projects for the given user.
func (r *ProjectRepository) List(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	q := `
SELECT ` + projectColumns + `
FROM projects p
WHERE p.user_id = $1 AND p.deleted_at IS NULL
ORDER BY p.created_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByPublicID returns a live project owned by the user.
func (r *ProjectRepository) GetByPublicID(ctx context.Context, userID uuid.UUID, publicID string) (*domain.Project, error) {
	q := `
SELECT ` + projectColumns + `
FROM projects p
WHERE p.user_id = $1 AND p.public_id = $2 AND p.deleted_at IS NULL;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, userID, publicID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Rename updates the project's name.
func (r *ProjectRepository) Rename(ctx context.Context, userID uuid.UUID, publicID, newName string) (*domain.Project, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, domain.ErrInvalidName
	}

	q := `
UPDATE projects p
SET name = $3, updated_at = now()
WHERE p.user_id = $1 AND p.public_id = $2 AND p.deleted_at IS NULL
RETURNING ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, userID, publicID, newName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// SoftDelete marks a project as deleted (soft delete). Its loops drop out of every listing.
func (r *ProjectRepository) SoftDelete(ctx context.Context, userID uuid.UUID, publicID string) (bool, error) {
	const q = `
UPDATE projects
SET deleted_at = now(), updated_at = now()
WHERE user_id = $1 AND public_id = $2 AND deleted_at IS NULL;
`
	result, err := r.db.ExecContext(ctx, q, userID, publicID)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// Assignees returns the distinct users assigned to loops of a live project owned by userID.
func (r *ProjectRepository) Assignees(ctx context.Context, userID uuid.UUID, publicID string) ([]uuid.UUID, error) {
	const q = `
SELECT DISTINCT l.user_id
FROM loops l
JOIN projects p ON p.id = l.project_id
WHERE p.user_id = $1 AND p.public_id = $2 AND p.deleted_at IS NULL AND l.user_id IS NOT NULL;
`
	rows, err := r.db.QueryContext(ctx, q, userID, publicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project assignees: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
