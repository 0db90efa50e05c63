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

var loopColumns = []string{
	"l.id", "l.project_id", "l.name", "l.status", "l.description",
	"l.user_id", "l.created_at", "l.updated_at",
}

// visibleLoopQuery selects a loop the viewer either owns through its project or is assigned to.
var visibleLoopQuery = `
SELECT ` + strings.Join(loopColumns, ", ") + `
FROM loops l
JOIN projects p ON p.id = l.project_id
WHERE l.id = $1
  AND p.deleted_at IS NULL
  AND (p.user_id = $2 OR l.user_id = $2)`

// LoopRepository provides persistence operations for loops
type LoopRepository struct {
	db DBTX
}

// NewLoopRepository creates a new loop repository
func NewLoopRepository(db DBTX) *LoopRepository {
	return &LoopRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoop(row rowScanner) (*domain.Loop, error) {
	var l domain.Loop
	var status string
	var userID uuid.NullUUID

	if err := row.Scan(
		&l.ID,
		&l.ProjectID,
		&l.Name,
		&status,
		&l.Description,
		&userID,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	l.Status = domain.Status(status)
	l.UserID = uuidPtr(userID)
	return &l, nil
}

// Create inserts a new loop. ID and status default to a fresh UUID and open.
func (r *LoopRepository) Create(ctx context.Context, l *domain.Loop) error {
	if strings.TrimSpace(l.Name) == "" {
		return domain.ErrInvalidName
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = domain.StatusOpen
	}
	if !l.Status.Valid() {
		return domain.ErrInvalidStatus
	}

	const q = `
INSERT INTO loops (id, project_id, name, status, description, user_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q,
		l.ID, l.ProjectID, l.Name, string(l.Status), l.Description, nullUUID(l.UserID),
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if mapped := translateFK(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create loop: %w", err)
	}
	return nil
}

// GetByID retrieves a loop regardless of who is asking.
func (r *LoopRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loop, error) {
	q := `SELECT ` + strings.Join(loopColumns, ", ") + ` FROM loops l WHERE l.id = $1`

	l, err := scanLoop(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLoopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loop: %w", err)
	}
	return l, nil
}

// GetVisible retrieves a loop the viewer owns through its project or is assigned to.
func (r *LoopRepository) GetVisible(ctx context.Context, id, viewerID uuid.UUID) (*domain.Loop, error) {
	return r.getVisible(ctx, visibleLoopQuery, id, viewerID)
}

// LockVisible is GetVisible with a row lock; use it inside a transaction.
func (r *LoopRepository) LockVisible(ctx context.Context, id, viewerID uuid.UUID) (*domain.Loop, error) {
	return r.getVisible(ctx, visibleLoopQuery+"\nFOR UPDATE OF l", id, viewerID)
}

func (r *LoopRepository) getVisible(ctx context.Context, q string, id, viewerID uuid.UUID) (*domain.Loop, error) {
	l, err := scanLoop(r.db.QueryRowContext(ctx, q, id, viewerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLoopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loop: %w", err)
	}
	return l, nil
}

// List returns loops of live projects matching all scopes, newest first.
func (r *LoopRepository) List(ctx context.Context, scopes ...Scope) ([]domain.Loop, error) {
	b := psql.Select(loopColumns...).
		From("loops l").
		Join("projects p ON p.id = l.project_id").
		Where("p.deleted_at IS NULL").
		OrderBy("l.created_at DESC", "l.id")
	for _, scope := range scopes {
		b = scope(b)
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build loop query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loops: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Loop, 0, 16)
	for rows.Next() {
		l, err := scanLoop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus counts loops matching the scopes, grouped by status. Both statuses
// are always present in the result.
func (r *LoopRepository) CountByStatus(ctx context.Context, scopes ...Scope) (map[domain.Status]int, error) {
	b := psql.Select("l.status", "count(*)").
		From("loops l").
		Join("projects p ON p.id = l.project_id").
		Where("p.deleted_at IS NULL").
		GroupBy("l.status")
	for _, scope := range scopes {
		b = scope(b)
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count loops: %w", err)
	}
	defer rows.Close()

	counts := map[domain.Status]int{domain.StatusOpen: 0, domain.StatusClosed: 0}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// SaveStatus persists status and description of the loop.
func (r *LoopRepository) SaveStatus(ctx context.Context, l *domain.Loop) error {
	if !l.Status.Valid() {
		return domain.ErrInvalidStatus
	}

	const q = `
UPDATE loops
SET status = $2, description = $3, updated_at = now()
WHERE id = $1
RETURNING updated_at;
`
	err := r.db.QueryRowContext(ctx, q, l.ID, string(l.Status), l.Description).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrLoopNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to save loop status: %w", err)
	}
	return nil
}

// Assign sets or clears the assignee in a single statement.
func (r *LoopRepository) Assign(ctx context.Context, l *domain.Loop) error {
	const q = `
UPDATE loops
SET user_id = $2, updated_at = now()
WHERE id = $1
RETURNING updated_at;
`
	err := r.db.QueryRowContext(ctx, q, l.ID, nullUUID(l.UserID)).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrLoopNotFound
	}
	if err != nil {
		if mapped := translateFK(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to assign loop: %w", err)
	}
	return nil
}

// Touch bumps updated_at, e.g. after a note is added.
func (r *LoopRepository) Touch(ctx context.Context, l *domain.Loop) error {
	const q = `UPDATE loops SET updated_at = now() WHERE id = $1 RETURNING updated_at;`

	err := r.db.QueryRowContext(ctx, q, l.ID).Scan(&l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrLoopNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to touch loop: %w", err)
	}
	return nil
}
