package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// Store groups the loop repositories over one connection or transaction.
type Store struct {
	db      *sql.DB
	Loops   *LoopRepository
	Notes   *NoteRepository
	Nuggets *NuggetRepository
}

// NewStore creates a Store backed by the connection pool.
func NewStore(db *sql.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(conn DBTX) *Store {
	return &Store{
		Loops:   NewLoopRepository(conn),
		Notes:   NewNoteRepository(conn, domain.SubjectLoop),
		Nuggets: NewNuggetRepository(conn, domain.SubjectLoop),
	}
}

// WithTx runs fn with repositories bound to a single transaction. The transaction
// is committed when fn returns nil and rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return errors.New("store has no connection pool")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(newStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// translateFK maps foreign key violations to the entity that is missing.
func translateFK(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		if strings.Contains(pqErr.Constraint, "project") {
			return domain.ErrProjectNotFound
		}
		if strings.Contains(pqErr.Constraint, "user") {
			return domain.ErrUserNotFound
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
