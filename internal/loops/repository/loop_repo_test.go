package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loops-hq/loops-backend/internal/loops/domain"
)

var loopRowColumns = []string{
	"id", "project_id", "name", "status", "description", "user_id", "created_at", "updated_at",
}

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestLoopRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates open loop with generated id", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)
		projectID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO loops`).
			WithArgs(
				sqlmock.AnyArg(), // id
				projectID,
				"Fix login",
				"open",
				"",
				nil, // unassigned
			).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		l := &domain.Loop{ProjectID: projectID, Name: "Fix login"}
		err := repo.Create(ctx, l)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, l.ID)
		assert.Equal(t, domain.StatusOpen, l.Status)
		assert.False(t, l.CreatedAt.IsZero())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty name without touching the db", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)

		err := repo.Create(ctx, &domain.Loop{ProjectID: uuid.New(), Name: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		db, _ := setupMock(t)
		repo := NewLoopRepository(db)

		err := repo.Create(ctx, &domain.Loop{ProjectID: uuid.New(), Name: "x", Status: "pending"})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("maps missing project", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)

		mock.ExpectQuery(`INSERT INTO loops`).
			WillReturnError(&pq.Error{Code: "23503", Constraint: "loops_project_id_fkey"})

		err := repo.Create(ctx, &domain.Loop{ProjectID: uuid.New(), Name: "x"})
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("maps missing assignee", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)
		assignee := uuid.New()

		mock.ExpectQuery(`INSERT INTO loops`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "x", "open", "", assignee).
			WillReturnError(&pq.Error{Code: "23503", Constraint: "loops_user_id_fkey"})

		err := repo.Create(ctx, &domain.Loop{ProjectID: uuid.New(), Name: "x", UserID: &assignee})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestLoopRepository_GetVisible(t *testing.T) {
	ctx := context.Background()

	t.Run("returns loop", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)
		id, projectID, viewer := uuid.New(), uuid.New(), uuid.New()
		now := time.Now()

		mock.ExpectQuery(`FROM loops l JOIN projects p`).
			WithArgs(id, viewer).
			WillReturnRows(sqlmock.NewRows(loopRowColumns).
				AddRow(id.String(), projectID.String(), "Fix login", "closed", "desc", viewer.String(), now, now))

		l, err := repo.GetVisible(ctx, id, viewer)
		require.NoError(t, err)
		assert.Equal(t, id, l.ID)
		assert.Equal(t, projectID, l.ProjectID)
		assert.True(t, l.IsClosed())
		require.NotNil(t, l.UserID)
		assert.Equal(t, viewer, *l.UserID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)

		mock.ExpectQuery(`FROM loops l JOIN projects p`).
			WillReturnRows(sqlmock.NewRows(loopRowColumns))

		_, err := repo.GetVisible(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrLoopNotFound)
	})

	t.Run("lock adds row lock", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)

		mock.ExpectQuery(`FOR UPDATE OF l`).
			WillReturnRows(sqlmock.NewRows(loopRowColumns))

		_, err := repo.LockVisible(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrLoopNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoopRepository_List(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMock(t)
	repo := NewLoopRepository(db)
	projectID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`WHERE p.deleted_at IS NULL AND l.project_id = \$1 AND l.status = \$2 ORDER BY`).
		WithArgs(projectID.String(), "open").
		WillReturnRows(sqlmock.NewRows(loopRowColumns).
			AddRow(uuid.NewString(), projectID.String(), "a", "open", "", nil, now, now).
			AddRow(uuid.NewString(), projectID.String(), "b", "open", "", nil, now, now))

	loops, err := repo.List(ctx, InProject(projectID), OpenScope())
	require.NoError(t, err)
	require.Len(t, loops, 2)
	for _, l := range loops {
		assert.True(t, l.IsOpen())
		assert.Nil(t, l.UserID)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoopRepository_CountByStatus(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMock(t)
	repo := NewLoopRepository(db)
	user := uuid.New()

	mock.ExpectQuery(`GROUP BY l.status`).
		WithArgs(user.String()).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("open", 3))

	counts, err := repo.CountByStatus(ctx, AssignedToUser(&user))
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.StatusOpen])
	assert.Equal(t, 0, counts[domain.StatusClosed])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoopRepository_SaveStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("persists status and description", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)
		l := &domain.Loop{ID: uuid.New(), Status: domain.StatusClosed, Description: "d"}

		mock.ExpectQuery(`UPDATE loops SET status = \$2, description = \$3`).
			WithArgs(l.ID, "closed", "d").
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

		require.NoError(t, repo.SaveStatus(ctx, l))
		assert.False(t, l.UpdatedAt.IsZero())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing loop", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)

		mock.ExpectQuery(`UPDATE loops`).WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

		err := repo.SaveStatus(ctx, &domain.Loop{ID: uuid.New(), Status: domain.StatusOpen})
		assert.ErrorIs(t, err, domain.ErrLoopNotFound)
	})

	t.Run("invalid status never reaches the db", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)

		err := repo.SaveStatus(ctx, &domain.Loop{ID: uuid.New(), Status: "archived"})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoopRepository_Assign(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns in one statement", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)
		user := uuid.New()
		l := &domain.Loop{ID: uuid.New(), UserID: &user}

		mock.ExpectQuery(`UPDATE loops SET user_id = \$2`).
			WithArgs(l.ID, user).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

		require.NoError(t, repo.Assign(ctx, l))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clears assignee", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)
		l := &domain.Loop{ID: uuid.New()}

		mock.ExpectQuery(`UPDATE loops SET user_id = \$2`).
			WithArgs(l.ID, nil).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

		require.NoError(t, repo.Assign(ctx, l))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewLoopRepository(db)
		user := uuid.New()

		mock.ExpectQuery(`UPDATE loops`).
			WillReturnError(&pq.Error{Code: "23503", Constraint: "loops_user_id_fkey"})

		err := repo.Assign(ctx, &domain.Loop{ID: uuid.New(), UserID: &user})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestStore_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db, mock := setupMock(t)
		store := NewStore(db)
		l := &domain.Loop{ID: uuid.New()}

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE loops SET updated_at = now\(\)`).
			WithArgs(l.ID).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		err := store.WithTx(ctx, func(tx *Store) error {
			return tx.Loops.Touch(ctx, l)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := setupMock(t)
		store := NewStore(db)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithTx(ctx, func(tx *Store) error { return boom })
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
