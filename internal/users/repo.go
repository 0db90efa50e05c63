package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgxpool.Pool the repo needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db querier
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type UpsertUser struct {
	ExternalUID string
	Email       string
	DisplayName string
	PhotoURL    string
}

// EnsureUser upserts the user keyed by the identity provider uid and returns its id.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (uuid.UUID, error) {
	u.ExternalUID = strings.TrimSpace(u.ExternalUID)
	if u.ExternalUID == "" {
		return uuid.Nil, fmt.Errorf("external_uid required")
	}

	const q = `
insert into users (external_uid, email, display_name, photo_url, updated_at)
values ($1, nullif($2,''), nullif($3,''), nullif($4,''), now())
on conflict (external_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  photo_url = coalesce(excluded.photo_url, users.photo_url),
  updated_at = now()
returning id;
`
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, q, u.ExternalUID, u.Email, u.DisplayName, u.PhotoURL).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("ensure user: %w", err)
	}
	return id, nil
}
