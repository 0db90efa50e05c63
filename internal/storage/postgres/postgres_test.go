package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/loops-hq/loops-backend/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "loops"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=loops sslmode=disable", DSN(cfg))

	cfg.DSN = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", DSN(cfg))
}

type fakeExecer struct {
	sql string
	err error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	return pgconn.CommandTag{}, f.err
}

func TestApplySchema(t *testing.T) {
	ex := &fakeExecer{}
	assert.NoError(t, ApplySchema(context.Background(), ex))
	assert.Equal(t, Schema, ex.sql)

	for _, table := range []string{"users", "projects", "loops", "notes", "nuggets"} {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestApplySchema_Error(t *testing.T) {
	boom := errors.New("boom")
	err := ApplySchema(context.Background(), &fakeExecer{err: boom})
	assert.ErrorIs(t, err, boom)
}
