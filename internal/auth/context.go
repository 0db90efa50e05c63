package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loops-hq/loops-backend/internal/users"
)

const (
	CtxExternalUID = "external_uid"
	CtxUserDBID    = "user_db_id"
)

// UserEnsurer upserts the authenticated user and returns its database id.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (uuid.UUID, error)
}

// SetUser records the authenticated identity on the gin context.
func SetUser(c *gin.Context, externalUID string, id uuid.UUID) {
	c.Set(CtxExternalUID, externalUID)
	c.Set(CtxUserDBID, id)
}

// ExternalUID returns the identity-provider uid set by the auth middleware.
func ExternalUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxExternalUID))
}

// UserID returns the database id of the authenticated user.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxUserDBID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
