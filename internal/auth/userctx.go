package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loops-hq/loops-backend/internal/logging"
	"github.com/loops-hq/loops-backend/internal/users"
)

const DevUserUID = "demo-user"

// WithUser trusts the X-User-* headers as the caller's identity.
// Use this ONLY for development/testing.
func WithUser(userRepo UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = DevUserUID
		}

		id, err := userRepo.EnsureUser(c.Request.Context(), users.UpsertUser{
			ExternalUID: uid,
			Email:       c.GetHeader("X-User-Email"),
			DisplayName: c.GetHeader("X-User-Name"),
			PhotoURL:    c.GetHeader("X-User-Photo"),
		})
		if err != nil {
			logging.NewLogger(c.Request.Context()).LogError("auth.ensure_user", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user failed"})
			return
		}

		SetUser(c, uid, id)
		c.Next()
	}
}
