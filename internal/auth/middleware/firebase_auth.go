package middleware

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/loops-hq/loops-backend/internal/auth"
	"github.com/loops-hq/loops-backend/internal/logging"
	"github.com/loops-hq/loops-backend/internal/users"
)

// TokenVerifier is satisfied by *auth.Client from the Firebase Admin SDK.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens and upserts the caller as a user
func FirebaseAuthMiddleware(verifier TokenVerifier, userRepo auth.UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			return
		}

		decoded, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}

		u := users.UpsertUser{ExternalUID: decoded.UID}
		if email, ok := decoded.Claims["email"].(string); ok {
			u.Email = email
		}
		if name, ok := decoded.Claims["name"].(string); ok {
			u.DisplayName = name
		}
		if picture, ok := decoded.Claims["picture"].(string); ok {
			u.PhotoURL = picture
		}

		id, err := userRepo.EnsureUser(c.Request.Context(), u)
		if err != nil {
			logging.NewLogger(c.Request.Context()).LogError("auth.ensure_user", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user failed"})
			return
		}

		auth.SetUser(c, decoded.UID, id)
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
