package jwtmw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"member_backend/internal/api"
	"member_backend/internal/platform/identity"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "userID"

const (
	MessageNoToken      = "Authentication failed. No token provided."
	MessageInvalidToken = "Authentication failed. Invalid token."
	MessageUserNotFound = "Authentication failed. User not found."
)

// TokenVerifier returns the subject of a valid token.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// AuthRequired returns a Gin middleware function that validates bearer tokens,
// resolves the subject to a live user and attaches the identity to the
// request context. Any failure aborts the request.
func AuthRequired(verifier TokenVerifier, resolver identity.Resolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get Authorization header
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			api.Abort(c, http.StatusUnauthorized, MessageNoToken, nil)
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if tokenStr == "" {
			api.Abort(c, http.StatusUnauthorized, MessageNoToken, nil)
			return
		}

		// 2. Verify signature and expiry
		userID, err := verifier.VerifyToken(tokenStr)
		if err != nil {
			log.Debug("token rejected", zap.Error(err), zap.String("client_ip", c.ClientIP()))
			api.Abort(c, http.StatusUnauthorized, MessageInvalidToken, nil)
			return
		}

		// 3. Resolve the subject to a live user
		id, err := resolver.ResolveIdentity(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				api.Abort(c, http.StatusUnauthorized, MessageUserNotFound, nil)
				return
			}
			log.Error("identity lookup failed", zap.String("user_id", userID), zap.Error(err))
			api.Internal(c, err)
			return
		}

		// 4. Attach identity and pass control to the next handler
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Set(ContextUserID, id.UserID)
		c.Next()
	}
}

// ResolverFunc adapts a function to identity.Resolver.
type ResolverFunc func(ctx context.Context, userID string) (identity.Identity, error)

// ResolveIdentity calls f.
func (f ResolverFunc) ResolveIdentity(ctx context.Context, userID string) (identity.Identity, error) {
	return f(ctx, userID)
}
