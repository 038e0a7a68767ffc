package middleware

import (
	"context"
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/services"
)

// IdentityResolver loads the acting user and role for a session
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID uint64) (*models.Identity, error)
}

// RequireAuth checks the session and stores the caller's identity in the context
func RequireAuth(resolver IdentityResolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUserID(session.Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		identity, err := resolver.ResolveIdentity(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				// the account is gone; drop the stale session
				session.Clear()
				_ = session.Save()
				apierrors.Unauthorized(c, "")
				return
			}
			log.Error().Err(err).Uint64("user_id", userID).Msg("failed to resolve identity")
			apierrors.InternalError(c, "")
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyIdentity, *identity)
		c.Next()
	}
}

// GetIdentity retrieves the identity RequireAuth resolved
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	v, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

func toUserID(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
