package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
)

// RequireRole lets the request through only for the given roles. Users
// without a role are always rejected.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if identity.Role == nil {
			apierrors.NoRole(c)
			return
		}
		if !policy.HasRole(identity.Role, roles...) {
			apierrors.Forbidden(c, "")
			return
		}
		c.Next()
	}
}
