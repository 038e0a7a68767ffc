package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/services"
)

// RequireTaskAccess loads the task named by :id together with its comments.
// The caller must be allowed to view it. Errors are answered by onError.
func RequireTaskAccess(tasks *services.TaskService, onError func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		detail, err := tasks.GetTask(c.Request.Context(), identity, c.Param("id"))
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, *detail)
		c.Next()
	}
}

// GetTaskDetail retrieves the task RequireTaskAccess loaded
func GetTaskDetail(c *gin.Context) (services.TaskDetail, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return services.TaskDetail{}, false
	}
	detail, ok := v.(services.TaskDetail)
	return detail, ok
}
