package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/models"
)

func serveWithIdentity(identity *models.Identity, roles ...models.Role) int {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if identity != nil {
			c.Set(constants.ContextKeyIdentity, *identity)
		}
		c.Next()
	}, RequireRole(roles...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w.Code
}

func TestRequireRole(t *testing.T) {
	admin := models.RoleAdmin
	employee := models.RoleEmployee

	assert.Equal(t, http.StatusNoContent, serveWithIdentity(&models.Identity{Username: "root", Role: &admin}, models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serveWithIdentity(&models.Identity{Username: "bob", Role: &employee}, models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serveWithIdentity(&models.Identity{Username: "ghost"}, models.RoleAdmin, models.RoleManager, models.RoleEmployee))
	assert.Equal(t, http.StatusUnauthorized, serveWithIdentity(nil, models.RoleAdmin))
}

func TestToUserID(t *testing.T) {
	id, ok := toUserID(uint64(7))
	assert.True(t, ok)
	assert.Equal(t, uint64(7), id)

	_, ok = toUserID(nil)
	assert.False(t, ok)

	_, ok = toUserID(-1)
	assert.False(t, ok)
}
