package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/constants"
)

func TestNewSessionStore_CookieWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store, err := newSessionStore(&config.Config{SessionSecret: "test-secret", GinMode: "release"})
	require.NoError(t, err)
	require.NotNil(t, store)

	router := gin.New()
	router.Use(sessions.Sessions(constants.SessionCookieName, store))
	router.GET("/", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set("k", "v")
		require.NoError(t, session.Save())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, constants.SessionMaxAgeSecond, cookies[0].MaxAge)
}
