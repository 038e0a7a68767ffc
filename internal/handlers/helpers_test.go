package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/database/dynamotest"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

type testEnv struct {
	t           *testing.T
	db          *gorm.DB
	router      *gin.Engine
	authService *services.AuthService
}

func setupTestEnv(t *testing.T, mode config.BackendMode) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.EmployeeProfile{}))

	opts := repository.StoreOptions{Logger: zerolog.Nop()}
	switch mode {
	case config.BackendLocal:
		require.NoError(t, db.AutoMigrate(repository.RelationalModels()...))
		opts.DB = db
	case config.BackendCloud:
		opts.Dynamo = dynamotest.New(map[string]string{"tasks": "task_id", "comments": "comment_id"})
		opts.TaskTable = "tasks"
		opts.CommentTable = "comments"
	}
	store, err := repository.NewStore(mode, opts)
	require.NoError(t, err)

	authService := services.NewAuthService(repository.NewUserRepository(db), repository.NewProfileRepository(db))
	taskService := services.NewTaskService(store, nil, zerolog.Nop())

	router := NewRouter(RouterDeps{
		SessionStore:   cookie.NewStore([]byte("secret")),
		AuthService:    authService,
		TaskService:    taskService,
		CommentService: services.NewCommentService(store, taskService, zerolog.Nop()),
		Logger:         zerolog.Nop(),
		BackendMode:    string(mode),
	})

	return &testEnv{t: t, db: db, router: router, authService: authService}
}

// createUser signs a user up and then sets the role directly. A nil role
// leaves the user without a profile.
func (e *testEnv) createUser(username string, role *models.Role) {
	e.t.Helper()

	user, err := e.authService.Signup(context.Background(), services.SignupInput{Username: username, Password: testPassword})
	require.NoError(e.t, err)

	if role == nil {
		require.NoError(e.t, e.db.Where("user_id = ?", user.ID).Delete(&models.EmployeeProfile{}).Error)
		return
	}
	require.NoError(e.t, e.db.Model(&models.EmployeeProfile{}).Where("user_id = ?", user.ID).Update("role", *role).Error)
}

// login returns a client carrying the user's session cookie.
func (e *testEnv) login(username string) *client {
	e.t.Helper()

	c := e.anonymous()
	w := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": testPassword})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return c
}

func (e *testEnv) anonymous() *client {
	return &client{t: e.t, router: e.router, cookies: map[string]*http.Cookie{}}
}

type client struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func rolePtr(r models.Role) *models.Role { return &r }
