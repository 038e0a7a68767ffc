package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/services"
)

// RouterDeps holds what the HTTP surface needs.
type RouterDeps struct {
	SessionStore   sessions.Store
	AuthService    *services.AuthService
	TaskService    *services.TaskService
	CommentService *services.CommentService
	Logger         zerolog.Logger
	BackendMode    string
}

// NewRouter builds the gin engine with every route and middleware.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)
	taskHandler := NewTaskHandler(deps.TaskService, deps.Logger)
	commentHandler := NewCommentHandler(deps.CommentService, deps.Logger)

	requireAuth := middleware.RequireAuth(deps.AuthService, deps.Logger)
	taskAccess := middleware.RequireTaskAccess(deps.TaskService, func(c *gin.Context, err error) {
		respondTaskError(c, deps.Logger, err)
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"backend": deps.BackendMode,
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		api.POST("/employees", requireAuth, middleware.RequireRole(models.RoleAdmin), authHandler.CreateEmployee)
		api.GET("/dashboard", requireAuth, taskHandler.Dashboard)

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.POST("", middleware.RequireRole(models.RoleManager), taskHandler.CreateTask)
			tasks.POST("/generate", middleware.RequireRole(models.RoleManager), taskHandler.GenerateTasks)
			tasks.GET("/:id", taskAccess, taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), taskHandler.DeleteTask)
			tasks.GET("/:id/comments", commentHandler.ListComments)
			tasks.POST("/:id/comments", commentHandler.AddComment)
		}
	}

	return r
}
