package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/dto"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/services"
	"github.com/yukikurage/task-tracker/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	log         zerolog.Logger
}

func NewTaskHandler(taskService *services.TaskService, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

// Dashboard returns every task, the status counts and any pending flash messages
func (h *TaskHandler) Dashboard(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)

	dashboard, err := h.taskService.Dashboard(c.Request.Context())
	if err != nil {
		respondTaskError(c, h.log, err)
		return
	}

	tasks := make([]dto.TaskDTO, len(dashboard.Tasks))
	for i, task := range dashboard.Tasks {
		tasks[i] = dto.ToTaskDTO(task, policy.CanEdit(identity.Role, task.AssignedTo, identity.Username))
	}

	c.JSON(http.StatusOK, dto.DashboardDTO{
		User: dto.UserDTO{
			ID:       identity.UserID,
			Username: identity.Username,
			Role:     identity.Role,
		},
		Stats:    dashboard.Stats,
		Tasks:    tasks,
		Messages: drainFlashes(c, h.log),
	})
}

// GetTask returns a task with its comments
// Task is already loaded and access-checked by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	detail, exists := middleware.GetTaskDetail(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}
	identity, _ := middleware.GetIdentity(c)

	c.JSON(http.StatusOK, dto.TaskDetailDTO{
		Task:     dto.ToTaskDTO(detail.Task, policy.CanEdit(identity.Role, detail.Task.AssignedTo, identity.Username)),
		Comments: dto.ToCommentDTOs(detail.Comments),
	})
}

// CreateTask creates a new PENDING task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		AssignedTo  string `json:"assigned_to"`
		DueDate     string `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var dueDate *time.Time
	if strings.TrimSpace(req.DueDate) != "" {
		t, err := utils.ParseTimestamp(req.DueDate)
		if err != nil {
			respondTaskError(c, h.log, &repository.ValidationError{Field: "due_date", Message: "is not a valid date"})
			return
		}
		dueDate = &t
	}

	identity, _ := middleware.GetIdentity(c)
	task, err := h.taskService.CreateTask(c.Request.Context(), identity, services.CreateTaskInput{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		AssignedTo:  strings.TrimSpace(req.AssignedTo),
		DueDate:     dueDate,
	})
	if err != nil {
		respondTaskError(c, h.log, err)
		return
	}

	addFlash(c, h.log, "Task created successfully.")
	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task, true))
}

// UpdateTask applies an edit. Employees may only change status and due date;
// any other submitted field is ignored for them.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateTaskRequest struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		AssignedTo  *string `json:"assigned_to"`
		Status      *string `json:"status"`
		DueDate     *string `json:"due_date"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	change := services.TaskChange{
		Title:       trimmed(req.Title),
		Description: req.Description,
		AssignedTo:  trimmed(req.AssignedTo),
	}
	if req.Status != nil {
		status := models.TaskStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		change.Status = &status
	}
	if req.DueDate != nil {
		t, err := utils.ParseTimestamp(*req.DueDate)
		if err != nil {
			respondTaskError(c, h.log, &repository.ValidationError{Field: "due_date", Message: "is not a valid date"})
			return
		}
		change.DueDate = &t
	}

	identity, _ := middleware.GetIdentity(c)
	task, err := h.taskService.UpdateTask(c.Request.Context(), identity, c.Param("id"), change)
	if err != nil {
		respondTaskError(c, h.log, err)
		return
	}

	addFlash(c, h.log, "Task updated successfully.")
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, true))
}

// DeleteTask removes a task and its comments. Deleting twice is not an error.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)

	if err := h.taskService.DeleteTask(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondTaskError(c, h.log, err)
		return
	}

	addFlash(c, h.log, "Task deleted successfully.")
	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// GenerateTasks suggests tasks from free text using AI. Suggestions are not saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	identity, _ := middleware.GetIdentity(c)
	tasks, err := h.taskService.GenerateTasks(c.Request.Context(), identity, req.Text)
	if err != nil {
		respondTaskError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
	})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
