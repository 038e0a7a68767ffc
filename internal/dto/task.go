package dto

import (
	"time"

	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64       `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email,omitempty"`
	FirstName string       `json:"first_name,omitempty"`
	LastName  string       `json:"last_name,omitempty"`
	Role      *models.Role `json:"role"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string            `json:"task_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	AssignedTo  string            `json:"assigned_to"`
	CreatedBy   string            `json:"created_by"`
	Status      models.TaskStatus `json:"status"`
	DueDate     time.Time         `json:"due_date"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CanEdit     bool              `json:"can_edit"`
}

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID        string    `json:"comment_id"`
	TaskID    string    `json:"task_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskDetailDTO is a task page: the task and its comments, newest first
type TaskDetailDTO struct {
	Task     TaskDTO      `json:"task"`
	Comments []CommentDTO `json:"comments"`
}

// DashboardDTO lists every task with its status counts and pending flash messages
type DashboardDTO struct {
	User     UserDTO                 `json:"user"`
	Stats    services.DashboardStats `json:"stats"`
	Tasks    []TaskDTO               `json:"tasks"`
	Messages []string                `json:"messages"`
}

// Conversion functions

// ToUserDTO converts a User model and its role to UserDTO
func ToUserDTO(user models.User, role *models.Role) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      role,
	}
}

// ToTaskDTO converts a Task model to TaskDTO. canEdit tells the client whether
// to offer the edit form.
func ToTaskDTO(task models.Task, canEdit bool) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		AssignedTo:  task.AssignedTo,
		CreatedBy:   task.CreatedBy,
		Status:      task.Status,
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		CanEdit:     canEdit,
	}
}

// ToCommentDTOs converts comments, keeping their order
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	items := make([]CommentDTO, len(comments))
	for i, c := range comments {
		items[i] = CommentDTO{
			ID:        c.ID,
			TaskID:    c.TaskID,
			Author:    c.Author,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		}
	}
	return items
}
