package repository

import (
	"context"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker/internal/models"
)

// TaskFields carries the task attributes of a create or update. Nil fields are
// not named by the operation: Create rejects missing required ones, Update leaves
// them untouched.
type TaskFields struct {
	Title       *string
	Description *string
	AssignedTo  *string
	CreatedBy   *string
	Status      *models.TaskStatus
	DueDate     *time.Time
}

// TaskRepository defines the interface for task data access. Both backends
// implement it with the same semantics.
type TaskRepository interface {
	// Create persists a new task and returns its identifier
	Create(ctx context.Context, fields TaskFields) (string, error)

	// Get finds a task by identifier
	Get(ctx context.Context, id string) (*models.Task, error)

	// List returns every task, newest first
	List(ctx context.Context) ([]models.Task, error)

	// Update replaces the named fields and refreshes updated_at
	Update(ctx context.Context, id string, fields TaskFields) error

	// Delete removes a task and its comments; deleting a missing task is not an error
	Delete(ctx context.Context, id string) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Add appends a comment to a task and returns its identifier
	Add(ctx context.Context, taskID, author, text string) (string, error)

	// ListForTask returns the comments of a task, newest first
	ListForTask(ctx context.Context, taskID string) ([]models.Comment, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateWithProfile creates a user and its role profile within a single transaction
	CreateWithProfile(ctx context.Context, user *models.User, role models.Role) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// ProfileRepository answers role lookups for the permission policy
type ProfileRepository interface {
	// FindRole returns the user's role, or nil when no profile exists
	FindRole(ctx context.Context, userID uint64) (*models.Role, error)
}

// validateNewTask checks the fields Create requires.
func validateNewTask(fields TaskFields) error {
	if fields.Title == nil || strings.TrimSpace(*fields.Title) == "" {
		return missingField("title")
	}
	if fields.AssignedTo == nil || strings.TrimSpace(*fields.AssignedTo) == "" {
		return missingField("assigned_to")
	}
	if fields.DueDate == nil || fields.DueDate.IsZero() {
		return missingField("due_date")
	}
	if fields.Status != nil && !fields.Status.Valid() {
		return invalidStatus(*fields.Status)
	}
	return nil
}

// validateTaskUpdate checks the named fields of an Update.
func validateTaskUpdate(fields TaskFields) error {
	if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
		return &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	if fields.AssignedTo != nil && strings.TrimSpace(*fields.AssignedTo) == "" {
		return &ValidationError{Field: "assigned_to", Message: "cannot be empty"}
	}
	if fields.DueDate != nil && fields.DueDate.IsZero() {
		return missingField("due_date")
	}
	if fields.Status != nil && !fields.Status.Valid() {
		return invalidStatus(*fields.Status)
	}
	return nil
}

func validateComment(taskID, author, text string) error {
	if strings.TrimSpace(taskID) == "" {
		return missingField("task_id")
	}
	if strings.TrimSpace(author) == "" {
		return missingField("author")
	}
	if strings.TrimSpace(text) == "" {
		return missingField("text")
	}
	return nil
}

func invalidStatus(s models.TaskStatus) error {
	return &ValidationError{
		Field:   "status",
		Message: "must be PENDING, IN_PROGRESS or COMPLETED, got " + string(s),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
