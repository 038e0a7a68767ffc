package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNoRole is returned for users without a profile. It matches ErrPermissionDenied.
	ErrNoRole = fmt.Errorf("%w: user has no role", ErrPermissionDenied)

	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService applies the permission policy and update rules on top of the
// active task store.
type TaskService struct {
	tasks     repository.TaskRepository
	comments  repository.CommentRepository
	generator TaskGenerator
	log       zerolog.Logger
}

// NewTaskService creates a new TaskService. generator may be nil.
func NewTaskService(store *repository.Store, generator TaskGenerator, log zerolog.Logger) *TaskService {
	return &TaskService{
		tasks:     store.Tasks,
		comments:  store.Comments,
		generator: generator,
		log:       log,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	AssignedTo  string
	DueDate     *time.Time
}

// TaskChange carries the fields submitted by an edit form. Nil means not submitted.
type TaskChange struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Status      *models.TaskStatus
	DueDate     *time.Time
}

// TaskDetail is a task together with its comments.
type TaskDetail struct {
	Task     models.Task
	Comments []models.Comment
}

// DashboardStats counts tasks per status.
type DashboardStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
}

// Dashboard is every task plus its aggregate counts.
type Dashboard struct {
	Tasks []models.Task
	Stats DashboardStats
}

// CreateTask stores a new PENDING task created by a manager
func (s *TaskService) CreateTask(ctx context.Context, actor models.Identity, input CreateTaskInput) (*models.Task, error) {
	if !policy.HasRole(actor.Role, models.RoleManager) {
		return nil, denied(actor)
	}

	status := models.TaskStatusPending
	id, err := s.tasks.Create(ctx, repository.TaskFields{
		Title:       &input.Title,
		Description: &input.Description,
		AssignedTo:  &input.AssignedTo,
		CreatedBy:   &actor.Username,
		Status:      &status,
		DueDate:     input.DueDate,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("task_id", id).Str("created_by", actor.Username).Str("assigned_to", input.AssignedTo).Msg("task created")
	return s.tasks.Get(ctx, id)
}

// Dashboard lists every task, newest first, with its counts
func (s *TaskService) Dashboard(ctx context.Context) (*Dashboard, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Tasks: tasks, Stats: Summarize(tasks)}, nil
}

// Summarize counts tasks by status. Unknown statuses count toward the total only.
func Summarize(tasks []models.Task) DashboardStats {
	stats := DashboardStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusCompleted:
			stats.Completed++
		case models.TaskStatusInProgress:
			stats.InProgress++
		case models.TaskStatusPending:
			stats.Pending++
		}
	}
	return stats
}

// GetTask returns a task with its comments if the actor may view it
func (s *TaskService) GetTask(ctx context.Context, actor models.Identity, id string) (*TaskDetail, error) {
	task, err := s.viewableTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListForTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{Task: *task, Comments: comments}, nil
}

// UpdateTask merges the change according to the actor's role and stores it
func (s *TaskService) UpdateTask(ctx context.Context, actor models.Identity, id string, change TaskChange) (*models.Task, error) {
	if actor.Role == nil {
		return nil, ErrNoRole
	}

	existing, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEdit(actor.Role, existing.AssignedTo, actor.Username) {
		return nil, ErrPermissionDenied
	}

	var fields repository.TaskFields
	if *actor.Role == models.RoleManager {
		fields, err = mergeManagerUpdate(change)
		if err != nil {
			return nil, err
		}
	} else {
		fields = mergeEmployeeUpdate(actor.Role, existing, change)
	}

	if err := s.tasks.Update(ctx, id, fields); err != nil {
		return nil, err
	}

	s.log.Info().Str("task_id", id).Str("user", actor.Username).Str("role", string(*actor.Role)).Msg("task updated")
	return s.tasks.Get(ctx, id)
}

// mergeEmployeeUpdate takes only the fields the role may change from the
// submission. Everything else is rewritten from the stored task, so extra
// submitted fields are dropped silently.
func mergeEmployeeUpdate(role *models.Role, existing *models.Task, change TaskChange) repository.TaskFields {
	allowed := policy.MutableFields(role)

	status := existing.Status
	if allowed.Has(policy.FieldStatus) && change.Status != nil {
		status = *change.Status
	}
	dueDate := existing.DueDate
	if allowed.Has(policy.FieldDueDate) && change.DueDate != nil {
		dueDate = *change.DueDate
	}

	return repository.TaskFields{
		Title:       &existing.Title,
		Description: &existing.Description,
		AssignedTo:  &existing.AssignedTo,
		Status:      &status,
		DueDate:     &dueDate,
	}
}

// mergeManagerUpdate requires the full edit form. Description may be empty.
func mergeManagerUpdate(change TaskChange) (repository.TaskFields, error) {
	switch {
	case change.Title == nil:
		return repository.TaskFields{}, &repository.ValidationError{Field: "title", Message: "is required"}
	case change.Description == nil:
		return repository.TaskFields{}, &repository.ValidationError{Field: "description", Message: "is required"}
	case change.AssignedTo == nil:
		return repository.TaskFields{}, &repository.ValidationError{Field: "assigned_to", Message: "is required"}
	case change.Status == nil:
		return repository.TaskFields{}, &repository.ValidationError{Field: "status", Message: "is required"}
	case change.DueDate == nil:
		return repository.TaskFields{}, &repository.ValidationError{Field: "due_date", Message: "is required"}
	}

	return repository.TaskFields{
		Title:       change.Title,
		Description: change.Description,
		AssignedTo:  change.AssignedTo,
		Status:      change.Status,
		DueDate:     change.DueDate,
	}, nil
}

// DeleteTask removes a task and its comments. Deleting a missing task succeeds.
func (s *TaskService) DeleteTask(ctx context.Context, actor models.Identity, id string) error {
	if !policy.HasRole(actor.Role, models.RoleAdmin) {
		return denied(actor)
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("task_id", id).Str("user", actor.Username).Msg("task deleted")
	return nil
}

// GenerateTasks asks the generator for task suggestions. Nothing is persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, actor models.Identity, text string) ([]GeneratedTask, error) {
	if !policy.HasRole(actor.Role, models.RoleManager) {
		return nil, denied(actor)
	}
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.generator.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}
	return validTasks, nil
}

func (s *TaskService) viewableTask(ctx context.Context, actor models.Identity, id string) (*models.Task, error) {
	if actor.Role == nil {
		return nil, ErrNoRole
	}

	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor.Role, task.AssignedTo, actor.Username) {
		return nil, ErrPermissionDenied
	}
	return task, nil
}

func denied(actor models.Identity) error {
	if actor.Role == nil {
		return ErrNoRole
	}
	return ErrPermissionDenied
}
