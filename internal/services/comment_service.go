package services

import (
	"context"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

// CommentService handles comments on tasks the actor can view
type CommentService struct {
	tasks    *TaskService
	comments repository.CommentRepository
	log      zerolog.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(store *repository.Store, tasks *TaskService, log zerolog.Logger) *CommentService {
	return &CommentService{
		tasks:    tasks,
		comments: store.Comments,
		log:      log,
	}
}

// AddComment stores a comment authored by the actor
func (s *CommentService) AddComment(ctx context.Context, actor models.Identity, taskID, text string) (string, error) {
	if _, err := s.tasks.viewableTask(ctx, actor, taskID); err != nil {
		return "", err
	}
	if utf8.RuneCountInString(text) > constants.MaxCommentLength {
		return "", &repository.ValidationError{Field: "text", Message: "is too long"}
	}

	id, err := s.comments.Add(ctx, taskID, actor.Username, text)
	if err != nil {
		return "", err
	}

	s.log.Debug().Str("task_id", taskID).Str("comment_id", id).Str("author", actor.Username).Msg("comment added")
	return id, nil
}

// ListComments returns a task's comments, newest first
func (s *CommentService) ListComments(ctx context.Context, actor models.Identity, taskID string) ([]models.Comment, error) {
	if _, err := s.tasks.viewableTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.comments.ListForTask(ctx, taskID)
}
