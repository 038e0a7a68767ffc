package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// commentRecord keeps an auto-increment key next to the public UUID.
type commentRecord struct {
	ID        uint64    `gorm:"primarykey"`
	CommentID string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	TaskID    uint64    `gorm:"not null;index"`
	Author    string    `gorm:"type:varchar(150);not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index"`

	// Relations
	Task taskRecord `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

func (commentRecord) TableName() string { return "comments" }

func (r commentRecord) toModel() models.Comment {
	return models.Comment{
		ID:        r.CommentID,
		TaskID:    strconv.FormatUint(r.TaskID, 10),
		Author:    r.Author,
		Text:      r.Text,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a relational CommentRepository
func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Add inserts a comment after confirming the task exists
func (r *GormCommentRepository) Add(ctx context.Context, taskID, author, text string) (string, error) {
	if err := validateComment(taskID, author, text); err != nil {
		return "", err
	}

	rowID, ok := parseRowID(taskID)
	if !ok {
		return "", ErrTaskNotFound
	}

	record := commentRecord{
		CommentID: uuid.NewString(),
		TaskID:    rowID,
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task taskRecord
		if err := tx.Select("id").First(&task, rowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return backendErr("add comment", err)
		}

		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			return backendErr("add comment", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return record.CommentID, nil
}

// ListForTask returns the task's comments, newest first
func (r *GormCommentRepository) ListForTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	rowID, ok := parseRowID(taskID)
	if !ok {
		return []models.Comment{}, nil
	}

	var records []commentRecord
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", rowID).
		Order("created_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, backendErr("list comments", err)
	}

	comments := make([]models.Comment, len(records))
	for i, record := range records {
		comments[i] = record.toModel()
	}
	return comments, nil
}
