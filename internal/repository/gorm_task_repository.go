package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/gorm"
)

// taskRecord is the relational row behind models.Task.
type taskRecord struct {
	ID          uint64            `gorm:"primarykey"`
	Title       string            `gorm:"type:varchar(200);not null"`
	Description string            `gorm:"type:text"`
	AssignedTo  string            `gorm:"type:varchar(150);not null"`
	CreatedBy   string            `gorm:"type:varchar(150);not null"`
	Status      models.TaskStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	DueDate     time.Time         `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRecord) TableName() string { return "tasks" }

func (r taskRecord) toModel() models.Task {
	return models.Task{
		ID:          strconv.FormatUint(r.ID, 10),
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		CreatedBy:   r.CreatedBy,
		Status:      r.Status,
		DueDate:     r.DueDate.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// RelationalModels lists the rows the relational task backend needs migrated.
func RelationalModels() []interface{} {
	return []interface{}{&taskRecord{}, &commentRecord{}}
}

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a relational TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a new row; the auto-increment key becomes the task id
func (r *GormTaskRepository) Create(ctx context.Context, fields TaskFields) (string, error) {
	if err := validateNewTask(fields); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	status := models.TaskStatusPending
	if fields.Status != nil {
		status = *fields.Status
	}

	record := taskRecord{
		Title:       *fields.Title,
		Description: stringOrEmpty(fields.Description),
		AssignedTo:  *fields.AssignedTo,
		CreatedBy:   stringOrEmpty(fields.CreatedBy),
		Status:      status,
		DueDate:     fields.DueDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", backendErr("create task", err)
	}
	return strconv.FormatUint(record.ID, 10), nil
}

// Get finds a task by ID
func (r *GormTaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	rowID, ok := parseRowID(id)
	if !ok {
		return nil, ErrTaskNotFound
	}

	var record taskRecord
	if err := r.db.WithContext(ctx).First(&record, rowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, backendErr("get task", err)
	}

	task := record.toModel()
	return &task, nil
}

// List retrieves every task, newest first
func (r *GormTaskRepository) List(ctx context.Context) ([]models.Task, error) {
	var records []taskRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, backendErr("list tasks", err)
	}

	tasks := make([]models.Task, len(records))
	for i, record := range records {
		tasks[i] = record.toModel()
	}
	return tasks, nil
}

// Update writes the named columns and updated_at
func (r *GormTaskRepository) Update(ctx context.Context, id string, fields TaskFields) error {
	if err := validateTaskUpdate(fields); err != nil {
		return err
	}

	rowID, ok := parseRowID(id)
	if !ok {
		return ErrTaskNotFound
	}

	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if fields.Title != nil {
		updates["title"] = *fields.Title
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.AssignedTo != nil {
		updates["assigned_to"] = *fields.AssignedTo
	}
	if fields.CreatedBy != nil {
		updates["created_by"] = *fields.CreatedBy
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
	}
	if fields.DueDate != nil {
		updates["due_date"] = fields.DueDate.UTC()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing taskRecord
		if err := tx.Select("id").First(&existing, rowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return backendErr("update task", err)
		}

		if err := tx.Model(&taskRecord{}).Where("id = ?", rowID).Updates(updates).Error; err != nil {
			return backendErr("update task", err)
		}
		return nil
	})
}

// Delete removes a task and its comments in a transaction
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	rowID, ok := parseRowID(id)
	if !ok {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", rowID).Delete(&commentRecord{}).Error; err != nil {
			return backendErr("delete task comments", err)
		}
		if err := tx.Delete(&taskRecord{}, rowID).Error; err != nil {
			return backendErr("delete task", err)
		}
		return nil
	})
}

func parseRowID(id string) (uint64, bool) {
	rowID, err := strconv.ParseUint(id, 10, 64)
	if err != nil || rowID == 0 {
		return 0, false
	}
	return rowID, true
}
