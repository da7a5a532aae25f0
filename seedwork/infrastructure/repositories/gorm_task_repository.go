package repositories

import (
	"context"
	"fmt"

	"github.com/sesamyab/audiopipeline/seedwork/domain/entities"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/database"

	"gorm.io/gorm"
)

// GormTaskRepository implements TaskRepository using GORM.
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM task repository.
func NewGormTaskRepository() *GormTaskRepository {
	return &GormTaskRepository{db: database.GetDB()}
}

func (r *GormTaskRepository) Create(ctx context.Context, task *entities.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*entities.Task, error) {
	var task entities.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateStatus loads the row, applies the in-memory transition rules from
// entities.Task.SetStatus, and persists the result in one transaction so the
// sticky-terminal-state invariant is enforced even under concurrent writers.
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, id string, status entities.TaskStatus, message string, result map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task entities.Task
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&task, "id = ?", id).Error; err != nil {
			return err
		}
		if !task.SetStatus(status) {
			return fmt.Errorf("invalid task status transition: %s -> %s", task.Status, status)
		}
		if message != "" {
			task.Message = message
		}
		if result != nil {
			task.SetResult(result)
		}
		return tx.Save(&task).Error
	})
}

func (r *GormTaskRepository) UpdateProgress(ctx context.Context, id string, step string, percent int, message string) error {
	result := r.db.WithContext(ctx).Model(&entities.Task{}).Where("id = ?", id).Updates(map[string]interface{}{
		"step":     step,
		"progress": percent,
		"message":  message,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}
