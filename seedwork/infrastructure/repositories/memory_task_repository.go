package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/sesamyab/audiopipeline/seedwork/domain/entities"
)

// MemoryTaskRepository is an in-memory TaskRepository implementation
// suitable for testing and for end-to-end scenarios without a database.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*entities.Task
}

// NewMemoryTaskRepository creates a new in-memory task repository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]*entities.Task),
	}
}

func (r *MemoryTaskRepository) Create(ctx context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.GetID()] = &cp
	return nil
}

func (r *MemoryTaskRepository) FindByID(ctx context.Context, id string) (*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryTaskRepository) UpdateStatus(ctx context.Context, id string, status entities.TaskStatus, message string, result map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task not found: %s", id)
	}
	if !t.SetStatus(status) {
		return fmt.Errorf("invalid task status transition: %s -> %s", t.Status, status)
	}
	if message != "" {
		t.Message = message
	}
	if result != nil {
		t.SetResult(result)
	}
	return nil
}

func (r *MemoryTaskRepository) UpdateProgress(ctx context.Context, id string, step string, percent int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task not found: %s", id)
	}
	t.UpdateProgress(step, percent, message)
	return nil
}
