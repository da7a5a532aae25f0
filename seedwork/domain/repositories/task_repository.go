package repositories

import (
	"context"

	"github.com/sesamyab/audiopipeline/seedwork/domain/entities"
)

// TaskRepository defines the interface for Task persistence, used by the
// Progress Reporter and the Pipeline Driver to drive one run's external
// lifecycle record. Implementations must serialize concurrent updates to the
// same task row themselves; the pipeline performs no compare-and-swap.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	FindByID(ctx context.Context, id string) (*entities.Task, error)

	// UpdateStatus applies a status transition and persists it. Implementations
	// must honor entities.Task.SetStatus's stickiness rules.
	UpdateStatus(ctx context.Context, id string, status entities.TaskStatus, message string, result map[string]interface{}) error

	// UpdateProgress is a best-effort, non-terminal progress nudge.
	UpdateProgress(ctx context.Context, id string, step string, percent int, message string) error
}
