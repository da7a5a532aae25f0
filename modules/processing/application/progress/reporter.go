// Package progress is the C7 Progress Reporter: a best-effort notifier that
// mirrors step transitions onto the Task repository. Grounded on the
// teacher's MemoryEventBus.Publish, which never lets a missing subscriber or
// a handler panic stop the publisher — here, a write failure never fails the
// step that triggered it.
package progress

import (
	"context"
	"log"

	"github.com/sesamyab/audiopipeline/seedwork/domain/entities"
	"github.com/sesamyab/audiopipeline/seedwork/domain/repositories"
)

// Reporter writes task-visible progress. All methods are best-effort: a
// repository error is logged and swallowed, never returned to the caller.
type Reporter struct {
	tasks repositories.TaskRepository
}

// NewReporter creates a Reporter over the given TaskRepository.
func NewReporter(tasks repositories.TaskRepository) *Reporter {
	return &Reporter{tasks: tasks}
}

// ReportStep records that taskID has entered stepName at percent complete,
// with an optional human-readable message.
func (r *Reporter) ReportStep(ctx context.Context, taskID, stepName string, percent int, message string) {
	if taskID == "" {
		return
	}
	if err := r.tasks.UpdateProgress(ctx, taskID, stepName, percent, message); err != nil {
		log.Printf("progress: failed to report step %q for task %s: %v", stepName, taskID, err)
	}
}

// ReportStatus records a terminal or near-terminal status transition
// (processing/done/failed) with an optional result payload.
func (r *Reporter) ReportStatus(ctx context.Context, taskID string, status entities.TaskStatus, message string, result map[string]interface{}) {
	if taskID == "" {
		return
	}
	if err := r.tasks.UpdateStatus(ctx, taskID, status, message, result); err != nil {
		log.Printf("progress: failed to report status %q for task %s: %v", status, taskID, err)
	}
}
