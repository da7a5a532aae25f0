package commands

import (
	"context"
	"fmt"

	"github.com/sesamyab/audiopipeline/modules/processing/application/runner"
)

// CancelProcessingCommand requests cancellation of an in-flight run by the
// Task ID returned from StartProcessingHandler.
type CancelProcessingCommand struct {
	TaskID string `json:"task_id"`
}

// CancelProcessingHandler signals cancellation of a run's context (§5
// "workflow cancellation signal from the task store"). The run's own
// cleanup (Open Question Decision 3) runs asynchronously once its context
// is observed cancelled; this handler does not wait for it.
type CancelProcessingHandler struct {
	registry *runner.Registry
}

// NewCancelProcessingHandler creates a new handler.
func NewCancelProcessingHandler(registry *runner.Registry) *CancelProcessingHandler {
	return &CancelProcessingHandler{registry: registry}
}

// Handle cancels the run tracked under cmd.TaskID. Returns an error if no
// run is currently tracked under that ID (already finished, or unknown).
func (h *CancelProcessingHandler) Handle(ctx context.Context, cmd CancelProcessingCommand) error {
	if !h.registry.Cancel(cmd.TaskID) {
		return fmt.Errorf("no in-flight run tracked for task %s", cmd.TaskID)
	}
	return nil
}
