package handlers

import (
	"net/http"

	"github.com/sesamyab/audiopipeline/modules/processing/application/commands"

	"github.com/gin-gonic/gin"
)

// ProcessingHandlers exposes the one HTTP surface the pipeline retains: an
// operational cancellation-signal receiver (§5). Starting a run is an
// internal command invocation, not an HTTP trigger (out of scope per §1).
type ProcessingHandlers struct {
	cancelHandler *commands.CancelProcessingHandler
}

// NewProcessingHandlers creates a new ProcessingHandlers.
func NewProcessingHandlers(cancelHandler *commands.CancelProcessingHandler) *ProcessingHandlers {
	return &ProcessingHandlers{cancelHandler: cancelHandler}
}

// CancelTask signals cancellation of the in-flight run tracked under the
// task ID in the URL.
// @Summary Cancel a pipeline run
// @Description Sends a cancellation signal to an in-flight processing task
// @Tags processing
// @Param id path string true "Task ID"
// @Success 202 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tasks/{id}/cancel [post]
func (h *ProcessingHandlers) CancelTask(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task id is required"})
		return
	}

	cmd := commands.CancelProcessingCommand{TaskID: taskID}
	if err := h.cancelHandler.Handle(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "cancellation requested"})
}
