package routes

import (
	"github.com/sesamyab/audiopipeline/modules/processing/interfaces/http/handlers"

	"github.com/gin-gonic/gin"
)

// ProcessingRoutes sets up the pipeline's retained HTTP surface.
type ProcessingRoutes struct {
	handlers *handlers.ProcessingHandlers
}

// NewProcessingRoutes creates a new ProcessingRoutes.
func NewProcessingRoutes(h *handlers.ProcessingHandlers) *ProcessingRoutes {
	return &ProcessingRoutes{handlers: h}
}

// SetupRoutes registers the cancellation-signal receiver. The rest of the
// CRUD/trigger surface is out of scope (§1 Non-goals).
func (pr *ProcessingRoutes) SetupRoutes(group *gin.RouterGroup) {
	group.POST("/tasks/:id/cancel", pr.handlers.CancelTask)
}
