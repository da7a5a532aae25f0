package commands

import (
	"context"
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/application/runner"
	"github.com/sesamyab/audiopipeline/modules/processing/application/steps"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	seedworkentities "github.com/sesamyab/audiopipeline/seedwork/domain/entities"
	"github.com/sesamyab/audiopipeline/seedwork/domain/repositories"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/events"
)

// StartProcessingCommand requests a pipeline run for one episode's input
// audio. Config is merged over entities.DefaultPipelineConfig(); zero
// fields take the default.
type StartProcessingCommand struct {
	EpisodeID     string                  `json:"episode_id"`
	InputAudioKey string                  `json:"input_audio_key"`
	Config        entities.PipelineConfig `json:"config"`
}

// StartProcessingResult is returned immediately; the run itself proceeds in
// the background and is tracked through the Task referenced by TaskID.
type StartProcessingResult struct {
	TaskID     string    `json:"task_id"`
	WorkflowID string    `json:"workflow_id"`
	StartedAt  time.Time `json:"started_at"`
}

// StartProcessingHandler dispatches one pipeline run, in the teacher's
// CQRS command/handler convention (start_transcription.go): create the
// tracking record, publish a domain event, launch the work.
type StartProcessingHandler struct {
	tasks    repositories.TaskRepository
	driver   *steps.Driver
	registry *runner.Registry
	eventBus events.EventBus
}

// NewStartProcessingHandler creates a new handler.
func NewStartProcessingHandler(tasks repositories.TaskRepository, driver *steps.Driver, registry *runner.Registry, eventBus events.EventBus) *StartProcessingHandler {
	return &StartProcessingHandler{tasks: tasks, driver: driver, registry: registry, eventBus: eventBus}
}

// ProcessingStartedEvent is published once the run's Task record exists,
// before the background run begins.
type ProcessingStartedEvent struct {
	TaskID     string    `json:"task_id"`
	WorkflowID string    `json:"workflow_id"`
	EpisodeID  string    `json:"episode_id"`
	StartedAt  time.Time `json:"started_at"`
}

// Handle creates the Task record and launches the pipeline run in the
// background, returning as soon as the run is registered for cancellation.
// The run itself reports its progress and terminal status through the Task
// repository (C7 Progress Reporter), not through this command's result.
func (h *StartProcessingHandler) Handle(ctx context.Context, cmd StartProcessingCommand) (*StartProcessingResult, error) {
	config := mergeConfig(cmd.Config)

	task := seedworkentities.NewTask("processing", "", map[string]interface{}{
		"episode_id":      cmd.EpisodeID,
		"input_audio_key": cmd.InputAudioKey,
	})
	if err := h.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}

	workflowID := task.GetID()
	ref := entities.EpisodeRef{EpisodeID: cmd.EpisodeID, InputAudioKey: cmd.InputAudioKey}

	h.eventBus.Publish("processing.started", &ProcessingStartedEvent{
		TaskID:     task.GetID(),
		WorkflowID: workflowID,
		EpisodeID:  cmd.EpisodeID,
		StartedAt:  time.Now(),
	})

	runCtx, cancel := h.registry.Register(context.Background(), task.GetID())
	go func() {
		defer h.registry.Forget(task.GetID())
		defer cancel()
		h.driver.Run(runCtx, workflowID, ref, config, task.GetID())
	}()

	return &StartProcessingResult{TaskID: task.GetID(), WorkflowID: workflowID, StartedAt: time.Now()}, nil
}

func mergeConfig(override entities.PipelineConfig) entities.PipelineConfig {
	config := entities.DefaultPipelineConfig()
	if override.ChunkDurationSec != 0 {
		config.ChunkDurationSec = override.ChunkDurationSec
	}
	if override.OverlapDurationSec != 0 {
		config.OverlapDurationSec = override.OverlapDurationSec
	}
	if len(override.EncodingFormats) > 0 {
		config.EncodingFormats = override.EncodingFormats
	}
	if override.SttModel != "" {
		config.SttModel = override.SttModel
	}
	if override.SttLanguage != "" {
		config.SttLanguage = override.SttLanguage
	}
	if override.ChunkCodec != "" {
		config.ChunkCodec = override.ChunkCodec
	}
	if override.RetryBudget != 0 {
		config.RetryBudget = override.RetryBudget
	}
	config.UseStructuredSttFeatures = override.UseStructuredSttFeatures
	return config
}
