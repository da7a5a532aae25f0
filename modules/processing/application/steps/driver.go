package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	episoderepos "github.com/sesamyab/audiopipeline/modules/episode/domain/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/application/cleanup"
	"github.com/sesamyab/audiopipeline/modules/processing/application/enhance"
	"github.com/sesamyab/audiopipeline/modules/processing/application/progress"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/services"
	seedworkentities "github.com/sesamyab/audiopipeline/seedwork/domain/entities"
)

// Driver is the Pipeline Driver (C9): the ordered sequence of steps for one
// episode, wired to every collaborator the steps need and carrying the
// Step Kernel policy table from §4.9.
type Driver struct {
	store      ObjectStore
	transcoder Transcoder
	stt        SttClient
	keys       services.KeyAllocator
	enhancer   *enhance.Enhancer // nil disables step 5's LLM pass
	cleaner    *cleanup.Cleaner
	progress   *progress.Reporter
	episodes   episoderepos.EpisodeRepository
	steplog    repositories.StepLogRepository

	retryBudget    time.Duration
	publicEndpoint string
}

// NewDriver wires the Pipeline Driver. enhancer may be nil, in which case
// step 5 passes the merged transcript through unenhanced. store/
// transcoderClient/sttClient are accepted as interfaces so tests can
// substitute in-memory/fake implementations; production wiring passes the
// concrete *objectstore.Client, *transcoder.Client, *stt.Client.
func NewDriver(
	store ObjectStore,
	transcoderClient Transcoder,
	sttClient SttClient,
	enhancer *enhance.Enhancer,
	cleaner *cleanup.Cleaner,
	progressReporter *progress.Reporter,
	episodes episoderepos.EpisodeRepository,
	steplog repositories.StepLogRepository,
	retryBudget time.Duration,
	publicEndpoint string,
) *Driver {
	return &Driver{
		store:          store,
		transcoder:     transcoderClient,
		stt:            sttClient,
		keys:           services.NewKeyAllocator(),
		enhancer:       enhancer,
		cleaner:        cleaner,
		progress:       progressReporter,
		episodes:       episodes,
		steplog:        steplog,
		retryBudget:    retryBudget,
		publicEndpoint: publicEndpoint,
	}
}

// Run drives one pipeline run for (workflowID, ref) to completion, mapping
// step transitions onto the task referenced by taskID (§4.9 "Mapping to
// task states"). Re-invoking Run for a workflowID that already has a
// persisted step log resumes from the first step that did not previously
// succeed (P7).
func (d *Driver) Run(ctx context.Context, workflowID string, ref entities.EpisodeRef, config entities.PipelineConfig, taskID string) (*RunResult, error) {
	k := NewKernel(workflowID, d.steplog)
	var allocated []string

	d.progress.ReportStatus(ctx, taskID, seedworkentities.TaskProcessing, "pipeline started", nil)

	init, err := Do(ctx, k, "initialize", Policy{Timeout: 30 * time.Second}, func(ctx context.Context) (InitializeOutput, error) {
		return d.stepInitialize(ctx, workflowID, ref, config, taskID)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	config = init.State.Config
	d.progress.ReportStep(ctx, taskID, "initialize", 5, "initialized")

	encoded, err := Do(ctx, k, "encode-for-processing", Policy{Retries: 2, Delay: 5 * time.Second, Timeout: 10 * time.Minute}, func(ctx context.Context) (entities.EncodedAudio, error) {
		return d.stepEncodeForProcessing(ctx, ref)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	allocated = append(allocated, encoded.Key)
	d.progress.ReportStep(ctx, taskID, "encode-for-processing", 20, "encoded for processing")

	plan, err := Do(ctx, k, "prepare-and-chunk", Policy{Retries: 3, Delay: 10 * time.Second, Backoff: "exponential", Timeout: 12 * time.Minute}, func(ctx context.Context) (entities.ChunkPlan, error) {
		return d.stepPrepareAndChunk(ctx, ref, config, encoded)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	for _, c := range plan.Chunks {
		allocated = append(allocated, c.Key)
	}
	d.progress.ReportStep(ctx, taskID, "prepare-and-chunk", 35, fmt.Sprintf("planned %d chunks", len(plan.Chunks)))

	transcribed, err := Do(ctx, k, "transcribe", Policy{Retries: 2, Delay: 10 * time.Second, Backoff: "exponential", Timeout: 20 * time.Minute}, func(ctx context.Context) (TranscribeOutput, error) {
		return d.stepTranscribe(ctx, workflowID, ref, config, plan)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	d.progress.ReportStep(ctx, taskID, "transcribe", 55, fmt.Sprintf("transcribed %d/%d chunks", transcribed.TotalChunks, len(plan.Chunks)))

	enhanced, err := Do(ctx, k, "enhance", Policy{Retries: 2, Delay: 10 * time.Second, Backoff: "exponential", Timeout: 10 * time.Minute}, func(ctx context.Context) (EnhanceOutput, error) {
		return d.stepEnhance(ctx, ref, transcribed)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	d.progress.ReportStep(ctx, taskID, "enhance", 70, "enhancement complete")

	renditions, err := Do(ctx, k, "final-encode", Policy{Retries: 3, Delay: 10 * time.Second, Backoff: "exponential", Timeout: 15 * time.Minute}, func(ctx context.Context) ([]entities.EncodingRendition, error) {
		return d.stepFinalEncode(ctx, ref, config)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	d.progress.ReportStep(ctx, taskID, "final-encode", 85, fmt.Sprintf("encoded %d renditions", len(renditions)))

	_, err = Do(ctx, k, "update-episode", Policy{Retries: 2, Delay: 5 * time.Second, Timeout: 5 * time.Minute}, func(ctx context.Context) (UpdateEpisodeOutput, error) {
		return d.stepUpdateEpisode(ctx, ref, enhanced, renditions)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	d.progress.ReportStep(ctx, taskID, "update-episode", 90, "episode updated")

	_, err = Do(ctx, k, "cleanup", Policy{Retries: 1, Delay: 2 * time.Second, Timeout: time.Minute}, func(ctx context.Context) (CleanupOutput, error) {
		return d.stepCleanup(ctx, encoded, plan)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}
	d.progress.ReportStep(ctx, taskID, "cleanup", 95, "intermediate objects cleaned up")

	final, err := Do(ctx, k, "finalize", Policy{Retries: 2, Delay: 2 * time.Second, Timeout: 5 * time.Minute}, func(ctx context.Context) (FinalizeOutput, error) {
		return d.stepFinalize(ctx, enhanced)
	})
	if err != nil {
		return d.fail(ctx, taskID, err, allocated)
	}

	result := &RunResult{
		Success:     true,
		EpisodeID:   ref.EpisodeID,
		WorkflowID:  workflowID,
		CompletedAt: time.Now(),
		Encoding:    EncodingSummary{Formats: len(renditions)},
		Processing: ProcessingSummary{
			TotalWords:  enhanced.Bundle.TotalWords,
			TotalChunks: transcribed.TotalChunks,
			TextLength:  final.TextLength,
		},
	}
	if len(enhanced.Bundle.Chapters) > 0 || len(enhanced.Bundle.Keywords) > 0 || enhanced.Bundle.Summary != "" {
		result.Enhanced = &EnhancedSummary{
			Chapters:   len(enhanced.Bundle.Chapters),
			Keywords:   len(enhanced.Bundle.Keywords),
			HasSummary: enhanced.Bundle.Summary != "",
		}
	}

	d.progress.ReportStatus(ctx, taskID, seedworkentities.TaskDone, "pipeline completed", toMap(result))
	return result, nil
}

// fail maps a step failure onto the task (§7 "User-visible failure
// behavior") and, if the failure was a context cancellation, runs the
// Cleaner's best-effort cancel-cleanup pass over the intermediate keys the
// run's completed steps had allocated so far (Open Question Decision 3).
func (d *Driver) fail(ctx context.Context, taskID string, err error, allocated []string) (*RunResult, error) {
	stepName := "unknown"
	var stepErr *perrors.StepError
	if errors.As(err, &stepErr) {
		stepName = stepErr.StepName
	}

	failure := FailureResult{
		Status:        "failed",
		Error:         fmt.Sprintf("Failed at step %s: %v", stepName, err),
		Step:          stepName,
		Timestamp:     time.Now(),
		OriginalError: err.Error(),
	}
	d.progress.ReportStatus(ctx, taskID, seedworkentities.TaskFailed, failure.Error, toMap(failure))

	if errors.Is(err, context.Canceled) && len(allocated) > 0 {
		d.cleaner.CleanupPartial(context.Background(), allocated)
	}

	return nil, err
}

func toMap(v any) map[string]interface{} {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil
	}
	return out
}
