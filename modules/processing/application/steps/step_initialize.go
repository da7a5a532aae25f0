package steps

import (
	"context"
	"strings"
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
)

// InitializeOutput is step 1's durable output: the read-only WorkflowState
// every later step consumes, plus a presigned preview URL for the input
// audio.
type InitializeOutput struct {
	State      entities.WorkflowState `json:"state"`
	PreviewURL string                 `json:"previewUrl"`
}

// stepInitialize validates the run's configuration, applies the
// language/model gating decision (§4.9 "this is an initialization-time
// decision; downstream steps must not re-derive it"), and persists the
// WorkflowState every later step treats as read-only.
func (d *Driver) stepInitialize(ctx context.Context, workflowID string, ref entities.EpisodeRef, config entities.PipelineConfig, taskID string) (InitializeOutput, error) {
	if err := validateSttModel(config.SttModel); err != nil {
		return InitializeOutput{}, err
	}
	if config.ChunkCodec == "" {
		config.ChunkCodec = "opus"
	}
	if config.ChunkCodec != "opus" && config.ChunkCodec != "mp3" {
		return InitializeOutput{}, perrors.NewConfigError("unsupported chunkCodec: "+config.ChunkCodec, nil)
	}
	if config.RetryBudget == 0 {
		config.RetryBudget = time.Hour
	}

	if config.UseStructuredSttFeatures {
		config.ChunkDurationSec = 600
		config.OverlapDurationSec = 30
	} else {
		if config.ChunkDurationSec == 0 {
			config.ChunkDurationSec = 60
		}
		if config.OverlapDurationSec == 0 {
			config.OverlapDurationSec = 2
		}
	}

	state := entities.WorkflowState{
		WorkflowID: workflowID,
		EpisodeRef: ref,
		Config:     config,
		StartedAt:  time.Now(),
		TaskID:     taskID,
	}

	previewURL, err := d.store.Presign(ctx, objectstore.OpGet, ref.InputAudioKey, "", 15*time.Minute)
	if err != nil {
		return InitializeOutput{}, err
	}

	return InitializeOutput{State: state, PreviewURL: previewURL}, nil
}

func validateSttModel(model string) error {
	lower := strings.ToLower(model)
	switch {
	case lower == "":
		return perrors.NewConfigError("sttModel is required", nil)
	case strings.Contains(lower, "whisper"), strings.Contains(lower, "nova"), strings.HasPrefix(lower, "@cf/"):
		return nil
	default:
		return perrors.NewConfigError("unknown sttModel: "+model, nil)
	}
}
