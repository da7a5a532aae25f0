package steps

import (
	"context"
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/services"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/transcoder"
)

// stepPrepareAndChunk computes the chunk plan (I1/I2) and asks the
// Transcoder to split the processing-encoded audio into the planned slots.
// Chunk UUIDs are generated once per slot; the whole plan, including keys,
// is persisted by the Step Kernel so replay never re-splits.
func (d *Driver) stepPrepareAndChunk(ctx context.Context, ref entities.EpisodeRef, config entities.PipelineConfig, encoded entities.EncodedAudio) (entities.ChunkPlan, error) {
	boundaries := services.PlanBoundaries(encoded.DurationSec, config.ChunkDurationSec, config.OverlapDurationSec)

	slots := make([]entities.ChunkSlot, len(boundaries))
	uploads := make([]transcoder.ChunkUpload, len(boundaries))
	for i, b := range boundaries {
		id := d.keys.NewUUID()
		key := d.keys.ChunkKey(ref.EpisodeID, id, config.ChunkCodec)
		uploadURL, err := d.store.Presign(ctx, objectstore.OpPut, key, "", time.Hour)
		if err != nil {
			return entities.ChunkPlan{}, err
		}
		slots[i] = entities.ChunkSlot{Index: b.Index, Key: key, UploadURL: uploadURL}
		uploads[i] = transcoder.ChunkUpload{Index: b.Index, R2Key: key, UploadURL: uploadURL}
	}

	sourceURL, err := d.store.Presign(ctx, objectstore.OpGet, encoded.Key, "", time.Hour)
	if err != nil {
		return entities.ChunkPlan{}, err
	}

	op := func(ctx context.Context) error {
		_, chunkErr := d.transcoder.Chunk(ctx, transcoder.ChunkRequest{
			AudioURL:        sourceURL,
			ChunkUploadURLs: uploads,
			ChunkDuration:   config.ChunkDurationSec,
			OverlapDuration: config.OverlapDurationSec,
			Duration:        encoded.DurationSec,
			OutputFormat:    config.ChunkCodec,
		})
		return chunkErr
	}
	if err := services.RunWithinBudget(ctx, op, services.DefaultClassifier, d.retryBudget, 10*time.Second, 5*time.Minute); err != nil {
		return entities.ChunkPlan{}, err
	}

	return entities.ChunkPlan{Chunks: slots, DurationSec: encoded.DurationSec}, nil
}
