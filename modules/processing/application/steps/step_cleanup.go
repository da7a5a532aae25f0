package steps

import (
	"context"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
)

// CleanupOutput is step 8's durable output: the keys the Cleaner deleted, so
// a replay after a restart can confirm cleanup ran rather than repeat it
// (the deletions themselves are idempotent regardless).
type CleanupOutput struct {
	DeletedKeys []string `json:"deletedKeys"`
}

// stepCleanup deletes the processing-encoded copy and every chunk object
// now that the final renditions and transcript are in hand (§4.11).
func (d *Driver) stepCleanup(ctx context.Context, encoded entities.EncodedAudio, plan entities.ChunkPlan) (CleanupOutput, error) {
	chunkKeys := make([]string, len(plan.Chunks))
	for i, c := range plan.Chunks {
		chunkKeys[i] = c.Key
	}

	d.cleaner.Clean(ctx, encoded.Key, chunkKeys)

	return CleanupOutput{DeletedKeys: append([]string{encoded.Key}, chunkKeys...)}, nil
}
