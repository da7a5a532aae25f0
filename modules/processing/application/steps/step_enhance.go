package steps

import (
	"context"
	"encoding/json"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
)

// EnhanceOutput is step 5's durable output: the transcript bundle, possibly
// enriched with chapters/keywords/summary, the key of the enhanced
// transcript object when enhancement ran, and the plain-text transcript
// key every run allocates (step 9 writes the bytes; allocating the key here
// lets step 7 reference a stable URL before the object itself exists).
type EnhanceOutput struct {
	Bundle        entities.TranscriptBundle `json:"bundle"`
	EnhancedKey   string                    `json:"enhancedKey,omitempty"`
	PlainTextKey  string                    `json:"plainTextKey"`
}

// stepEnhance is optional: if no Enhancer is configured, the merged bundle
// passes through unchanged. Enhancement failures degrade gracefully inside
// the Enhancer itself (§4.10) and never fail this step.
func (d *Driver) stepEnhance(ctx context.Context, ref entities.EpisodeRef, transcribed TranscribeOutput) (EnhanceOutput, error) {
	plainTextKey := d.keys.TranscriptPlainKey(ref.EpisodeID, d.keys.NewUUID())

	if d.enhancer == nil {
		return EnhanceOutput{Bundle: transcribed.Merged, PlainTextKey: plainTextKey}, nil
	}

	chunkMeta := make([]*entities.ChunkMetadata, len(transcribed.Chunks))
	for i, c := range transcribed.Chunks {
		chunkMeta[i] = c.Metadata
	}

	bundle := d.enhancer.Enhance(ctx, transcribed.Merged, chunkMeta)

	id := d.keys.NewUUID()
	key := d.keys.TranscriptEnhancedKey(ref.EpisodeID, id)
	payload, err := json.Marshal(bundle)
	if err != nil {
		return EnhanceOutput{Bundle: bundle, PlainTextKey: plainTextKey}, nil
	}
	if err := d.store.Put(ctx, key, "application/json", payload); err != nil {
		return EnhanceOutput{Bundle: bundle, PlainTextKey: plainTextKey}, nil
	}

	return EnhanceOutput{Bundle: bundle, EnhancedKey: key, PlainTextKey: plainTextKey}, nil
}
