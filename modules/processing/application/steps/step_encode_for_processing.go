package steps

import (
	"context"
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/services"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/transcoder"
)

// stepEncodeForProcessing produces the low-bitrate mono Opus copy (§4.1)
// used only for chunking and STT. The object key's UUID is generated once
// here; because the Step Kernel persists this step's entire output, replay
// never re-generates it and never re-issues the encode call (P7).
func (d *Driver) stepEncodeForProcessing(ctx context.Context, ref entities.EpisodeRef) (entities.EncodedAudio, error) {
	id := d.keys.NewUUID()
	key := d.keys.ProcessingKey(ref.EpisodeID, id)

	sourceURL, err := d.store.Presign(ctx, objectstore.OpGet, ref.InputAudioKey, "", time.Hour)
	if err != nil {
		return entities.EncodedAudio{}, err
	}
	uploadURL, err := d.store.Presign(ctx, objectstore.OpPut, key, "audio/ogg", time.Hour)
	if err != nil {
		return entities.EncodedAudio{}, err
	}

	var result transcoder.EncodeResult
	op := func(ctx context.Context) error {
		var encErr error
		result, encErr = d.transcoder.Encode(ctx, transcoder.EncodeRequest{
			AudioURL:     sourceURL,
			UploadURL:    uploadURL,
			OutputFormat: "opus",
			Bitrate:      24,
			Channels:     1,
			SampleRate:   16000,
		})
		return encErr
	}
	if err := services.RunWithinBudget(ctx, op, services.DefaultClassifier, d.retryBudget, 5*time.Second, 5*time.Minute); err != nil {
		return entities.EncodedAudio{}, err
	}

	presigned, err := d.store.Presign(ctx, objectstore.OpGet, key, "", time.Hour)
	if err != nil {
		return entities.EncodedAudio{}, err
	}

	return entities.EncodedAudio{Key: key, DurationSec: result.DurationSec, PresignedURL: presigned}, nil
}
