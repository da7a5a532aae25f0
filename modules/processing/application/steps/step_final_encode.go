package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/services"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/transcoder"
)

// stepFinalEncode encodes every configured "<codec>_<bitrate>" rendition
// concurrently (§5 "Encoding concurrency... one request per format"). All
// formats must succeed for the step to succeed.
func (d *Driver) stepFinalEncode(ctx context.Context, ref entities.EpisodeRef, config entities.PipelineConfig) ([]entities.EncodingRendition, error) {
	sourceURL, err := d.store.Presign(ctx, objectstore.OpGet, ref.InputAudioKey, "", time.Hour)
	if err != nil {
		return nil, err
	}

	renditions := make([]entities.EncodingRendition, len(config.EncodingFormats))
	errs := make([]error, len(config.EncodingFormats))
	var wg sync.WaitGroup

	for i, format := range config.EncodingFormats {
		wg.Add(1)
		go func(i int, format string) {
			defer wg.Done()
			rendition, err := d.encodeOneRendition(ctx, ref, sourceURL, format)
			if err != nil {
				errs[i] = err
				return
			}
			renditions[i] = rendition
		}(i, format)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return renditions, nil
}

func (d *Driver) encodeOneRendition(ctx context.Context, ref entities.EpisodeRef, sourceURL, format string) (entities.EncodingRendition, error) {
	codec, bitrate, err := parseEncodingFormat(format)
	if err != nil {
		return entities.EncodingRendition{}, err
	}

	key := d.keys.RenditionKey(ref.EpisodeID, codec, bitrate)
	uploadURL, err := d.store.Presign(ctx, objectstore.OpPut, key, "", time.Hour)
	if err != nil {
		return entities.EncodingRendition{}, err
	}

	var result transcoder.EncodeResult
	op := func(ctx context.Context) error {
		var encErr error
		result, encErr = d.transcoder.Encode(ctx, transcoder.EncodeRequest{
			AudioURL:     sourceURL,
			UploadURL:    uploadURL,
			OutputFormat: codec,
			Bitrate:      bitrate,
		})
		return encErr
	}
	if err := services.RunWithinBudget(ctx, op, services.DefaultClassifier, d.retryBudget, 10*time.Second, 5*time.Minute); err != nil {
		return entities.EncodingRendition{}, err
	}

	return entities.EncodingRendition{
		Codec:       codec,
		BitrateKbps: bitrate,
		Key:         key,
		SizeBytes:   result.SizeBytes,
		DurationSec: result.DurationSec,
	}, nil
}

// parseEncodingFormat parses "<codec>_<bitrate>" per the
// `^(mp3|opus)_[0-9]+$` contract (§3 PipelineConfig).
func parseEncodingFormat(format string) (codec string, bitrateKbps int, err error) {
	parts := strings.SplitN(format, "_", 2)
	if len(parts) != 2 {
		return "", 0, perrors.NewConfigError(fmt.Sprintf("malformed encoding format %q", format), nil)
	}
	codec = parts[0]
	if codec != "mp3" && codec != "opus" {
		return "", 0, perrors.NewConfigError(fmt.Sprintf("unsupported codec in encoding format %q", format), nil)
	}
	bitrate, err := strconv.Atoi(parts[1])
	if err != nil || bitrate <= 0 {
		return "", 0, perrors.NewConfigError(fmt.Sprintf("malformed bitrate in encoding format %q", format), nil)
	}
	return codec, bitrate, nil
}
