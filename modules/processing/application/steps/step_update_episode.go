package steps

import (
	"context"

	"github.com/sesamyab/audiopipeline/modules/episode/domain/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/services"
)

// UpdateEpisodeOutput is step 7's durable output: confirmation that the
// episode record now points at every produced artifact.
type UpdateEpisodeOutput struct {
	TranscriptURL    string            `json:"transcriptUrl"`
	EncodedAudioURLs map[string]string `json:"encodedAudioUrls"`
}

// stepUpdateEpisode fulfills invariant I4: on success, episode.encodedAudioUrls
// carries exactly one entry per configured format, keyed "<codec>_<bitrate>kbps".
// The transcript key was allocated by step 5; its bytes are written by step 9,
// but the key is stable as soon as it exists. Both fields are persisted as
// bare object keys; presentation URLs are derived from them at read time.
func (d *Driver) stepUpdateEpisode(ctx context.Context, ref entities.EpisodeRef, enhanced EnhanceOutput, renditions []entities.EncodingRendition) (UpdateEpisodeOutput, error) {
	urls := make(map[string]string, len(renditions))
	for _, r := range renditions {
		urls[services.RenditionLabel(r.Codec, r.BitrateKbps)] = r.Key
	}

	transcriptURL := enhanced.PlainTextKey

	update := repositories.EpisodeUpdate{
		TranscriptURL:    &transcriptURL,
		EncodedAudioURLs: urls,
		Keywords:         enhanced.Bundle.Keywords,
	}
	if err := d.episodes.UpdateByIDOnly(ctx, ref.EpisodeID, update); err != nil {
		return UpdateEpisodeOutput{}, err
	}

	return UpdateEpisodeOutput{TranscriptURL: transcriptURL, EncodedAudioURLs: urls}, nil
}
