package repositories

import "context"

// EpisodeUpdate carries the fields the pipeline is allowed to set on an
// episode record. Nil fields are left untouched (partial update).
type EpisodeUpdate struct {
	TranscriptURL    *string
	EncodedAudioURLs map[string]string
	Keywords         []string
}

// EpisodeRepository is the episode store contract the pipeline depends on.
// It exposes only update-by-id, per spec.md's "Non-goals": the rest of the
// episode/show CRUD surface is out of scope.
type EpisodeRepository interface {
	UpdateByIDOnly(ctx context.Context, episodeID string, update EpisodeUpdate) error
}
