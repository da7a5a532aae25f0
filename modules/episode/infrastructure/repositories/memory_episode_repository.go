package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/sesamyab/audiopipeline/modules/episode/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/episode/domain/repositories"
)

// MemoryEpisodeRepository is an in-memory EpisodeRepository, used by the
// end-to-end scenario tests.
type MemoryEpisodeRepository struct {
	mu       sync.RWMutex
	episodes map[string]*entities.Episode
}

// NewMemoryEpisodeRepository creates a new in-memory episode repository,
// optionally pre-seeded with episodes.
func NewMemoryEpisodeRepository(seed ...entities.Episode) *MemoryEpisodeRepository {
	r := &MemoryEpisodeRepository{episodes: make(map[string]*entities.Episode)}
	for i := range seed {
		e := seed[i]
		r.episodes[e.GetID()] = &e
	}
	return r
}

func (r *MemoryEpisodeRepository) UpdateByIDOnly(ctx context.Context, episodeID string, update repositories.EpisodeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.episodes[episodeID]
	if !ok {
		return fmt.Errorf("episode not found: %s", episodeID)
	}
	if update.TranscriptURL != nil {
		e.TranscriptURL = *update.TranscriptURL
	}
	if update.EncodedAudioURLs != nil {
		e.EncodedAudioURLs = update.EncodedAudioURLs
	}
	if update.Keywords != nil {
		e.Keywords = update.Keywords
	}
	return nil
}

// Get returns a copy of the stored episode, for test assertions.
func (r *MemoryEpisodeRepository) Get(episodeID string) (entities.Episode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.episodes[episodeID]
	if !ok {
		return entities.Episode{}, false
	}
	return *e, true
}
