package repositories

import (
	"context"
	"fmt"

	"github.com/sesamyab/audiopipeline/modules/episode/domain/repositories"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/firebase"

	"cloud.google.com/go/firestore"
)

const episodeCollection = "episodes"

// FirebaseEpisodeRepository implements EpisodeRepository on top of
// Firestore, an alternate backing to GormEpisodeRepository.
type FirebaseEpisodeRepository struct {
	client *firestore.Client
}

// NewFirebaseEpisodeRepository creates a new Firestore-backed episode repository.
func NewFirebaseEpisodeRepository(fb *firebase.Client) (*FirebaseEpisodeRepository, error) {
	client, err := fb.Firestore(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}
	return &FirebaseEpisodeRepository{client: client}, nil
}

func (r *FirebaseEpisodeRepository) UpdateByIDOnly(ctx context.Context, episodeID string, update repositories.EpisodeUpdate) error {
	var updates []firestore.Update
	if update.TranscriptURL != nil {
		updates = append(updates, firestore.Update{Path: "TranscriptURL", Value: *update.TranscriptURL})
	}
	if update.EncodedAudioURLs != nil {
		updates = append(updates, firestore.Update{Path: "EncodedAudioURLs", Value: update.EncodedAudioURLs})
	}
	if update.Keywords != nil {
		updates = append(updates, firestore.Update{Path: "Keywords", Value: update.Keywords})
	}
	if len(updates) == 0 {
		return nil
	}
	_, err := r.client.Collection(episodeCollection).Doc(episodeID).Update(ctx, updates)
	return err
}
