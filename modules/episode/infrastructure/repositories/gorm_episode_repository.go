package repositories

import (
	"context"
	"fmt"

	"github.com/sesamyab/audiopipeline/modules/episode/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/episode/domain/repositories"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/database"

	"gorm.io/gorm"
)

// GormEpisodeRepository implements EpisodeRepository using GORM.
type GormEpisodeRepository struct {
	db *gorm.DB
}

// NewGormEpisodeRepository creates a new GORM episode repository.
func NewGormEpisodeRepository() *GormEpisodeRepository {
	return &GormEpisodeRepository{db: database.GetDB()}
}

func (r *GormEpisodeRepository) UpdateByIDOnly(ctx context.Context, episodeID string, update repositories.EpisodeUpdate) error {
	updates := map[string]interface{}{}
	if update.TranscriptURL != nil {
		updates["transcript_url"] = *update.TranscriptURL
	}
	if update.EncodedAudioURLs != nil {
		updates["encoded_audio_urls"] = update.EncodedAudioURLs
	}
	if update.Keywords != nil {
		updates["keywords"] = update.Keywords
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entities.Episode{}).Where("id = ?", episodeID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("episode not found: %s", episodeID)
	}
	return nil
}
