package entities

import (
	"github.com/sesamyab/audiopipeline/seedwork/domain"
)

// Episode is the subset of the episode-store record the pipeline is allowed
// to touch: pointers to produced artifacts. The full show/episode/image/
// organization schema lives outside this module's concern.
type Episode struct {
	domain.BaseEntity
	InputAudioKey    string            `json:"input_audio_key" gorm:"column:input_audio_key;not null"`
	TranscriptURL    string            `json:"transcript_url,omitempty" gorm:"column:transcript_url"`
	EncodedAudioURLs map[string]string `json:"encoded_audio_urls,omitempty" gorm:"column:encoded_audio_urls;type:jsonb"`
	Keywords         []string          `json:"keywords,omitempty" gorm:"column:keywords;type:jsonb"`
}

// NewEpisode creates a new Episode record for a given input audio key.
func NewEpisode(inputAudioKey string) Episode {
	e := Episode{InputAudioKey: inputAudioKey}
	e.SetID(domain.GenerateID())
	return e
}

// TableName sets the table name for GORM.
func (Episode) TableName() string {
	return "episodes"
}
