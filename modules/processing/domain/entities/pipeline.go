package entities

import "time"

// EpisodeRef identifies the episode and input audio for one pipeline run.
// Immutable for the duration of the run.
type EpisodeRef struct {
	EpisodeID     string `json:"episode_id"`
	InputAudioKey string `json:"input_audio_key"`
}

// PipelineConfig is the set of per-run tunables for chunking, encoding and
// STT. The steps' retry base/max delays and Step Kernel policies are fixed in
// the step code and are not read from this struct.
type PipelineConfig struct {
	ChunkDurationSec         int      `json:"chunk_duration_sec"`
	OverlapDurationSec       int      `json:"overlap_duration_sec"`
	EncodingFormats          []string `json:"encoding_formats"`
	SttModel                 string   `json:"stt_model"`
	SttLanguage              string   `json:"stt_language"`
	UseStructuredSttFeatures bool     `json:"use_structured_stt_features"`

	// ChunkCodec is the canonical intermediate codec for chunk objects
	// (Object-Key Allocator open question: a policy choice, defaulting to
	// "opus"). Validated against {"opus", "mp3"}.
	ChunkCodec string `json:"chunk_codec"`

	// RetryBudget is defaulted (1 hour) and recorded in the WorkflowState.
	// The steps' Retry/Backoff loops are bounded by the budget the Driver was
	// constructed with (NewDriver's retryBudget), not by this field.
	RetryBudget time.Duration `json:"retry_budget"`
}

// DefaultPipelineConfig returns the documented defaults (chunkDur=60,
// overlap=2, chunkCodec=opus, retryBudget=1h), which callers override as
// needed.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkDurationSec:   60,
		OverlapDurationSec: 2,
		ChunkCodec:         "opus",
		RetryBudget:        time.Hour,
	}
}

// WorkflowState is the persisted, replay-safe summary produced by step 1.
// Once written it is read-only; downstream steps only append their own
// outputs.
type WorkflowState struct {
	WorkflowID string         `json:"workflow_id"`
	EpisodeRef EpisodeRef     `json:"episode_ref"`
	Config     PipelineConfig `json:"config"`
	StartedAt  time.Time      `json:"started_at"`
	TaskID     string         `json:"task_id,omitempty"`
}

// EncodedAudio is the output of the processing-encoding step: a low-bitrate
// mono copy used only for chunking and STT.
type EncodedAudio struct {
	Key           string  `json:"key"`
	DurationSec   float64 `json:"duration_sec"`
	PresignedURL  string  `json:"presigned_url"`
}

// ChunkSlot is one entry of a ChunkPlan.
type ChunkSlot struct {
	Index     int    `json:"index"`
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

// ChunkPlan is the finite, ordered sequence of chunk slots covering
// [0, durationSec] with exactly ceil(durationSec/chunkDurationSec) entries.
type ChunkPlan struct {
	Chunks      []ChunkSlot `json:"chunks"`
	DurationSec float64     `json:"duration_sec"`
}

// Word is one timed word within a transcribed chunk.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ChunkMetadata carries the extra fields a structured STT backend can
// produce alongside word timings.
type ChunkMetadata struct {
	Speakers   []string `json:"speakers,omitempty"`
	Paragraphs []string `json:"paragraphs,omitempty"`
	Chapters   []string `json:"chapters,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Language   string   `json:"language,omitempty"`
}

// TranscribedChunk is the normalized result of transcribing one chunk,
// regardless of which STT backend produced it.
type TranscribedChunk struct {
	Index        int            `json:"index"`
	StartTimeSec float64        `json:"start_time_sec"`
	EndTimeSec   float64        `json:"end_time_sec"`
	Text         string         `json:"text"`
	Words        []Word         `json:"words,omitempty"`
	Metadata     *ChunkMetadata `json:"metadata,omitempty"`
}

// EncodingRendition is one final encoded audio output.
type EncodingRendition struct {
	Codec       string `json:"codec"`
	BitrateKbps int    `json:"bitrate_kbps"`
	Key         string `json:"key"`
	SizeBytes   int64  `json:"size_bytes"`
	DurationSec float64 `json:"duration_sec"`
}

// TranscriptBundle is the final, merged transcript plus whatever enhanced
// metadata the Enhancer produced.
type TranscriptBundle struct {
	Text       string   `json:"text"`
	TotalWords int      `json:"total_words"`
	Words      []Word   `json:"words,omitempty"`
	Chapters   []string `json:"chapters,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}
