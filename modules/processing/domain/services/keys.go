package services

import (
	"fmt"

	"github.com/google/uuid"
)

// KeyAllocator maps (episodeId, workflowId, chunkId, ...) to the object-store
// keys the pipeline reads and writes. Every method is a pure function; the
// only side effect anywhere in this file is UUID generation. Step bodies call
// NewUUID and persist the result in their output, so replay of a completed
// step reuses it; a Step Kernel retry of a failed body generates a new one.
type KeyAllocator struct{}

// NewKeyAllocator constructs a KeyAllocator. It carries no state.
func NewKeyAllocator() KeyAllocator {
	return KeyAllocator{}
}

// NewUUID generates a fresh UUID for use by a step that is about to allocate
// keys for the first time. Callers must persist the result as part of the
// step's output so subsequent replays reuse it.
func (KeyAllocator) NewUUID() string {
	return uuid.New().String()
}

// ProcessingKey is the encoded-for-processing object: a low-bitrate mono
// Opus copy used only for chunking and STT.
func (KeyAllocator) ProcessingKey(episodeID, id string) string {
	return fmt.Sprintf("processing/%s/%s_24k_mono.ogg", episodeID, id)
}

// ChunkKey is one chunk object, named by the configured chunk codec.
func (KeyAllocator) ChunkKey(episodeID, id, chunkCodec string) string {
	return fmt.Sprintf("chunks/%s/%s.%s", episodeID, id, chunkExt(chunkCodec))
}

// RenditionKey is a final encoded rendition at a given codec/bitrate.
func (KeyAllocator) RenditionKey(episodeID, codec string, bitrateKbps int) string {
	return fmt.Sprintf("encoded/%s/%s_%d.%s", episodeID, codec, bitrateKbps, codec)
}

// TranscriptPlainKey is the plain-text transcript object.
func (KeyAllocator) TranscriptPlainKey(episodeID, id string) string {
	return fmt.Sprintf("transcripts/%s/%s.txt", episodeID, id)
}

// TranscriptEnhancedKey is the enhanced transcript JSON object.
func (KeyAllocator) TranscriptEnhancedKey(episodeID, id string) string {
	return fmt.Sprintf("transcripts/%s/%s-enhanced.json", episodeID, id)
}

// ChunkTranscriptionsDumpKey is the raw per-chunk transcription dump.
func (KeyAllocator) ChunkTranscriptionsDumpKey(episodeID, workflowID string) string {
	return fmt.Sprintf("transcriptions/%s/%s/chunk-transcriptions.json", episodeID, workflowID)
}

// RenditionLabel is the "<codec>_<bitrate>kbps" key episode.encodedAudioUrls
// uses (invariant I4).
func RenditionLabel(codec string, bitrateKbps int) string {
	return fmt.Sprintf("%s_%dkbps", codec, bitrateKbps)
}

func chunkExt(chunkCodec string) string {
	switch chunkCodec {
	case "mp3":
		return "mp3"
	default:
		return "ogg"
	}
}
