package steps

import (
	"context"
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/stt"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/transcoder"
)

// ObjectStore is the narrow object-store dependency the Driver's steps need.
// *objectstore.Client satisfies it; tests substitute an in-memory fake.
type ObjectStore interface {
	Presign(ctx context.Context, op objectstore.Operation, key, contentType string, ttl time.Duration) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// Transcoder is the narrow transcoder dependency the Driver's steps need.
// *transcoder.Client satisfies it.
type Transcoder interface {
	Encode(ctx context.Context, req transcoder.EncodeRequest) (transcoder.EncodeResult, error)
	Chunk(ctx context.Context, req transcoder.ChunkRequest) ([]transcoder.ChunkResultEntry, error)
}

// SttClient is the narrow STT dependency the Driver's steps need.
// *stt.Client satisfies it.
type SttClient interface {
	Transcribe(ctx context.Context, req stt.Request) (entities.TranscribedChunk, error)
}
