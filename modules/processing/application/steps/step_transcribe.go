package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/services"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/stt"
)

// transcribeConcurrency is the hard bound on in-flight chunk transcriptions
// (§5 "Bounded fan-out").
const transcribeConcurrency = 3

// TranscribeOutput is step 4's durable output: every chunk that transcribed
// successfully (ordered by index), the merged transcript, and the key of
// the raw per-chunk dump.
type TranscribeOutput struct {
	Chunks      []entities.TranscribedChunk `json:"chunks"`
	Merged      entities.TranscriptBundle   `json:"merged"`
	TotalChunks int                         `json:"totalChunks"`
	DumpKey     string                      `json:"dumpKey"`
}

// stepTranscribe fans out one STT call per chunk with bounded concurrency.
// A per-chunk failure is caught and recorded, not propagated; the step only
// fails with AllChunksFailed if every chunk failed (§4.9).
func (d *Driver) stepTranscribe(ctx context.Context, workflowID string, ref entities.EpisodeRef, config entities.PipelineConfig, plan entities.ChunkPlan) (TranscribeOutput, error) {
	sem := semaphore.NewWeighted(transcribeConcurrency)
	results := make([]*entities.TranscribedChunk, len(plan.Chunks))
	var wg sync.WaitGroup

	for i, slot := range plan.Chunks {
		wg.Add(1)
		go func(i int, slot entities.ChunkSlot) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			chunk, err := d.transcribeOneChunk(ctx, config, slot)
			if err != nil {
				log.Printf("transcribe: chunk %d failed: %v", slot.Index, err)
				return
			}
			results[i] = &chunk
		}(i, slot)
	}
	wg.Wait()

	var succeeded []entities.TranscribedChunk
	for _, r := range results {
		if r != nil {
			succeeded = append(succeeded, *r)
		}
	}
	if len(succeeded) == 0 {
		return TranscribeOutput{}, perrors.NewAllChunksFailed(fmt.Sprintf("all %d chunks failed transcription", len(plan.Chunks)))
	}

	merged := services.MergeChunks(succeeded, config.OverlapDurationSec)

	dumpKey := d.keys.ChunkTranscriptionsDumpKey(ref.EpisodeID, workflowID)
	if payload, err := json.Marshal(succeeded); err == nil {
		_ = d.store.Put(ctx, dumpKey, "application/json", payload)
	}

	return TranscribeOutput{
		Chunks:      succeeded,
		Merged:      merged,
		TotalChunks: len(succeeded),
		DumpKey:     dumpKey,
	}, nil
}

func (d *Driver) transcribeOneChunk(ctx context.Context, config entities.PipelineConfig, slot entities.ChunkSlot) (entities.TranscribedChunk, error) {
	audioURL, err := d.store.Presign(ctx, objectstore.OpGet, slot.Key, "", time.Hour)
	if err != nil {
		return entities.TranscribedChunk{}, err
	}

	startSec := float64(slot.Index * config.ChunkDurationSec)
	endSec := startSec + float64(config.ChunkDurationSec+config.OverlapDurationSec)

	var chunk entities.TranscribedChunk
	op := func(ctx context.Context) error {
		var sttErr error
		chunk, sttErr = d.stt.Transcribe(ctx, stt.Request{
			AudioURL:     audioURL,
			Model:        config.SttModel,
			Language:     config.SttLanguage,
			Index:        slot.Index,
			StartTimeSec: startSec,
			EndTimeSec:   endSec,
		})
		return sttErr
	}
	if err := services.RunWithinBudget(ctx, op, services.DefaultClassifier, d.retryBudget, 10*time.Second, 5*time.Minute); err != nil {
		return entities.TranscribedChunk{}, err
	}
	return chunk, nil
}
