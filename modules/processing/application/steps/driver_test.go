package steps

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	episodeentities "github.com/sesamyab/audiopipeline/modules/episode/domain/entities"
	episoderepos "github.com/sesamyab/audiopipeline/modules/episode/infrastructure/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/application/cleanup"
	"github.com/sesamyab/audiopipeline/modules/processing/application/enhance"
	"github.com/sesamyab/audiopipeline/modules/processing/application/progress"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	infrarepos "github.com/sesamyab/audiopipeline/modules/processing/infrastructure/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/stt"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/transcoder"
	seedworkentities "github.com/sesamyab/audiopipeline/seedwork/domain/entities"
	seedworkrepos "github.com/sesamyab/audiopipeline/seedwork/infrastructure/repositories"
)

// fakeStore is an in-memory ObjectStore/ObjectDeleter used by every scenario
// test below. Presign never fails; it returns a deterministic, non-signed
// URL since no test ever follows it over the network.
type fakeStore struct {
	mu                       sync.Mutex
	objects                  map[string][]byte
	deleted                  []string
	plainTextPutFailuresLeft int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Presign(ctx context.Context, op objectstore.Operation, key, contentType string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://fake.example/%s/%s", op, key), nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return b, nil
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.HasSuffix(key, ".txt") && f.plainTextPutFailuresLeft > 0 {
		f.plainTextPutFailuresLeft--
		return perrors.NewTransientIOError(fmt.Errorf("simulated object store outage"))
	}
	f.objects[key] = append([]byte(nil), body...)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// fakeTranscoder always succeeds; durationSec controls the encoded-for-
// processing duration the chunk planner sees.
type fakeTranscoder struct {
	mu          sync.Mutex
	durationSec float64
	encodeCalls int
	chunkCalls  int
}

func (f *fakeTranscoder) Encode(ctx context.Context, req transcoder.EncodeRequest) (transcoder.EncodeResult, error) {
	f.mu.Lock()
	f.encodeCalls++
	f.mu.Unlock()
	return transcoder.EncodeResult{DurationSec: f.durationSec, SizeBytes: 4096}, nil
}

func (f *fakeTranscoder) Chunk(ctx context.Context, req transcoder.ChunkRequest) ([]transcoder.ChunkResultEntry, error) {
	f.mu.Lock()
	f.chunkCalls++
	f.mu.Unlock()
	out := make([]transcoder.ChunkResultEntry, len(req.ChunkUploadURLs))
	for i, u := range req.ChunkUploadURLs {
		out[i] = transcoder.ChunkResultEntry{Index: u.Index, Key: u.R2Key}
	}
	return out, nil
}

// fakeSTT calls behavior once per (chunk index, attempt number) so tests can
// script per-chunk failure/recovery sequences.
type fakeSTT struct {
	mu       sync.Mutex
	attempts map[int]int
	behavior func(attempt int, req stt.Request) (entities.TranscribedChunk, error)
}

func newFakeSTT(behavior func(attempt int, req stt.Request) (entities.TranscribedChunk, error)) *fakeSTT {
	return &fakeSTT{attempts: make(map[int]int), behavior: behavior}
}

func (f *fakeSTT) Transcribe(ctx context.Context, req stt.Request) (entities.TranscribedChunk, error) {
	f.mu.Lock()
	f.attempts[req.Index]++
	attempt := f.attempts[req.Index]
	f.mu.Unlock()
	return f.behavior(attempt, req)
}

// fakeGenerator answers each of the Enhancer's sub-tasks with short canned
// text, keyed on a substring of the system prompt.
type fakeGenerator struct{}

func (fakeGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch {
	case strings.Contains(systemPrompt, "keyword"):
		return "ai\npodcasting", nil
	case strings.Contains(systemPrompt, "chapter"):
		return "Intro\nDeep dive", nil
	case strings.Contains(systemPrompt, "summary"):
		return "Two hosts discuss audio pipelines.", nil
	default:
		return "", nil
	}
}

// refusingGenerator fails the test if ever called; used to prove the
// structured-STT path short-circuits the LLM entirely.
type refusingGenerator struct{ t *testing.T }

func (g refusingGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.t.Fatalf("LLM must not be called when structured STT metadata is present (prompt: %s)", systemPrompt)
	return "", nil
}

type testFixture struct {
	store    *fakeStore
	tc       *fakeTranscoder
	episodes *episoderepos.MemoryEpisodeRepository
	tasks    *seedworkrepos.MemoryTaskRepository
	steplog  *infrarepos.MemoryStepLogRepository
	ref      entities.EpisodeRef
	taskID   string
}

// newFixture seeds one episode and one queued task, returning everything a
// scenario needs besides the STT fake and enhancer, which vary per test.
func newFixture(t *testing.T, durationSec float64) *testFixture {
	t.Helper()
	episode := episodeentities.NewEpisode("raw/episode.mp3")
	episodes := episoderepos.NewMemoryEpisodeRepository(episode)
	tasks := seedworkrepos.NewMemoryTaskRepository()
	task := seedworkentities.NewTask("processing", "", nil)
	require.NoError(t, tasks.Create(context.Background(), &task))

	return &testFixture{
		store:    newFakeStore(),
		tc:       &fakeTranscoder{durationSec: durationSec},
		episodes: episodes,
		tasks:    tasks,
		steplog:  infrarepos.NewMemoryStepLogRepository(),
		ref:      entities.EpisodeRef{EpisodeID: episode.GetID(), InputAudioKey: episode.InputAudioKey},
		taskID:   task.GetID(),
	}
}

func newTestDriver(store *fakeStore, tc *fakeTranscoder, sttClient SttClient, enhancer *enhance.Enhancer, episodes *episoderepos.MemoryEpisodeRepository, tasks *seedworkrepos.MemoryTaskRepository, steplog *infrarepos.MemoryStepLogRepository) *Driver {
	cleaner := cleanup.NewCleaner(store)
	reporter := progress.NewReporter(tasks)
	return NewDriver(store, tc, sttClient, enhancer, cleaner, reporter, episodes, steplog, time.Hour, "https://cdn.example.com")
}

func plainChunk(attempt int, req stt.Request) (entities.TranscribedChunk, error) {
	return entities.TranscribedChunk{
		Index:        req.Index,
		StartTimeSec: req.StartTimeSec,
		EndTimeSec:   req.EndTimeSec,
		Text:         fmt.Sprintf("chunk %d spoken text", req.Index),
	}, nil
}

// Scenario 1: happy path, plain (Whisper-like) STT, no enhancer configured.
func TestDriver_HappyPath_PlainSTT(t *testing.T) {
	fx := newFixture(t, 125) // ceil(125/60) = 3 chunks
	sttFake := newFakeSTT(plainChunk)
	driver := newTestDriver(fx.store, fx.tc, sttFake, nil, fx.episodes, fx.tasks, fx.steplog)

	config := entities.DefaultPipelineConfig()
	config.SttModel = "whisper-1"
	config.EncodingFormats = []string{"mp3_128"}

	result, err := driver.Run(context.Background(), "wf-happy-plain", fx.ref, config, fx.taskID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Processing.TotalChunks)
	assert.Equal(t, 1, result.Encoding.Formats)
	assert.Nil(t, result.Enhanced, "no enhancer configured and no structured STT metadata")

	episode, ok := fx.episodes.Get(fx.ref.EpisodeID)
	require.True(t, ok)
	assert.NotEmpty(t, episode.TranscriptURL)
	assert.Contains(t, episode.EncodedAudioURLs, "mp3_128kbps")

	task, err := fx.tasks.FindByID(context.Background(), fx.taskID)
	require.NoError(t, err)
	assert.Equal(t, seedworkentities.TaskDone, task.Status)
}

// Scenario 2: happy path, structured (Nova-3-like) STT. Every chunk carries
// speaker/keyword/summary metadata, so the Enhancer must derive chapters
// from speaker change-points without ever calling the LLM.
func TestDriver_HappyPath_StructuredSTT(t *testing.T) {
	fx := newFixture(t, 700) // UseStructuredSttFeatures forces a 600s chunk duration -> 2 chunks
	sttFake := newFakeSTT(func(attempt int, req stt.Request) (entities.TranscribedChunk, error) {
		speaker := "1"
		if req.Index%2 == 1 {
			speaker = "2"
		}
		return entities.TranscribedChunk{
			Index:        req.Index,
			StartTimeSec: req.StartTimeSec,
			EndTimeSec:   req.EndTimeSec,
			Text:         fmt.Sprintf("chunk %d spoken text", req.Index),
			Metadata: &entities.ChunkMetadata{
				Speakers: []string{speaker},
				Keywords: []string{"audio"},
				Summary:  "structured summary",
			},
		}, nil
	})
	enhancer := enhance.NewEnhancer(refusingGenerator{t: t})
	driver := newTestDriver(fx.store, fx.tc, sttFake, enhancer, fx.episodes, fx.tasks, fx.steplog)

	config := entities.DefaultPipelineConfig()
	config.SttModel = "nova-3"
	config.UseStructuredSttFeatures = true
	config.EncodingFormats = []string{"opus_64"}

	result, err := driver.Run(context.Background(), "wf-happy-structured", fx.ref, config, fx.taskID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Enhanced)
	assert.Greater(t, result.Enhanced.Chapters, 0, "speaker change-points should produce chapter markers")
	assert.True(t, result.Enhanced.HasSummary)
}

// Scenario 3: one chunk is rate-limited once and succeeds on retry; the
// Retry Driver must absorb it within budget rather than fail the run.
func TestDriver_RateLimitAbsorption(t *testing.T) {
	fx := newFixture(t, 120) // 2 chunks
	sttFake := newFakeSTT(func(attempt int, req stt.Request) (entities.TranscribedChunk, error) {
		if req.Index == 0 && attempt == 1 {
			return entities.TranscribedChunk{}, perrors.NewRateLimitedError(time.Second)
		}
		return plainChunk(attempt, req)
	})
	enhancer := enhance.NewEnhancer(fakeGenerator{})
	driver := newTestDriver(fx.store, fx.tc, sttFake, enhancer, fx.episodes, fx.tasks, fx.steplog)

	config := entities.DefaultPipelineConfig()
	config.SttModel = "whisper-1"
	config.EncodingFormats = []string{"mp3_128"}

	result, err := driver.Run(context.Background(), "wf-rate-limit", fx.ref, config, fx.taskID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Processing.TotalChunks, "both chunks should have ultimately succeeded")
}

// Scenario 4: every chunk fails with a terminal (non-retryable) STT error;
// the transcribe step must fail the run with AllChunksFailed rather than
// report a partial success.
func TestDriver_AllChunksFail(t *testing.T) {
	fx := newFixture(t, 120)
	sttFake := newFakeSTT(func(attempt int, req stt.Request) (entities.TranscribedChunk, error) {
		return entities.TranscribedChunk{}, perrors.NewSttDecodeError("unrecognized response shape")
	})
	driver := newTestDriver(fx.store, fx.tc, sttFake, nil, fx.episodes, fx.tasks, fx.steplog)

	config := entities.DefaultPipelineConfig()
	config.SttModel = "whisper-1"
	config.EncodingFormats = []string{"mp3_128"}

	result, err := driver.Run(context.Background(), "wf-all-fail", fx.ref, config, fx.taskID)
	require.Error(t, err)
	assert.Nil(t, result)

	var stepErr *perrors.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "transcribe", stepErr.StepName)

	task, err := fx.tasks.FindByID(context.Background(), fx.taskID)
	require.NoError(t, err)
	assert.Equal(t, seedworkentities.TaskFailed, task.Status)
}

// Scenario 5: the finalize step fails every attempt in one Run call (as if
// the process crashed mid-pipeline), then a second Run call against the
// same step log resumes: every step that already succeeded is replayed from
// the log instead of re-executed, and only the failed step runs again.
func TestDriver_CrashAndResume(t *testing.T) {
	fx := newFixture(t, 120)
	fx.store.plainTextPutFailuresLeft = 3 // exhausts finalize's Policy{Retries: 2} (3 attempts)
	sttFake := newFakeSTT(plainChunk)
	driver := newTestDriver(fx.store, fx.tc, sttFake, nil, fx.episodes, fx.tasks, fx.steplog)

	config := entities.DefaultPipelineConfig()
	config.SttModel = "whisper-1"
	config.EncodingFormats = []string{"mp3_128"}

	_, err := driver.Run(context.Background(), "wf-crash-resume", fx.ref, config, fx.taskID)
	require.Error(t, err, "finalize should fail every attempt the first time around")

	encodeCallsAfterCrash := fx.tc.encodeCalls
	chunkCallsAfterCrash := fx.tc.chunkCalls
	transcribeCallsAfterCrash := 0
	for _, n := range sttFake.attempts {
		transcribeCallsAfterCrash += n
	}

	// "Restart": a fresh Driver bound to the same step log, object store,
	// and collaborators, with the outage resolved. The first run left its
	// task failed, and terminal task states are sticky, so the resumed run
	// reports onto a task of its own.
	fx.store.plainTextPutFailuresLeft = 0
	resumed := newTestDriver(fx.store, fx.tc, sttFake, nil, fx.episodes, fx.tasks, fx.steplog)
	resumeTask := seedworkentities.NewTask("processing", "", nil)
	require.NoError(t, fx.tasks.Create(context.Background(), &resumeTask))

	result, err := resumed.Run(context.Background(), "wf-crash-resume", fx.ref, config, resumeTask.GetID())
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, encodeCallsAfterCrash, fx.tc.encodeCalls, "encode-for-processing and final-encode must not re-run")
	assert.Equal(t, chunkCallsAfterCrash, fx.tc.chunkCalls, "prepare-and-chunk must not re-run")
	transcribeCallsAfterResume := 0
	for _, n := range sttFake.attempts {
		transcribeCallsAfterResume += n
	}
	assert.Equal(t, transcribeCallsAfterCrash, transcribeCallsAfterResume, "transcribe must not re-run")

	task, err := fx.tasks.FindByID(context.Background(), resumeTask.GetID())
	require.NoError(t, err)
	assert.Equal(t, seedworkentities.TaskDone, task.Status)

	crashedTask, err := fx.tasks.FindByID(context.Background(), fx.taskID)
	require.NoError(t, err)
	assert.Equal(t, seedworkentities.TaskFailed, crashedTask.Status)
}

// Scenario 6: one chunk out of three fails every attempt with a terminal
// error; the run must still succeed, merging the transcript from the
// surviving chunks only (not all chunks failed).
func TestDriver_PartialChunkFailure_MergesSurvivingChunks(t *testing.T) {
	fx := newFixture(t, 180) // 3 chunks
	sttFake := newFakeSTT(func(attempt int, req stt.Request) (entities.TranscribedChunk, error) {
		if req.Index == 1 {
			return entities.TranscribedChunk{}, perrors.NewSttDecodeError("unrecognized response shape")
		}
		return plainChunk(attempt, req)
	})
	driver := newTestDriver(fx.store, fx.tc, sttFake, nil, fx.episodes, fx.tasks, fx.steplog)

	config := entities.DefaultPipelineConfig()
	config.SttModel = "whisper-1"
	config.EncodingFormats = []string{"mp3_128"}

	result, err := driver.Run(context.Background(), "wf-partial-fail", fx.ref, config, fx.taskID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Processing.TotalChunks, "the failed chunk must be excluded, not fail the whole run")
	assert.Greater(t, result.Processing.TextLength, 0)

	episode, ok := fx.episodes.Get(fx.ref.EpisodeID)
	require.True(t, ok)
	assert.NotEmpty(t, episode.TranscriptURL)
}
