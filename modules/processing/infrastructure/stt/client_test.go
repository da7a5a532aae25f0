package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
	"github.com/sesamyab/audiopipeline/seedwork/domain"
)

func TestTranscribe_PlainBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "hello world"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	chunk, err := c.Transcribe(context.Background(), Request{AudioURL: "https://x/audio.ogg", Model: "whisper", Index: 2, StartTimeSec: 60, EndTimeSec: 90})
	require.NoError(t, err)
	assert.Equal(t, "hello world", chunk.Text)
	assert.Empty(t, chunk.Words)
	assert.Nil(t, chunk.Metadata)
	assert.Equal(t, 2, chunk.Index)
	assert.Equal(t, 60.0, chunk.StartTimeSec)
}

func TestTranscribe_StructuredBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"results": {
				"channels": [{
					"alternatives": [{
						"transcript": "hello world",
						"detected_language": "en",
						"words": [
							{"word": "hello", "start": 0.0, "end": 0.4},
							{"word": "world", "start": 0.4, "end": 0.9}
						],
						"paragraphs": {
							"paragraphs": [
								{"speaker": 0, "sentences": [{"text": "hello world"}]}
							]
						}
					}]
				}]
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	chunk, err := c.Transcribe(context.Background(), Request{AudioURL: "https://x/audio.ogg", Model: "nova-3"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", chunk.Text)
	require.Len(t, chunk.Words, 2)
	assert.Equal(t, "hello", chunk.Words[0].Word)
	assert.Equal(t, 0.4, chunk.Words[1].Start)
	require.NotNil(t, chunk.Metadata)
	assert.Equal(t, "en", chunk.Metadata.Language)
	assert.Equal(t, []string{"hello world"}, chunk.Metadata.Paragraphs)
	assert.Equal(t, []string{"0"}, chunk.Metadata.Speakers)
}

func TestTranscribe_UnrecognizedShapeIsSttDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Transcribe(context.Background(), Request{AudioURL: "https://x/audio.ogg"})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, perrors.CodeSttDecodeError))
}

func TestTranscribe_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Transcribe(context.Background(), Request{AudioURL: "https://x/audio.ogg"})
	require.Error(t, err)
	var rateLimited *perrors.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 5e9, float64(rateLimited.RetryAfter))
}

func TestTranscribe_ServiceUnavailableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Transcribe(context.Background(), Request{AudioURL: "https://x/audio.ogg"})
	require.Error(t, err)
	var transient *perrors.TransientIOError
	require.ErrorAs(t, err, &transient)
}
