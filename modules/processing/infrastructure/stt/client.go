// Package stt is the C4 STT Client: a typed wrapper around the speech-to-text
// engine that normalizes two distinct response shapes — a plain Whisper-like
// `{text}` body and a structured Nova-3-like nested
// `results.channels[0].alternatives[0]` body — into one
// entities.TranscribedChunk, the way assemblyai_provider.go normalizes
// AssemblyAI's own nested transcript JSON into a single AudioProcessingResult.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
)

// Client is a typed HTTP client for the STT engine.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an STT Client against baseURL, authenticating with
// apiKey via a bearer token.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Request is one chunk submitted for transcription. Index/StartTimeSec/
// EndTimeSec describe the chunk's place in the source audio and are carried
// through untouched into the returned TranscribedChunk; the STT engine itself
// only ever sees AudioURL.
type Request struct {
	AudioURL     string
	Model        string
	Language     string
	Keywords     []string
	Index        int
	StartTimeSec float64
	EndTimeSec   float64
}

type requestBody struct {
	AudioURL string   `json:"audioUrl"`
	Model    string   `json:"model"`
	Language string   `json:"language,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// responseEnvelope is unmarshaled once; exactly one of Text or Results is
// populated depending on which backend answered.
type responseEnvelope struct {
	Text    *string          `json:"text"`
	Results *structuredShape `json:"results"`
	Error   string           `json:"error"`
}

type structuredShape struct {
	Channels []struct {
		Alternatives []structuredAlternative `json:"alternatives"`
	} `json:"channels"`
}

type structuredAlternative struct {
	Transcript       string `json:"transcript"`
	DetectedLanguage string `json:"detected_language"`
	Words            []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Paragraphs *struct {
		Paragraphs []struct {
			Speaker   int `json:"speaker"`
			Sentences []struct {
				Text string `json:"text"`
			} `json:"sentences"`
		} `json:"paragraphs"`
	} `json:"paragraphs"`
}

// Transcribe submits one chunk and normalizes whichever shape the backend
// returns. The caller is expected to wrap this in the Retry Driver (C5);
// Transcribe itself performs exactly one HTTP attempt.
func (c *Client) Transcribe(ctx context.Context, req Request) (entities.TranscribedChunk, error) {
	var env responseEnvelope
	if err := c.postJSON(ctx, requestBody{
		AudioURL: req.AudioURL,
		Model:    req.Model,
		Language: req.Language,
		Keywords: req.Keywords,
	}, &env); err != nil {
		return entities.TranscribedChunk{}, err
	}

	chunk := entities.TranscribedChunk{
		Index:        req.Index,
		StartTimeSec: req.StartTimeSec,
		EndTimeSec:   req.EndTimeSec,
	}

	switch {
	case env.Results != nil && len(env.Results.Channels) > 0 && len(env.Results.Channels[0].Alternatives) > 0:
		normalizeStructured(&chunk, env.Results.Channels[0].Alternatives[0])
	case env.Text != nil:
		chunk.Text = *env.Text
	default:
		return entities.TranscribedChunk{}, perrors.NewSttDecodeError(fmt.Sprintf("unrecognized STT response shape for chunk %d", req.Index))
	}

	return chunk, nil
}

func normalizeStructured(chunk *entities.TranscribedChunk, alt structuredAlternative) {
	chunk.Text = alt.Transcript

	words := make([]entities.Word, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, entities.Word{Word: w.Word, Start: w.Start, End: w.End})
	}
	chunk.Words = words

	meta := &entities.ChunkMetadata{Language: alt.DetectedLanguage}
	if alt.Paragraphs != nil {
		speakerSeen := make(map[string]bool)
		for _, p := range alt.Paragraphs.Paragraphs {
			var sb strings.Builder
			for i, s := range p.Sentences {
				if i > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(s.Text)
			}
			if sb.Len() > 0 {
				meta.Paragraphs = append(meta.Paragraphs, sb.String())
			}
			speaker := strconv.Itoa(p.Speaker)
			if !speakerSeen[speaker] {
				speakerSeen[speaker] = true
				meta.Speakers = append(meta.Speakers, speaker)
			}
		}
	}
	chunk.Metadata = meta
}

// postJSON performs one HTTP attempt and classifies the response the same
// way the Transcoder Client does: 429 -> RateLimitedError, 503/disconnect
// marker -> TransientIOError, other 4xx/5xx -> plain non-retryable error.
func (c *Client) postJSON(ctx context.Context, body requestBody, out *responseEnvelope) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal STT request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build STT request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return perrors.NewTransientIOError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return perrors.NewTransientIOError(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return perrors.NewRateLimitedError(retryAfter(resp, respBody))
	case resp.StatusCode == http.StatusServiceUnavailable || containsDisconnectMarker(respBody):
		return perrors.NewTransientIOError(fmt.Errorf("STT engine returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("STT engine returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return perrors.NewSttDecodeError(fmt.Sprintf("malformed STT response: %v", err))
	}
	if out.Error != "" {
		return perrors.NewSttDecodeError(out.Error)
	}
	return nil
}

func retryAfter(resp *http.Response, body []byte) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	var parsed struct {
		RetryAfter int `json:"retryAfter"`
	}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &parsed)
	}
	if parsed.RetryAfter > 0 {
		return time.Duration(parsed.RetryAfter) * time.Second
	}
	return 10 * time.Second
}

func containsDisconnectMarker(body []byte) bool {
	s := string(body)
	return strings.Contains(s, "Container suddenly disconnected") || strings.Contains(s, "Container not available")
}
