// Package transcoder is the C3 Transcoder Client: a typed wrapper around an
// external FFmpeg worker's /encode and /chunk endpoints, grounded on the
// request/response shape assemblyai_provider.go used for its own external
// HTTP calls, but for a plain JSON HTTP service rather than an SDK.
package transcoder

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

	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
)

// Client is a typed HTTP client for the transcoder service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a transcoder Client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EncodeRequest is the body of POST /encode.
type EncodeRequest struct {
	AudioURL   string `json:"audioUrl"`
	UploadURL  string `json:"uploadUrl"`
	OutputFormat string `json:"outputFormat"`
	Bitrate    int    `json:"bitrate"`
	Channels   int    `json:"channels,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// EncodeResult is the normalized, successful result of an /encode call.
type EncodeResult struct {
	DurationSec float64
	SizeBytes   int64
}

type encodeResponse struct {
	Success  bool   `json:"success"`
	Metadata *struct {
		Duration float64 `json:"duration"`
		Size     int64   `json:"size"`
	} `json:"metadata"`
	Error string `json:"error"`
}

// Encode invokes POST /encode. The caller is expected to wrap this call in
// the Retry Driver (C5); Encode itself performs exactly one HTTP attempt and
// returns a classifiable error.
func (c *Client) Encode(ctx context.Context, req EncodeRequest) (EncodeResult, error) {
	var resp encodeResponse
	if err := c.postJSON(ctx, "/encode", req, &resp); err != nil {
		return EncodeResult{}, err
	}
	if !resp.Success {
		return EncodeResult{}, perrors.NewEncodingError(resp.Error)
	}
	if resp.Metadata == nil {
		return EncodeResult{}, perrors.NewEncodingError("encode succeeded but metadata is missing")
	}
	return EncodeResult{DurationSec: resp.Metadata.Duration, SizeBytes: resp.Metadata.Size}, nil
}

// ChunkUpload is one destination chunk upload slot for POST /chunk.
type ChunkUpload struct {
	Index     int    `json:"index"`
	R2Key     string `json:"r2Key"`
	UploadURL string `json:"uploadUrl"`
}

// ChunkRequest is the body of POST /chunk.
type ChunkRequest struct {
	AudioURL         string        `json:"audioUrl"`
	ChunkUploadURLs  []ChunkUpload `json:"chunkUploadUrls"`
	ChunkDuration    int           `json:"chunkDuration"`
	OverlapDuration  int           `json:"overlapDuration"`
	Duration         float64       `json:"duration"`
	OutputFormat     string        `json:"outputFormat,omitempty"`
	Bitrate          int           `json:"bitrate,omitempty"`
}

// ChunkResultEntry is one produced chunk, as reported back by the transcoder.
type ChunkResultEntry struct {
	Index int
	Key   string
}

type chunkResponse struct {
	Success bool `json:"success"`
	Chunks  []struct {
		Index int    `json:"index"`
		R2Key string `json:"r2Key"`
	} `json:"chunks"`
	Error string `json:"error"`
}

// Chunk invokes POST /chunk, splitting one file into N uploaded pieces.
func (c *Client) Chunk(ctx context.Context, req ChunkRequest) ([]ChunkResultEntry, error) {
	var resp chunkResponse
	if err := c.postJSON(ctx, "/chunk", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, perrors.NewEncodingError(resp.Error)
	}
	out := make([]ChunkResultEntry, len(resp.Chunks))
	for i, c := range resp.Chunks {
		out[i] = ChunkResultEntry{Index: c.Index, Key: c.R2Key}
	}
	return out, nil
}

// postJSON performs one HTTP attempt and classifies the response per §4.3's
// table, returning a perrors-typed error the caller's Retry Driver
// classifier can branch on.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		return perrors.NewTransientIOError(fmt.Errorf("transcoder %s returned %d", path, resp.StatusCode))
	case resp.StatusCode >= 400:
		return fmt.Errorf("transcoder %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode transcoder response: %w", err)
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
