// Package tts resolves dialogue requests into concrete synthesis jobs and
// executes them against the external speech-synthesis engine.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/dialogue-tts/internal/core"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Error messages.
const (
	errUnexpectedContentType   = "unexpected content type: expected audio/wav, got %s"
	errFmtServiceErrorWithCode = "engine error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "engine returned non-OK status: %s, body: %s"
)

// ErrEmptyAudio is returned when the engine responds with zero audio bytes.
var ErrEmptyAudio = errors.New("received empty audio data")

// Client talks to the standalone speech-synthesis engine over HTTP. The
// engine consumes text, a reference voice path and the two emotion knobs, and
// answers with raw WAV data.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// engineRequest is the JSON payload the engine expects.
type engineRequest struct {
	Text           string  `json:"text"`
	SpeakerRefPath string  `json:"speaker_ref_path,omitempty"`
	Exaggeration   float64 `json:"exaggeration"`
	CFGWeight      float64 `json:"cfg_weight"`
}

// engineErrorResponse is the structured error body the engine returns on
// failure, providing actionable diagnostics.
type engineErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewClient creates a client for the engine at baseURL (protocol and port
// included, e.g. "http://localhost:8000"). The timeout applies to every
// request; there is deliberately no retry policy.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends one generation request and returns the raw WAV bytes.
// Callers are responsible for writing the data to disk.
func (c *Client) Synthesize(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	requestBody, err := json.Marshal(engineRequest{
		Text:           req.Text,
		SpeakerRefPath: req.SpeakerRefPath,
		Exaggeration:   req.Exaggeration,
		CFGWeight:      req.CFG,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine request: %w", err)
	}

	url := c.baseURL + apiGenerateSpeech

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to engine at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(errUnexpectedContentType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies the engine is up. Run it at startup to fail fast with
// clear diagnostics instead of failing the first request.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for engine at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// engine, falling back to the raw body so diagnostics are never lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp engineErrorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
}
