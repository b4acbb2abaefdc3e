// Package transcription relays recordings to a Gladia-compatible
// speech-to-text service: one call to open a job, one to poll its result.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// language is fixed for every submitted job.
const language = "en"

// Job is the provider's handle for a submitted transcription.
type Job struct {
	ID        string `json:"id"`
	ResultURL string `json:"result_url"`
}

// ProviderError carries the provider's own failure message so handlers can
// surface it to the caller.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider returned %d", e.StatusCode)
}

// Client talks to the transcription provider's HTTP API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a provider client. baseURL has no trailing slash.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type submitRequest struct {
	AudioURL string `json:"audio_url"`
	Language string `json:"language"`
}

// Submit opens a transcription job for a publicly reachable audio URL and
// returns the provider's job handle.
func (c *Client) Submit(ctx context.Context, audioURL string) (*Job, error) {
	body, err := json.Marshal(submitRequest{AudioURL: audioURL, Language: language})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/pre-recorded", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-gladia-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit transcription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readProviderError(resp)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	return &job, nil
}

// FetchResult polls a job's result URL and returns the payload verbatim.
// Any successful response is treated as final; the caller overwrites
// whatever it stored before.
func (c *Client) FetchResult(ctx context.Context, resultURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-gladia-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcription result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readProviderError(resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result body: %w", err)
	}
	return payload, nil
}

func readProviderError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var parsed struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &parsed)
	return &ProviderError{StatusCode: resp.StatusCode, Message: parsed.Message}
}
