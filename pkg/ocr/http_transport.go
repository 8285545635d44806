package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/metrics"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

// HTTPTransport implements Transport against any Textract-shaped async
// OCR service reachable over net/http: a start endpoint that accepts a
// source pointer and returns a job ID, a status endpoint polled until
// the job leaves the pending state, and a paginated results endpoint.
//
// Circuit breaking is the Adapter's concern and retries are the
// executor's (the Adapter marks transport errors transient) —
// HTTPTransport only attaches the optional bearer token and translates
// Go calls into the wire shape the service expects.
type HTTPTransport struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPTransport builds a transport against baseURL (no trailing
// slash expected, but tolerated). apiKey, when non-empty, is sent as a
// bearer token on every request.
func NewHTTPTransport(baseURL, apiKey string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithClient overrides the HTTP client, for tests that need a short
// timeout or a custom transport.
func (h *HTTPTransport) WithClient(client *http.Client) *HTTPTransport {
	h.client = client
	return h
}

type startRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type startResponse struct {
	JobID string `json:"job_id"`
}

// Start submits source to the service's start endpoint and returns the
// job ID it assigns.
func (h *HTTPTransport) Start(ctx context.Context, source types.SourceRef) (string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.OCRCallDuration)

	body, err := json.Marshal(startRequest{Bucket: source.Bucket, Key: source.Key})
	if err != nil {
		return "", fmt.Errorf("ocr http transport: marshaling start request: %w", err)
	}

	var resp startResponse
	if err := h.doJSON(ctx, http.MethodPost, "/jobs", body, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("ocr http transport: start response carried no job_id")
	}
	return resp.JobID, nil
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Poll fetches the job's current status from the service.
func (h *HTTPTransport) Poll(ctx context.Context, providerHandle string) (JobStatus, string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.OCRCallDuration)

	var resp statusResponse
	path := fmt.Sprintf("/jobs/%s", providerHandle)
	if err := h.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return StatusPending, "", err
	}

	switch strings.ToUpper(resp.Status) {
	case "SUCCEEDED", "SUCCESS", "COMPLETE", "COMPLETED":
		return StatusSucceeded, "", nil
	case "FAILED", "ERROR":
		return StatusFailed, resp.Reason, nil
	default:
		return StatusPending, "", nil
	}
}

type fetchResponse struct {
	Blocks    []Block `json:"blocks"`
	NextToken string  `json:"next_token,omitempty"`
}

// FetchPage fetches one page of result blocks and returns the
// continuation token the service reports (empty when absent); the
// Adapter loops over pages.
func (h *HTTPTransport) FetchPage(ctx context.Context, providerHandle, continuationToken string) ([]Block, string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.OCRCallDuration)

	path := fmt.Sprintf("/jobs/%s/results", providerHandle)
	if continuationToken != "" {
		path += "?next_token=" + continuationToken
	}

	var resp fetchResponse
	if err := h.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Blocks, resp.NextToken, nil
}

// doJSON issues an HTTP request against baseURL+path, optionally
// marshaling body as the request payload, and unmarshals a JSON
// response into out.
func (h *HTTPTransport) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ocr http transport: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("ocr http transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ocr http transport: %s %s returned status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ocr http transport: decoding response: %w", err)
	}
	return nil
}
