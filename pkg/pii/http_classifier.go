package pii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPClassifier implements Classifier against any entity-recognition
// service reachable over net/http, modeling the original's AWS Macie
// integration as a synchronous call shape: a single request carrying
// the text slice, a single JSON response carrying the findings.
type HTTPClassifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClassifier builds a classifier against baseURL. apiKey, when
// non-empty, is sent as a bearer token.
func NewHTTPClassifier(baseURL, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithClient overrides the HTTP client, for tests.
func (c *HTTPClassifier) WithClient(client *http.Client) *HTTPClassifier {
	c.client = client
	return c
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Findings []ClassifierFinding `json:"findings"`
}

// Detect sends text to the classifier's /classify endpoint and returns
// the findings it reports. The caller bounds ctx with a timeout; Detect
// does not retry.
func (c *HTTPClassifier) Detect(ctx context.Context, text string) ([]ClassifierFinding, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("pii http classifier: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("pii http classifier: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pii http classifier: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pii http classifier: status %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("pii http classifier: decoding response: %w", err)
	}
	return out.Findings, nil
}
