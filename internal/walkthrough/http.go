package walkthrough

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/skillcheck/internal/domain/types"
)

const requestIDHeader = "X-Request-ID"

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Path   string
	Status int
	Body   types.ErrorResponse
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: status %d: %s %s", e.Path, e.Status, e.Body.Code, e.Body.Message)
	if e.Body.Details != "" {
		msg += " (" + e.Body.Details + ")"
	}
	return msg
}

// getJSON performs a GET request and decodes the JSON answer into out.
func (c *HTTPClient) getJSON(ctx context.Context, sessionID, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, sessionID, path, out)
}

// postJSON performs a POST request with a JSON body and decodes the answer.
func (c *HTTPClient) postJSON(ctx context.Context, sessionID, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, sessionID, path, out)
}

func (c *HTTPClient) do(req *http.Request, sessionID, path string, out any) error {
	req.Header.Set(requestIDHeader, sessionID+"/"+uuid.NewString()[:8])
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read body: %w", path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		se := &StatusError{Path: path, Status: resp.StatusCode}
		_ = json.Unmarshal(data, &se.Body)
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to decode body: %w", path, err)
	}
	return nil
}
