package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const submitPath = "/submit_result"

// Response is the submission endpoint's reply.
type Response struct {
	Success  bool   `json:"success"`
	Redirect string `json:"redirect,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Client posts payloads to the submission endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the service at baseURL. A nil httpClient
// uses one with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Submit validates and posts the payload. A reply with success=false is
// returned without an error; transport and decoding failures are errors.
func (c *Client) Submit(ctx context.Context, p Payload) (Response, error) {
	if err := p.Validate(); err != nil {
		return Response{}, err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to submit result: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			_ = cerr
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return Response{}, fmt.Errorf("submission rejected: %s", resp.Status)
		}
		return Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest && out.Error == "" {
		out.Success = false
		out.Error = resp.Status
	}
	return out, nil
}
