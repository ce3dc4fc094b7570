package api

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

// TokenFunc supplies the current bearer token, or "" when signed out.
// It is called once per request so that a login or logout between calls
// is always observed.
type TokenFunc func() string

// Client is a thin HTTP client for the μ-Wins REST API. It attaches
// Bearer token authentication, handles JSON marshaling, and decodes the
// server's {detail} error body on failure. It performs no retries: a
// failed attempt is surfaced immediately and retry policy belongs to
// the caller.
type Client struct {
	baseURL      string
	token        TokenFunc
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new API client. The baseURL should include the
// version prefix (e.g., https://microwins.example.com/api/v1). The
// token func may return "" to send unauthenticated requests.
func NewClient(baseURL string, token TokenFunc, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		// Streaming responses outlive any sane request timeout;
		// cancellation is the caller's context.
		streamClient: &http.Client{},
	}
}

// Do performs a unary request and unmarshals the JSON response into
// result (which may be nil for endpoints with no interesting body).
func (c *Client) Do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w", method, path, err,
		)
	}

	return nil
}

// OpenStream opens a long-lived POST request and returns the raw byte
// channel once the server has accepted it. A non-success status before
// any streaming begins follows the same error contract as Do. The
// caller owns the returned body and must close it.
func (c *Client) OpenStream(
	ctx context.Context,
	path string,
	body interface{},
) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening stream %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, decodeError(resp.StatusCode, respBody)
	}

	return resp.Body, nil
}

// newRequest builds a request with JSON and auth headers applied.
func (c *Client) newRequest(
	ctx context.Context,
	method string,
	path string,
	body interface{},
) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.baseURL+path, bodyReader,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// decodeError turns a non-success response into a RequestError. A body
// that fails to decode is treated as empty so the status fallback
// message applies.
func decodeError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	return &RequestError{Status: status, Detail: eb.Detail}
}
