// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Errors surfaced by the RPC clients.
var (
	// ErrUpstreamUnreachable means transport failure, timeout or a 5xx
	// that survived the bounded retries. Distinct from "no data" so
	// callers can decide to abort instead of skip.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrNotFound maps a 404 from an external store.
	ErrNotFound = errors.New("upstream resource not found")
)

// StoreError identifies which external store call failed and at which
// batch position, so a caller can re-drive materialization from the
// rolled-back state.
type StoreError struct {
	Store      string
	BatchIndex int
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: batch %d: %v", e.Store, e.BatchIndex, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Config describes one external service endpoint. Every client is
// constructed from an explicit config; nothing reads environment
// strings ad hoc.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

// baseClient implements JSON-over-HTTP calls with a bounded
// retry-with-backoff policy: transport errors and 5xx responses are
// retried, 4xx responses never are.
type baseClient struct {
	http    *http.Client
	baseURL string
	retries int
}

func newBaseClient(cfg Config) baseClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return baseClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		retries: cfg.Retries,
	}
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// postJSON posts in as JSON and decodes the response into out (out may
// be nil). Extra headers, e.g. an Idempotency-Key, ride along on every
// attempt so a retried create cannot duplicate server-side.
func (c *baseClient) postJSON(ctx context.Context, path string, in, out any, headers map[string]string) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, ctx.Err())
			case <-time.After(backoff):
			}
		}
		lastErr = c.doOnce(ctx, path, payload, out, headers)
		if lastErr == nil {
			return nil
		}
		var statusErr *httpStatusError
		if errors.As(lastErr, &statusErr) && statusErr.status < http.StatusInternalServerError {
			// Client-side rejection, retrying cannot help.
			if statusErr.status == http.StatusNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, lastErr)
}

func (c *baseClient) doOnce(ctx context.Context, path string, payload []byte, out any, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return &httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
