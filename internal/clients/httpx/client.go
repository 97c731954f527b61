// Package httpx is the shared outbound HTTP plumbing for third-party APIs:
// a timeout-bound client behind a token-bucket limiter.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	userAgent    = "caku-bot/1.0"
	maxBodyBytes = 25 << 20
)

// ErrBodyTooLarge is returned instead of a truncated body.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// New builds a client allowing rps requests per second. rps <= 0 disables
// limiting.
func New(timeout time.Duration, rps float64) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps) + 1
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return c.http.Do(req)
}

// JSON sends body (if any) as JSON and decodes a 2xx response into out.
func (c *Client) JSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	raw, err := c.read(req, maxBodyBytes)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Bytes performs a GET and returns the raw 2xx body.
func (c *Client) Bytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.get(ctx, url, headers, maxBodyBytes)
}

// Download is Bytes with a caller-chosen size cap. limit <= 0 uses the
// default cap.
func (c *Client) Download(ctx context.Context, url string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = maxBodyBytes
	}
	return c.get(ctx, url, nil, limit)
}

func (c *Client) get(ctx context.Context, url string, headers map[string]string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.read(req, limit)
}

func (c *Client) read(req *http.Request, limit int64) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrBodyTooLarge, resp.ContentLength, limit)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !ok {
		snippet := raw
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return raw, nil
}
