package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

// Client is a shared JSON HTTP client with bounded retries and exponential
// backoff. One instance is reused across all aggregator calls.
type Client struct {
	httpClient *http.Client
	retries    int
	userAgent  string
}

func New(timeout time.Duration, retries int) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		userAgent:  "scout-api/1.0",
	}
}

// DoJSON executes the request, retrying transient failures, and decodes the
// response body into out when out is non-nil.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, scouterr.Wrap(scouterr.KindUnavailable, "request cancelled", ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}

		cloneReq := req.Clone(ctx)
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, scouterr.Wrap(scouterr.KindInternal, "clone request body", err)
			}
			cloneReq.Body = body
		}

		resp, err := c.httpClient.Do(cloneReq)
		if err != nil {
			lastErr = mapNetError(err)
			if attempt < c.retries {
				continue
			}
			return nil, lastErr
		}

		buf, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return resp.Header, scouterr.Wrap(scouterr.KindUnavailable, "read aggregator response", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = scouterr.New(scouterr.KindUnavailable, fmt.Sprintf("aggregator unavailable (status %d)", resp.StatusCode))
			if attempt < c.retries {
				continue
			}
			return resp.Header, lastErr
		}

		if resp.StatusCode == http.StatusNotFound {
			return resp.Header, scouterr.New(scouterr.KindNotFound, "aggregator resource not found")
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.Header, scouterr.New(scouterr.KindInvalidInput, fmt.Sprintf("aggregator rejected request (status %d)", resp.StatusCode))
		}

		if out == nil {
			return resp.Header, nil
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			return resp.Header, scouterr.New(scouterr.KindUnavailable, "aggregator returned empty response")
		}
		if err := json.Unmarshal(buf, out); err != nil {
			return resp.Header, scouterr.Wrap(scouterr.KindUnavailable, "decode aggregator JSON", err)
		}
		return resp.Header, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, scouterr.New(scouterr.KindUnavailable, "request failed")
}

// DoBodyJSON is a convenience wrapper for body-carrying requests.
func DoBodyJSON(ctx context.Context, c *Client, method, url string, body []byte, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	return c.DoJSON(ctx, req, out)
}

func mapNetError(err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return scouterr.Wrap(scouterr.KindUnavailable, "aggregator timeout", err)
	}
	return scouterr.Wrap(scouterr.KindUnavailable, "aggregator request failed", err)
}

func backoff(attempt int) time.Duration {
	base := 120 * time.Millisecond
	d := base * time.Duration(1<<uint(attempt-1))
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	jitter := time.Duration(rand.Intn(75)) * time.Millisecond
	return d + jitter
}
