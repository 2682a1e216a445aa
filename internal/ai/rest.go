package ai

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

const (
	restTimeout     = 120 * time.Second
	restMaxAttempts = 5
	restBackoffBase = 2 * time.Second
)

// restClient issues provider REST calls with bounded retry on rate
// limiting. Only 429 is retried; any other status (5xx included)
// returns immediately for the caller to classify as a hard failure.
// Backoff grows linearly: attempt index times the base delay.
type restClient struct {
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration
}

func newRESTClient() *restClient {
	return &restClient{
		client:      &http.Client{Timeout: restTimeout},
		maxAttempts: restMaxAttempts,
		backoffBase: restBackoffBase,
	}
}

type rawResponse struct {
	StatusCode int
	Body       []byte
}

func (c *restClient) send(ctx context.Context, endpoint string, headers map[string]string, body []byte) (*rawResponse, error) {
	var last *rawResponse
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		last = &rawResponse{StatusCode: resp.StatusCode, Body: data}
		if resp.StatusCode != http.StatusTooManyRequests {
			return last, nil
		}
		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-time.After(time.Duration(attempt) * c.backoffBase):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return last, nil
}
