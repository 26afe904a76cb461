// Package collector implements the metrics collector HTTP service
// (spec.md §4.B) and the client used by the agent runtime to push
// metric envelopes to it.
//
// Grounded on the teacher's pkg/api/handlers.go (Server struct,
// ShouldBindJSON, gin.H responses) and cmd/tarsy/main.go (router
// construction). The client side uses the retry.Do helper, per
// SPEC_FULL.md's ambient error-handling section.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/codeready-toolchain/acem/internal/platform/retry"
	"github.com/codeready-toolchain/acem/internal/runtime"
)

// Client pushes metric envelopes to a remote collector over HTTP. It
// implements runtime.Publisher.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a collector client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type ingestRequest struct {
	AgentName  string         `json:"agent_name"`
	Metrics    map[string]any `json:"metrics"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Error      *string        `json:"error"`
}

// Publish sends env to POST /metrics, making up to 3 attempts in total
// with exponential backoff on transient failures (spec.md §5).
func (c *Client) Publish(ctx context.Context, env runtime.Envelope) error {
	req := ingestRequest{
		AgentName:  env.AgentName,
		Metrics:    env.Metrics,
		StartedAt:  env.StartedAt,
		FinishedAt: env.FinishedAt,
	}
	if env.Error != "" {
		req.Error = &env.Error
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("collector client: marshal: %w", err)
	}

	return retry.Do(ctx, 3, 500*time.Millisecond, isTransientHTTPError, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/metrics", bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("collector: server error %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return &nonTransientError{fmt.Errorf("collector: client error %d", resp.StatusCode)}
		}
		return nil
	})
}

// nonTransientError marks an error as not worth retrying (e.g. a 4xx
// validation rejection), so isTransientHTTPError can distinguish it
// from a genuinely transient network/5xx failure.
type nonTransientError struct{ err error }

func (e *nonTransientError) Error() string { return e.err.Error() }
func (e *nonTransientError) Unwrap() error { return e.err }

func isTransientHTTPError(err error) bool {
	if err == nil {
		return false
	}
	var nt *nonTransientError
	return !errors.As(err, &nt)
}
