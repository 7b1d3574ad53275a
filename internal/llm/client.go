package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/worker"
)

// Client bounds calls to a Provider with a retry policy and rate limit.
// Every optional LLM capability goes through one Client.
type Client struct {
	provider Provider
	policy   worker.RetryPolicy
	limiter  *worker.Limiter
	metrics  *metrics.Recorder
}

// NewClient wraps provider. limiter and rec may be nil.
func NewClient(provider Provider, policy worker.RetryPolicy, limiter *worker.Limiter, rec *metrics.Recorder) *Client {
	return &Client{provider: provider, policy: policy, limiter: limiter, metrics: rec}
}

// Name returns the underlying provider name
func (c *Client) Name() string {
	return c.provider.Name()
}

// Complete runs req with retries, failing after the policy is exhausted
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	collaborator := "llm:" + c.provider.Name()

	var resp *CompletionResponse
	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx, collaborator); err != nil {
			return err
		}
		r, err := c.provider.Complete(ctx, req)
		if err != nil {
			c.metrics.Collaborator(collaborator, "error")
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed after %d attempts: %w", c.provider.Name(), attempts, err)
	}

	c.metrics.Collaborator(collaborator, "ok")
	return resp, nil
}
