package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/metrics"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 2 * time.Second
)

// RawResponse is the decoded body of an agent answer: a list, a string or an object
type RawResponse struct {
	StatusCode int
	Data       interface{}
}

// Transport performs exactly one outbound call to the agent
type Transport interface {
	Send(ctx context.Context, prompt string) (*RawResponse, error)
}

// Options configures a Client
type Options struct {
	Name       string
	MaxRetries int
	BaseDelay  time.Duration

	// Simplify, when set, rewrites the prompt for every attempt after the first
	Simplify func(prompt string) string

	Metrics *metrics.Collector
}

// Client wraps a Transport with bounded retries and exponential backoff
type Client struct {
	name       string
	transport  Transport
	maxRetries int
	baseDelay  time.Duration
	simplify   func(string) string
	metrics    *metrics.Collector

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(transport Transport, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Name == "" {
		opts.Name = "agent"
	}

	return &Client{
		name:       opts.Name,
		transport:  transport,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		simplify:   opts.Simplify,
		metrics:    opts.Metrics,
		sleep:      sleepContext,
	}
}

// Name returns the agent name used in logs and metrics
func (c *Client) Name() string {
	return c.name
}

// Backoff returns the wait after the failed attempt with the given 0-based index
func (c *Client) Backoff(attempt int) time.Duration {
	return c.baseDelay * time.Duration(1<<uint(attempt))
}

// CallAgent sends prompt to the agent, making up to maxRetries attempts in total.
// maxRetries <= 0 uses the client's configured value.
func (c *Client) CallAgent(ctx context.Context, prompt string, maxRetries int) (*RawResponse, error) {
	if maxRetries <= 0 {
		maxRetries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		text := prompt
		promptKind := "full"
		if attempt > 0 && c.simplify != nil {
			text = c.simplify(prompt)
			promptKind = "simplified"
		}

		logger.Debug("Calling agent", map[string]interface{}{
			"agent":   c.name,
			"attempt": fmt.Sprintf("%d/%d", attempt+1, maxRetries),
			"prompt":  promptKind,
		})

		start := time.Now()
		resp, err := c.transport.Send(ctx, text)
		if err == nil {
			c.metrics.RecordAgentAttempt(c.name, "success", time.Since(start))
			return resp, nil
		}
		c.metrics.RecordAgentAttempt(c.name, "error", time.Since(start))
		lastErr = err

		logger.Warn("Agent attempt failed", map[string]interface{}{
			"agent":   c.name,
			"attempt": attempt + 1,
			"error":   err.Error(),
		})

		if attempt == maxRetries-1 {
			break
		}

		delay := c.Backoff(attempt)
		logger.Info("Retrying agent call", map[string]interface{}{
			"agent":    c.name,
			"retry_in": delay.String(),
		})
		if err := c.sleep(ctx, delay); err != nil {
			return nil, &RequestError{Agent: c.name, Attempts: attempt + 1, Err: fmt.Errorf("retry aborted: %w", err)}
		}
	}

	return nil, &RequestError{Agent: c.name, Attempts: maxRetries, Err: lastErr}
}

// Ask calls the agent with the configured retry budget and normalizes the answer to text
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := c.CallAgent(ctx, prompt, c.maxRetries)
	if err != nil {
		return "", err
	}
	return Normalize(resp.Data)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
