package httpclient

import (
	"context"
	"errors"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/gaborage/fnbricks/httpclient/internal/tracking"
	"github.com/gaborage/fnbricks/logger"
)

// errContinue is returned to the retrier when the policy asks for another attempt.
var errContinue = errors.New("retry policy requested another attempt")

// client implements the Client interface
type client struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *Config
	guards     *guards
	callCount  atomic.Int64
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) *Envelope {
	return c.Do(ctx, MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) *Envelope {
	return c.Do(ctx, MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) *Envelope {
	return c.Do(ctx, MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) *Envelope {
	return c.Do(ctx, MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) *Envelope {
	return c.Do(ctx, MethodDelete, req)
}

// Do performs an HTTP request with the specified method
func (c *client) Do(ctx context.Context, method string, req *Request) *Envelope {
	env, _ := c.DoWithStats(ctx, method, req)
	return env
}

// Call runs target with cfg instead of the client retry defaults.
func (c *client) Call(ctx context.Context, target *Target, cfg RetryConfig) *Envelope {
	if target == nil {
		env, _ := c.DoWithStats(ctx, "", nil)
		return env
	}
	env, _ := c.DoWithStats(ctx, target.Method, &Request{
		URL:         target.URL,
		Headers:     target.Headers,
		QueryParams: target.QueryParams,
		Body:        target.Body,
		Retry:       &cfg,
	})
	return env
}

// DoWithStats drives the attempt loop and reports how the call went.
func (c *client) DoWithStats(ctx context.Context, method string, req *Request) (*Envelope, CallStats) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	stats := CallStats{CallCount: c.callCount.Add(1)}

	call, clientErr := c.prepare(method, req)
	if clientErr != nil {
		c.logger.Warn().
			Str("method", method).
			Err(clientErr).
			Msg("REST client request rejected")
		stats.Elapsed = time.Since(start)
		return rejectedEnvelope(clientErr), stats
	}

	ctx = c.withCallTrace(ctx)
	ctx, span := tracking.StartCall(ctx, call.method, call.url.Host)

	env, attempts := c.run(ctx, call, c.retryConfigFor(req), stats.CallCount)

	stats.Attempts = attempts
	stats.Elapsed = time.Since(start)

	var errMessage string
	if env.Error != nil {
		errMessage = env.Error.Message
	}
	tracking.EndCall(span, env.Status, attempts, errMessage)
	return env, stats
}

func (c *client) retryConfigFor(req *Request) RetryConfig {
	if req.Retry != nil {
		return *req.Retry
	}
	return RetryConfig{
		Timeout:          c.config.Timeout,
		MaxRetries:       c.config.MaxRetries,
		RetryStatusCodes: c.config.RetryStatusCodes,
	}
}

// run performs up to cfg.Attempts() back-to-back attempts. Every attempt either
// returns its envelope (Stop) or asks for the next one (Continue); the loop itself
// never decides the result.
func (c *client) run(ctx context.Context, call *preparedCall, cfg RetryConfig, callCount int64) (*Envelope, int) {
	total := cfg.Attempts()
	policy := RetryPolicy{StatusCodes: cfg.RetryStatusCodes}

	var (
		result      *Envelope
		last        *Envelope
		lastSuccess *Envelope
		lastFailure *Envelope
		attempts    int
	)

	err := retry.New(
		retry.Attempts(uint(total)),
		retry.DelayType(func(_ uint, _ error, _ retry.DelayContext) time.Duration { return 0 }),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errContinue) }),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, _ error) {
			c.logRetry(call, attempts+1, total, last)
		}),
	).Do(func() error {
		attempts++
		attemptStart := time.Now()
		outcome := c.invoke(ctx, call, cfg.Timeout, callCount)
		env := outcome.envelope()
		last = env
		if outcome.failure != nil {
			lastFailure = env
		} else {
			lastSuccess = env
		}

		sig := outcome.signal()
		decision := policy.Evaluate(sig, total-attempts)
		c.recordAttempt(ctx, call, attempts, sig.Status, outcome.errorType(), decision, time.Since(attemptStart))

		if decision == Stop {
			result = env
			return nil
		}
		return errContinue
	})

	if result != nil {
		return result, attempts
	}

	c.logger.Warn().
		Str("method", call.method).
		Str("url", call.url.String()).
		Int("attempts", attempts).
		Err(err).
		Msg("REST client retry loop exhausted without a final decision")
	return fallbackEnvelope(lastSuccess, lastFailure), attempts
}

func (c *client) recordAttempt(ctx context.Context, call *preparedCall, number, status int, errorType string, decision Decision, elapsed time.Duration) {
	attempt := &tracking.Attempt{
		Number:    number,
		Method:    call.method,
		Host:      call.url.Host,
		Status:    status,
		ErrorType: errorType,
		Decision:  decision.String(),
		Duration:  elapsed,
	}
	tracking.RecordAttempt(ctx, attempt)
	tracking.AddAttemptEvent(ctx, attempt)
}
