package httpclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/fnbricks/logger"
)

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	var calls atomic.Int64
	transport := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection reset by peer")
	})

	var mu sync.Mutex
	var transitions []gobreaker.State
	c := NewBuilder(logger.NewNop()).
		WithTransport(transport).
		WithCircuitBreaker(BreakerConfig{
			Name:                "orders",
			ConsecutiveFailures: 2,
			Timeout:             time.Minute,
			OnStateChange: func(_ string, _, to gobreaker.State) {
				mu.Lock()
				transitions = append(transitions, to)
				mu.Unlock()
			},
		}).
		Build()

	for range 2 {
		env := c.Get(context.Background(), &Request{URL: testExampleURL})
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Message, "connection reset by peer")
	}

	env := c.Get(context.Background(), &Request{URL: testExampleURL})
	require.NotNil(t, env.Error)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
	assert.Equal(t, gobreaker.ErrOpenState.Error(), env.Error.Message)
	assert.Equal(t, int64(2), calls.Load())

	assert.Equal(t, gobreaker.StateOpen, c.(*client).guards.breakerState())
	mu.Lock()
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
	mu.Unlock()
}

func TestBreakerIgnoresHTTPFailures(t *testing.T) {
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusInternalServerError, `{}`), nil
	})
	c := NewBuilder(logger.NewNop()).
		WithTransport(transport).
		WithCircuitBreaker(BreakerConfig{ConsecutiveFailures: 1}).
		Build()

	for range 3 {
		env := c.Get(context.Background(), &Request{URL: testExampleURL})
		assert.Equal(t, http.StatusInternalServerError, env.Status)
		assert.Equal(t, "Request failed with status code 500", env.Error.Message)
	}
	assert.Equal(t, gobreaker.StateClosed, c.(*client).guards.breakerState())
}

func TestRateLimitRejectsWithoutWaiting(t *testing.T) {
	var calls atomic.Int64
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(req, http.StatusOK, `{}`), nil
	})
	c := NewBuilder(logger.NewNop()).
		WithTransport(transport).
		WithRetries(3).
		WithRateLimit(0.001, 1).
		Build()

	first := c.Get(context.Background(), &Request{URL: testExampleURL})
	assert.Equal(t, http.StatusOK, first.Status)

	start := time.Now()
	second, stats := c.DoWithStats(context.Background(), MethodGet, &Request{URL: testExampleURL})
	assert.Less(t, time.Since(start), time.Second)

	require.NotNil(t, second.Error)
	assert.Equal(t, ErrRateLimited.Error(), second.Error.Message)
	assert.Equal(t, 1, stats.Attempts)
	assert.Equal(t, int64(1), calls.Load())
}

func TestNewGuards(t *testing.T) {
	assert.Nil(t, newGuards(&Config{}).breaker)
	assert.Nil(t, newGuards(&Config{}).limiter)
	assert.Nil(t, newGuards(&Config{RateLimit: &RateLimitConfig{}}).limiter)

	g := newGuards(&Config{RateLimit: &RateLimitConfig{RequestsPerSecond: 5}})
	require.NotNil(t, g.limiter)
	assert.Equal(t, 5, g.limiter.Burst())

	g = newGuards(&Config{RateLimit: &RateLimitConfig{RequestsPerSecond: 0.5}})
	assert.Equal(t, 1, g.limiter.Burst())

	var nilGuards *guards
	done, err := nilGuards.admit()
	require.NoError(t, err)
	done(nil)
	assert.Equal(t, gobreaker.StateClosed, nilGuards.breakerState())
}
