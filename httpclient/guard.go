package httpclient

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ErrRateLimited is reported when the outbound rate limit guard rejects an attempt.
var ErrRateLimited = errors.New("outbound rate limit exceeded")

const (
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

// BreakerConfig configures the circuit breaker guard. Only transport failures
// (network errors and timeouts) count against the breaker; any HTTP response counts
// as a success.
type BreakerConfig struct {
	// Name identifies the breaker in errors and state change callbacks.
	Name string
	// ConsecutiveFailures opens the breaker (default 5).
	ConsecutiveFailures uint32
	// MaxRequests allowed through while half-open (default 1).
	MaxRequests uint32
	// Interval clears the closed-state counts periodically; zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing (default 30s).
	Timeout time.Duration
	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// RateLimitConfig configures the outbound token bucket. The guard never waits:
// an attempt without a token fails immediately.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type guards struct {
	breaker *gobreaker.TwoStepCircuitBreaker[struct{}]
	limiter *rate.Limiter
}

func newGuards(cfg *Config) *guards {
	g := &guards{}
	if cfg.Breaker != nil {
		g.breaker = newBreaker(cfg.Breaker)
	}
	if rl := cfg.RateLimit; rl != nil && rl.RequestsPerSecond > 0 {
		burst := rl.Burst
		if burst <= 0 {
			burst = max(int(rl.RequestsPerSecond), 1)
		}
		g.limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}
	return g
}

func newBreaker(cfg *BreakerConfig) *gobreaker.TwoStepCircuitBreaker[struct{}] {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	name := cfg.Name
	if name == "" {
		name = "httpclient"
	}
	return gobreaker.NewTwoStepCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: cfg.OnStateChange,
	})
}

// admit asks every guard for permission to start an attempt. The returned function
// must be called with the transport error of the attempt (nil when the server answered).
func (g *guards) admit() (func(transportErr error), error) {
	if g == nil {
		return func(error) {}, nil
	}
	if g.limiter != nil && !g.limiter.Allow() {
		return nil, ErrRateLimited
	}
	if g.breaker != nil {
		done, err := g.breaker.Allow()
		if err != nil {
			return nil, err
		}
		return done, nil
	}
	return func(error) {}, nil
}

// breakerState reports the breaker state, StateClosed when no breaker is configured.
func (g *guards) breakerState() gobreaker.State {
	if g == nil || g.breaker == nil {
		return gobreaker.StateClosed
	}
	return g.breaker.State()
}
