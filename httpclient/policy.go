package httpclient

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// StatusMatcher selects response statuses that should trigger another attempt.
// The set of implementations is closed: ExactCode and Pattern.
type StatusMatcher interface {
	Match(status string) bool
	String() string
	statusMatcher()
}

// ExactCode matches a status code by string equality, e.g. ExactCode("503").
type ExactCode string

// Exact returns the ExactCode for code.
func Exact(code int) ExactCode {
	return ExactCode(strconv.Itoa(code))
}

func (c ExactCode) Match(status string) bool { return string(c) == status }

func (c ExactCode) String() string { return string(c) }

func (ExactCode) statusMatcher() {}

// Pattern matches a status code with a regular expression, e.g. `^5\d\d$`.
// The expression is not implicitly anchored.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern compiles expr into a Pattern.
func NewPattern(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid status pattern %q: %w", expr, err)
	}
	return Pattern{re: re}, nil
}

// MustPattern is like NewPattern but panics on an invalid expression.
func MustPattern(expr string) Pattern {
	p, err := NewPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) Match(status string) bool {
	return p.re != nil && p.re.MatchString(status)
}

func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

func (Pattern) statusMatcher() {}

// ParseStatusMatchers builds matchers from exact codes followed by patterns.
func ParseStatusMatchers(codes, patterns []string) ([]StatusMatcher, error) {
	matchers := make([]StatusMatcher, 0, len(codes)+len(patterns))
	for _, code := range codes {
		if _, err := strconv.Atoi(code); err != nil {
			return nil, fmt.Errorf("invalid status code %q", code)
		}
		matchers = append(matchers, ExactCode(code))
	}
	for _, expr := range patterns {
		p, err := NewPattern(expr)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, p)
	}
	return matchers, nil
}

// RetryConfig controls the attempt loop of one call.
type RetryConfig struct {
	// Timeout bounds each attempt. Zero disables the deadline.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts. Negative values mean none.
	MaxRetries int
	// RetryStatusCodes lists the statuses that trigger another attempt.
	RetryStatusCodes []StatusMatcher
}

// Attempts returns the total number of attempts, always at least one.
func (c RetryConfig) Attempts() int {
	return max(c.MaxRetries, 0) + 1
}

// Decision is the verdict of the retry policy for one attempt.
type Decision int

const (
	Stop Decision = iota
	Continue
)

func (d Decision) String() string {
	if d == Continue {
		return "continue"
	}
	return "stop"
}

// AttemptSignal is what the retry policy observes about one attempt.
type AttemptSignal struct {
	// TimedOut is set when the attempt hit its deadline.
	TimedOut bool
	// Status is the remote status, 0 when the server never answered.
	Status int
}

// RetryPolicy decides whether a call makes another attempt.
type RetryPolicy struct {
	StatusCodes []StatusMatcher
}

// Evaluate applies the rules in order: a timeout continues while budget remains, a
// remote status matching any StatusCodes entry continues while budget remains,
// everything else stops.
func (p RetryPolicy) Evaluate(sig AttemptSignal, remaining int) Decision {
	if remaining <= 0 {
		return Stop
	}
	if sig.TimedOut {
		return Continue
	}
	if sig.Status != 0 && p.matchesStatus(sig.Status) {
		return Continue
	}
	return Stop
}

func (p RetryPolicy) matchesStatus(status int) bool {
	code := strconv.Itoa(status)
	for _, m := range p.StatusCodes {
		if m != nil && m.Match(code) {
			return true
		}
	}
	return false
}
