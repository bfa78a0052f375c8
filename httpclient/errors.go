package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ClientError is the failure taxonomy of a single attempt.
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	// NetworkError: no response was received (DNS, refused, reset, cancelled). Terminal.
	NetworkError ErrorType = "network"
	// TimeoutError: the per-attempt deadline fired. Retryable while budget remains.
	TimeoutError ErrorType = "timeout"
	// HTTPError: the server answered with a non-2xx status.
	HTTPError ErrorType = "http"
	// ValidationError: the request was rejected before any network attempt.
	ValidationError ErrorType = "validation"
	// InterceptorError: a request or response interceptor failed.
	InterceptorError ErrorType = "interceptor"
)

type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return "network error: " + e.message
}

func (e *networkError) Type() ErrorType { return NetworkError }

func (e *networkError) Unwrap() error { return e.wrapped }

type timeoutError struct {
	message string
	timeout time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }

// Timeout reports true so callers using the net.Error convention recognise it.
func (e *timeoutError) Timeout() bool { return true }

type httpError struct {
	message    string
	statusCode int
	body       []byte
	headers    http.Header
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType { return HTTPError }

func (e *httpError) StatusCode() int { return e.statusCode }

func (e *httpError) Body() []byte { return e.body }

func (e *httpError) Headers() http.Header { return e.headers }

type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return "validation error: " + e.message
}

func (e *validationError) Type() ErrorType { return ValidationError }

type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }

func (e *interceptorError) Unwrap() error { return e.wrapped }

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{message: message, wrapped: wrapped}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{message: message, statusCode: statusCode, body: body}
}

func newHTTPErrorFromResponse(resp *Response) ClientError {
	return &httpError{
		message:    statusFailureMessage(resp.StatusCode),
		statusCode: resp.StatusCode,
		body:       resp.Body,
		headers:    resp.Headers,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{message: message, wrapped: wrapped, stage: stage}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == statusCode
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func statusFailureMessage(status int) string {
	return fmt.Sprintf("Request failed with status code %d", status)
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("timeout of %dms exceeded", timeout.Milliseconds())
}
