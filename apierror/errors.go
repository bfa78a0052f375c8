// Package apierror classifies failures as RESTful API errors: a status code, a
// problem type URI, a title and optional additional information.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	statusTypeBase = "https://httpstatuses.com/"

	downstreamTitle   = "DOWNSTREAM_API_ERROR"
	downstreamMessage = "An error occurred in a downstream request. See additionalInformation for more details"
	internalTitle     = "INTERNAL SERVER ERROR"
)

// APIError is an error that knows how it should be reported to an API caller.
type APIError interface {
	error
	StatusCode() int
	Type() string
	Title() string
	AdditionalInformation() any
}

// IsAPIError reports whether err, or any error it wraps, is an APIError.
func IsAPIError(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr)
}

// StatusType returns the problem type URI for status.
func StatusType(status int) string {
	return fmt.Sprintf("%s%d", statusTypeBase, status)
}

// BaseAPIError provides a basic implementation of APIError.
type BaseAPIError struct {
	status  int
	title   string
	message string
	info    any
}

// NewBaseAPIError creates an API error whose type is derived from status.
func NewBaseAPIError(status int, title, message string) *BaseAPIError {
	return &BaseAPIError{status: status, title: title, message: message}
}

// WithAdditionalInformation attaches caller-facing detail.
func (e *BaseAPIError) WithAdditionalInformation(info any) *BaseAPIError {
	e.info = info
	return e
}

// Error implements the error interface.
func (e *BaseAPIError) Error() string {
	if e == nil {
		return ""
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *BaseAPIError) StatusCode() int { return e.status }

// Type returns the problem type URI.
func (e *BaseAPIError) Type() string { return StatusType(e.status) }

// Title returns the short, constant title of the error.
func (e *BaseAPIError) Title() string { return e.title }

// AdditionalInformation returns the attached detail, if any.
func (e *BaseAPIError) AdditionalInformation() any { return e.info }

// InternalServerError represents an unclassified failure.
type InternalServerError struct {
	*BaseAPIError
	cause error
}

// NewInternalServerError wraps cause as a 500 error carrying its message.
func NewInternalServerError(cause error) *InternalServerError {
	message := "An internal error occurred"
	if cause != nil {
		message = cause.Error()
	}
	return &InternalServerError{
		BaseAPIError: NewBaseAPIError(http.StatusInternalServerError, internalTitle, message),
		cause:        cause,
	}
}

// Unwrap returns the classified error.
func (e *InternalServerError) Unwrap() error { return e.cause }

// ProblemDetails is the response payload describing an APIError.
type ProblemDetails struct {
	Status                int    `json:"status"`
	Type                  string `json:"type"`
	Title                 string `json:"title"`
	Detail                string `json:"detail"`
	AdditionalInformation any    `json:"additionalInformation,omitempty"`
}

// Problem renders err as a response payload.
func Problem(err APIError) ProblemDetails {
	return ProblemDetails{
		Status:                err.StatusCode(),
		Type:                  err.Type(),
		Title:                 err.Title(),
		Detail:                err.Error(),
		AdditionalInformation: err.AdditionalInformation(),
	}
}
