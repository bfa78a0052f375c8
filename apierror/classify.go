package apierror

import (
	"errors"

	"github.com/gaborage/fnbricks/httpclient"
)

// DownstreamAPIError reports a failed outbound call. The downstream status is
// passed through and the envelope's error detail becomes the additional information.
type DownstreamAPIError struct {
	*BaseAPIError
}

// NewDownstreamAPIError builds the error from a failed envelope. The additional
// information is the envelope's error detail, or its body when there is none.
func NewDownstreamAPIError(env *httpclient.Envelope) *DownstreamAPIError {
	base := NewBaseAPIError(env.Status, downstreamTitle, downstreamMessage)
	if env.Error != nil {
		base.WithAdditionalInformation(env.Error)
	} else {
		base.WithAdditionalInformation(env.Body)
	}
	return &DownstreamAPIError{BaseAPIError: base}
}

// FromEnvelope returns nil for a clean envelope and a DownstreamAPIError otherwise.
func FromEnvelope(env *httpclient.Envelope) error {
	if env == nil || !env.Failed() {
		return nil
	}
	return NewDownstreamAPIError(env)
}

// Classify returns the APIError found in err's chain, or wraps err as an
// InternalServerError. A nil err yields nil.
func Classify(err error) APIError {
	if err == nil {
		return nil
	}
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalServerError(err)
}
