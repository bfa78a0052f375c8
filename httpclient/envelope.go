package httpclient

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorName is the name reported in every ErrorDetail.
const ErrorName = "Error"

const apiCallFailedPrefix = "API Call Failed. "

// Envelope is the uniform result of a resilient call. Status and Body are always
// set; Error is non-nil exactly when the final attempt did not yield a clean success.
type Envelope struct {
	Status int `json:"status"`
	// Body is the decoded payload: JSON values decode to map[string]any, []any or
	// scalars, anything else is kept as a string. Never nil.
	Body    any               `json:"body"`
	Error   *ErrorDetail      `json:"error,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ErrorDetail describes the failure of the final attempt.
type ErrorDetail struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	// Data is the decoded error payload, or "API Call Failed. <message>" when the
	// remote end sent nothing.
	Data any `json:"data"`
}

// Failed reports whether the envelope carries an error.
func (e *Envelope) Failed() bool {
	return e.Error != nil
}

// DecodeBody converts the decoded body into v through a JSON round trip.
func (e *Envelope) DecodeBody(v any) error {
	raw, err := json.Marshal(e.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func emptyBody() map[string]any {
	return map[string]any{}
}

func successEnvelope(resp *Response) *Envelope {
	env := &Envelope{
		Status:  resp.StatusCode,
		Body:    emptyBody(),
		Headers: flattenHeaders(resp.Headers),
	}
	if decoded := decodeBody(resp.Body); decoded != nil {
		env.Body = decoded
	}
	return env
}

func failureEnvelope(f *attemptFailure) *Envelope {
	env := &Envelope{
		Status: http.StatusInternalServerError,
		Body:   emptyBody(),
		Error: &ErrorDetail{
			Name:    ErrorName,
			Message: f.message,
		},
	}
	if f.response != nil {
		env.Status = f.response.StatusCode
		env.Headers = flattenHeaders(f.response.Headers)
		if decoded := decodeBody(f.response.Body); decoded != nil {
			env.Body = decoded
			env.Error.Data = decoded
		}
	}
	if env.Error.Data == nil {
		env.Error.Data = apiCallFailedPrefix + f.message
	}
	return env
}

// rejectedEnvelope answers a request that never reached the transport.
func rejectedEnvelope(err ClientError) *Envelope {
	return failureEnvelope(&attemptFailure{err: err, message: err.Error()})
}

// fallbackEnvelope prefers the last success over the last failure.
func fallbackEnvelope(lastSuccess, lastFailure *Envelope) *Envelope {
	switch {
	case lastSuccess != nil:
		return lastSuccess
	case lastFailure != nil:
		return lastFailure
	default:
		return &Envelope{Status: http.StatusInternalServerError, Body: emptyBody()}
	}
}

// flattenHeaders keys headers by canonical name and joins repeated values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	if h == nil {
		return nil
	}
	flat := make(map[string]string, len(h))
	for name, values := range h {
		flat[http.CanonicalHeaderKey(name)] = strings.Join(values, ", ")
	}
	return flat
}
