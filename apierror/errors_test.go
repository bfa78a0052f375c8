package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/fnbricks/httpclient"
)

func TestClassify(t *testing.T) {
	downstream := NewDownstreamAPIError(&httpclient.Envelope{Status: http.StatusBadGateway, Body: map[string]any{}})

	tests := []struct {
		name   string
		err    error
		status int
		title  string
		same   APIError
	}{
		{name: "plain_error", err: errors.New("boom"), status: http.StatusInternalServerError, title: internalTitle},
		{name: "classified", err: downstream, status: http.StatusBadGateway, title: downstreamTitle, same: downstream},
		{name: "wrapped_classified", err: fmt.Errorf("handler: %w", downstream), status: http.StatusBadGateway, title: downstreamTitle, same: downstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.status, classified.StatusCode())
			assert.Equal(t, tt.title, classified.Title())
			assert.Equal(t, StatusType(tt.status), classified.Type())
			if tt.same != nil {
				assert.Same(t, tt.same, classified)
			}
		})
	}

	assert.Nil(t, Classify(nil))
}

func TestInternalServerError(t *testing.T) {
	cause := errors.New("database unavailable")
	err := NewInternalServerError(cause)

	assert.Equal(t, "database unavailable", err.Error())
	assert.Equal(t, "https://httpstatuses.com/500", err.Type())
	assert.Equal(t, "INTERNAL SERVER ERROR", err.Title())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, err.AdditionalInformation())

	assert.Equal(t, "An internal error occurred", NewInternalServerError(nil).Error())
}

func TestNewDownstreamAPIError(t *testing.T) {
	t.Run("error_detail_preferred", func(t *testing.T) {
		detail := &httpclient.ErrorDetail{Name: httpclient.ErrorName, Message: "Request failed with status code 404", Data: map[string]any{"id": "x"}}
		err := NewDownstreamAPIError(&httpclient.Envelope{Status: http.StatusNotFound, Body: map[string]any{"id": "x"}, Error: detail})

		assert.Equal(t, http.StatusNotFound, err.StatusCode())
		assert.Equal(t, "https://httpstatuses.com/404", err.Type())
		assert.Equal(t, "DOWNSTREAM_API_ERROR", err.Title())
		assert.Equal(t, downstreamMessage, err.Error())
		assert.Same(t, detail, err.AdditionalInformation())
	})

	t.Run("body_without_detail", func(t *testing.T) {
		body := map[string]any{"state": "degraded"}
		err := NewDownstreamAPIError(&httpclient.Envelope{Status: http.StatusOK, Body: body})
		assert.Equal(t, body, err.AdditionalInformation())
	})
}

func TestFromEnvelope(t *testing.T) {
	assert.NoError(t, FromEnvelope(nil))
	assert.NoError(t, FromEnvelope(&httpclient.Envelope{Status: http.StatusOK, Body: map[string]any{}}))

	err := FromEnvelope(&httpclient.Envelope{
		Status: http.StatusServiceUnavailable,
		Body:   map[string]any{},
		Error:  &httpclient.ErrorDetail{Name: httpclient.ErrorName, Message: "Request failed with status code 503"},
	})
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.True(t, IsAPIError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsAPIError(errors.New("plain")))
}

func TestProblem(t *testing.T) {
	env := &httpclient.Envelope{
		Status: http.StatusUnauthorized,
		Body:   map[string]any{},
		Error:  &httpclient.ErrorDetail{Name: httpclient.ErrorName, Message: "Request failed with status code 401", Data: "API Call Failed. Request failed with status code 401"},
	}

	raw, err := json.Marshal(Problem(NewDownstreamAPIError(env)))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": 401,
		"type": "https://httpstatuses.com/401",
		"title": "DOWNSTREAM_API_ERROR",
		"detail": "An error occurred in a downstream request. See additionalInformation for more details",
		"additionalInformation": {
			"name": "Error",
			"message": "Request failed with status code 401",
			"data": "API Call Failed. Request failed with status code 401"
		}
	}`, string(raw))

	internal, err := json.Marshal(Problem(NewInternalServerError(errors.New("boom"))))
	require.NoError(t, err)
	assert.NotContains(t, string(internal), "additionalInformation")
}
