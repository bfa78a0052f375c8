package httpclient

import (
	nethttp "net/http"
	"strconv"

	"github.com/gaborage/fnbricks/logger"
)

const defaultMaxPayloadLogBytes = 1024

// logRequest logs the outgoing request at info level, plus headers and a body
// preview at debug level when payload logging is enabled.
func (c *client) logRequest(req *nethttp.Request, body []byte, traceID string) {
	event := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)
	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	debug := c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID).
		Interface("headers", map[string][]string(req.Header))
	c.withPayload(debug, body).Msg("REST client request")
}

// logResponse logs the response of one attempt.
func (c *client) logResponse(resp *Response, traceID string) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", traceID)
	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}
	debug := c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", traceID).
		Interface("headers", map[string][]string(resp.Headers))
	c.withPayload(debug, resp.Body).Msg("REST client response")
}

func (c *client) withPayload(event logger.LogEvent, body []byte) logger.LogEvent {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = defaultMaxPayloadLogBytes
	}
	preview := body
	truncated := len(body) > limit
	if truncated {
		preview = body[:limit]
	}
	return event.
		Int("body_size", len(body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview)
}

// logRetry logs that the policy asked for attempt next of total.
func (c *client) logRetry(call *preparedCall, next, total int, last *Envelope) {
	event := c.logger.Warn().
		Str("method", call.method).
		Str("url", call.url.String()).
		Int("attempt", next).
		Int("max_attempts", total)
	if last != nil {
		event = event.Int("status", last.Status)
		if last.Error != nil {
			event = event.Str("reason", last.Error.Message)
		}
	}
	event.Msg("REST client retry")
}
