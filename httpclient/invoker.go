package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/gaborage/fnbricks/trace"
)

// attemptOutcome is the tagged result of one attempt: exactly one of response and
// failure is set.
type attemptOutcome struct {
	response *Response
	failure  *attemptFailure
}

type attemptFailure struct {
	err ClientError
	// message is the text surfaced in ErrorDetail.Message.
	message string
	// response is set when the server answered: HTTP status failures and
	// rejections by a response interceptor.
	response *Response
}

func (o attemptOutcome) signal() AttemptSignal {
	if o.response != nil {
		return AttemptSignal{Status: o.response.StatusCode}
	}
	sig := AttemptSignal{TimedOut: o.failure.err.Type() == TimeoutError}
	if o.failure.response != nil && o.failure.err.Type() == HTTPError {
		sig.Status = o.failure.response.StatusCode
	}
	return sig
}

func (o attemptOutcome) envelope() *Envelope {
	if o.response != nil {
		return successEnvelope(o.response)
	}
	return failureEnvelope(o.failure)
}

func (o attemptOutcome) errorType() string {
	if o.failure == nil {
		return ""
	}
	return string(o.failure.err.Type())
}

func failed(err ClientError, message string) attemptOutcome {
	return attemptOutcome{failure: &attemptFailure{err: err, message: message}}
}

// preparedCall is a validated request, ready to be sent any number of times.
type preparedCall struct {
	method  string
	url     *url.URL
	headers nethttp.Header
	body    []byte
	auth    *BasicAuth
}

// prepare validates req and resolves everything that does not change between attempts.
func (c *client) prepare(method string, req *Request) (*preparedCall, ClientError) {
	if req == nil {
		return nil, NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return nil, NewValidationError("URL cannot be empty", "url")
	}
	method = strings.ToUpper(method)
	if !ValidMethod(method) {
		return nil, NewValidationError(fmt.Sprintf("unsupported HTTP method %q", method), "method")
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, NewValidationError("invalid URL: "+err.Error(), "url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, NewValidationError("URL must be absolute", "url")
	}
	if len(req.QueryParams) > 0 {
		query := u.Query()
		for key, value := range req.QueryParams {
			query.Set(key, value)
		}
		u.RawQuery = query.Encode()
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		var clientErr ClientError
		if errors.As(err, &clientErr) {
			return nil, clientErr
		}
		return nil, NewValidationError(err.Error(), "body")
	}

	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}

	return &preparedCall{
		method:  method,
		url:     u,
		headers: c.mergeHeaders(req.Headers, body != nil),
		body:    body,
		auth:    auth,
	}, nil
}

// mergeHeaders applies default headers, then request headers, then the JSON
// content type when a body is present and none was given.
func (c *client) mergeHeaders(requestHeaders map[string]string, hasBody bool) nethttp.Header {
	h := make(nethttp.Header, len(c.config.DefaultHeaders)+len(requestHeaders)+1)
	for key, value := range c.config.DefaultHeaders {
		h.Set(key, value)
	}
	for key, value := range requestHeaders {
		h.Set(key, value)
	}
	if hasBody && h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	return h
}

// withCallTrace fixes the correlation identifiers for the whole call, so every
// attempt carries the same request ID and traceparent.
func (c *client) withCallTrace(ctx context.Context) context.Context {
	if c.config.EnableW3CTrace {
		if _, ok := trace.ParentFromContext(ctx); !ok {
			ctx = trace.WithTraceParent(ctx, trace.GenerateTraceParent())
		}
	}

	if c.config.TraceIDExtractor != nil {
		if id, ok := c.config.TraceIDExtractor(ctx); ok && id != "" {
			return trace.WithTraceID(ctx, id)
		}
	}
	if _, ok := trace.IDFromContext(ctx); ok {
		return ctx
	}
	if tp, ok := trace.ParentFromContext(ctx); ok && c.config.EnableW3CTrace {
		if id, ok := trace.IDFromTraceParent(tp); ok {
			return trace.WithTraceID(ctx, id)
		}
	}
	if c.config.NewTraceID != nil {
		if id := c.config.NewTraceID(); id != "" {
			return trace.WithTraceID(ctx, id)
		}
	}
	return trace.WithTraceID(ctx, trace.NewID())
}

// invoke performs exactly one round trip. ctx is the caller's context; the attempt
// deadline is derived from it.
func (c *client) invoke(ctx context.Context, call *preparedCall, timeout time.Duration, callCount int64) attemptOutcome {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done, err := c.guards.admit()
	if err != nil {
		c.logger.Warn().
			Str("method", call.method).
			Str("url", call.url.String()).
			Str("breaker_state", c.guards.breakerState().String()).
			Err(err).
			Msg("REST client attempt rejected by guard")
		return failed(NewNetworkError("outbound call rejected", err), err.Error())
	}

	httpReq, traceID, clientErr := c.buildRequest(attemptCtx, call)
	if clientErr != nil {
		done(nil)
		return failed(clientErr, clientErr.Error())
	}

	c.logRequest(httpReq, call.body, traceID)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		outcome := c.transportFailure(ctx, err, timeout)
		done(outcome.failure.err)
		return outcome
	}

	resp, outcome, ok := c.readResponse(ctx, attemptCtx, httpReq, httpResp, timeout)
	if !ok {
		if outcome.failure.err.Type() == InterceptorError {
			done(nil)
		} else {
			done(outcome.failure.err)
		}
		return outcome
	}
	done(nil)

	resp.Stats = Stats{ElapsedTime: time.Since(start), CallCount: callCount}
	c.logResponse(resp, traceID)

	if !IsSuccessStatus(resp.StatusCode) {
		return attemptOutcome{failure: &attemptFailure{
			err:      newHTTPErrorFromResponse(resp),
			message:  statusFailureMessage(resp.StatusCode),
			response: resp,
		}}
	}
	return attemptOutcome{response: resp}
}

// buildRequest constructs an *http.Request, applies headers, auth and trace
// propagation, and runs request interceptors.
func (c *client) buildRequest(ctx context.Context, call *preparedCall) (*nethttp.Request, string, ClientError) {
	var body io.Reader = nethttp.NoBody
	if call.body != nil {
		body = bytes.NewReader(call.body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, call.method, call.url.String(), body)
	if err != nil {
		return nil, "", NewNetworkError("failed to create HTTP request", err)
	}
	httpReq.Header = call.headers.Clone()
	if call.auth != nil {
		httpReq.SetBasicAuth(call.auth.Username, call.auth.Password)
	}

	traceID := trace.InjectIntoHeaders(ctx, httpReq.Header, trace.InjectOptions{
		Mode:            trace.InjectPreserve,
		RequestIDHeader: c.config.TraceIDHeader,
		NewID:           c.config.NewTraceID,
		W3C:             c.config.EnableW3CTrace,
	})

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, traceID, NewInterceptorError("request interceptor failed", "request", err)
		}
	}
	return httpReq, traceID, nil
}

// readResponse runs response interceptors and reads the body. ok is false when the
// attempt failed after the server answered.
func (c *client) readResponse(parent, attemptCtx context.Context, httpReq *nethttp.Request, httpResp *nethttp.Response, timeout time.Duration) (*Response, attemptOutcome, bool) {
	defer httpResp.Body.Close()

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(attemptCtx, httpReq, httpResp); err != nil {
			clientErr := NewInterceptorError("response interceptor failed", "response", err)
			raw, _ := io.ReadAll(httpResp.Body)
			return nil, attemptOutcome{failure: &attemptFailure{
				err:     clientErr,
				message: clientErr.Error(),
				response: &Response{
					StatusCode: httpResp.StatusCode,
					Body:       raw,
					Headers:    httpResp.Header,
				},
			}}, false
		}
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportFailure(parent, err, timeout), false
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       raw,
		Headers:    httpResp.Header,
	}, attemptOutcome{}, true
}

// transportFailure classifies an error raised before a complete response was read.
// Cancellation of the caller's context is terminal; a fired attempt deadline is a timeout.
func (c *client) transportFailure(parent context.Context, err error, timeout time.Duration) attemptOutcome {
	if parentErr := parent.Err(); parentErr != nil {
		return failed(NewNetworkError("request cancelled", parentErr), parentErr.Error())
	}
	if isTimeout(err) {
		if timeout <= 0 {
			timeout = c.httpClient.Timeout
		}
		return failed(NewTimeoutError("request timeout", timeout), timeoutMessage(timeout))
	}
	return failed(NewNetworkError("request execution failed", err), err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
