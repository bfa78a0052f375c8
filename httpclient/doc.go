// Package httpclient performs resilient outbound HTTP calls and folds every outcome
// into an Envelope. No method returns an error: callers inspect Envelope.Error.
//
// Attempts
//   - Total attempts = max(MaxRetries, 0) + 1, issued back-to-back with no delay.
//   - Each attempt is bounded by the configured timeout (zero means no deadline).
//
// Retries
//   - A timed-out attempt is retried while attempts remain.
//   - A response whose status matches a RetryStatusCodes entry (ExactCode or
//     Pattern) is retried while attempts remain, whether or not it is 2xx.
//   - Anything else stops the loop: connection failures, cancellation of the
//     caller's context, interceptor failures and unflagged statuses.
//
// Envelopes
//   - Success: {status, body, headers}.
//   - Non-2xx: the server's status, body and headers plus an error
//     "Request failed with status code <n>" whose data is the decoded body.
//   - No response: status 500, body {}, error data "API Call Failed. <message>".
//     Timeouts read "timeout of <n>ms exceeded".
//
// Guards
//   - WithCircuitBreaker and WithRateLimit reject attempts without touching the
//     network; a rejection is a terminal network failure.
package httpclient
