package perrors

import "time"

// ClassifyTransport implements the Retry Driver's classifier for any
// external call wrapped in RunWithinBudget: TransientIOError is retried with
// the default backoff delay, RateLimitedError is retried with its explicit
// Retry-After delay, and everything else (EncodingError, SttDecodeError,
// and plain errors) is terminal for the call.
func ClassifyTransport(err error) (retry bool, sleep time.Duration) {
	switch e := err.(type) {
	case *TransientIOError:
		return true, 0
	case *RateLimitedError:
		return true, e.RetryAfter
	default:
		return false, 0
	}
}
