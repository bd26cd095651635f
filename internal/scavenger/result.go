package scavenger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome classifies the result of one remote call.
type Outcome int

const (
	// OutcomeSuccess: 2xx response; payload is opaque.
	OutcomeSuccess Outcome = iota
	// OutcomeHTTPError: non-2xx response other than 429.
	OutcomeHTTPError
	// OutcomeRateLimited: 429 response; RetryAfter carries the server hint.
	OutcomeRateLimited
	// OutcomeNetworkError: the request never produced an HTTP response.
	OutcomeNetworkError
)

// Result is the tagged outcome of a remote call. Exactly the fields of the
// matching outcome are meaningful; the rest are zero.
type Result struct {
	Outcome    Outcome
	Payload    json.RawMessage // Success: raw response body
	Status     int             // HTTPError: status code
	Body       string          // HTTPError: truncated response body
	RetryAfter time.Duration   // RateLimited: Retry-After hint, 0 if absent
	Err        error           // NetworkError: transport error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Detail renders a human-readable error description for ledger entries
// and logs. Empty for successful results.
func (r Result) Detail() string {
	switch r.Outcome {
	case OutcomeHTTPError:
		if r.Body != "" {
			return fmt.Sprintf("HTTP %d: %s", r.Status, r.Body)
		}
		return fmt.Sprintf("HTTP %d", r.Status)
	case OutcomeRateLimited:
		if r.RetryAfter > 0 {
			return fmt.Sprintf("rate limited (retry after %s)", r.RetryAfter)
		}
		return "rate limited"
	case OutcomeNetworkError:
		return r.Err.Error()
	default:
		return ""
	}
}
