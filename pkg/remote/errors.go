package remote

import (
	"fmt"
	"time"

	"gitlab.com/tozd/go/errors"
)

// ErrNotFound reports that the repository, reference, or blob does not
// exist on the remote. Never retried.
var ErrNotFound = errors.New("repository, reference, or blob not found")

// 🚦 RateLimitError reports remote throttling. RetryAfter is the minimum
// wait the server asked for, zero if it gave none.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by remote, retry after %s", e.RetryAfter)
	}
	return "rate limited by remote"
}

// 🌐 TransientError wraps a transport-level failure (timeout, connection
// reset, 5xx) that is worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient remote failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err carries a rate-limit signal
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// RetryAfterOf extracts the server-provided retry-after duration, if any
func RetryAfterOf(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsTransient reports whether err may succeed on a later attempt.
// Rate limits count as transient; they just carry an extra wait hint.
func IsTransient(err error) bool {
	if IsRateLimited(err) {
		return true
	}
	var te *TransientError
	return errors.As(err, &te)
}
