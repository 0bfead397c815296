// Copyright 2025 the gitpluck authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"context"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/gitpluck/gitpluck/pkg/remote"
)

// 🔧 Policy bounds the per-task retry behavior. The zero value gets
// sensible defaults from withDefaults.
type Policy struct {
	// MaxAttempts is the total number of tries per task, including the
	// first one
	MaxAttempts int
	// InitialBackoff is the wait before the second attempt; it doubles
	// on every further attempt
	InitialBackoff time.Duration
	// MaxBackoff caps the computed backoff. A server-provided
	// retry-after still wins when it is longer.
	MaxBackoff time.Duration
	// AttemptTimeout bounds a single fetch attempt; exceeding it counts
	// as a transient failure
	AttemptTimeout time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 4
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = time.Minute
	}
	return p
}

// delay computes the wait before the next attempt. attempt is zero-based
// (the attempt that just failed). A retry-after hint from the remote is
// honored even when it exceeds the cap.
func (p Policy) delay(attempt int, err error) time.Duration {
	d := p.InitialBackoff << uint(attempt)
	if d > p.MaxBackoff || d <= 0 {
		d = p.MaxBackoff
	}
	if after, ok := remote.RetryAfterOf(err); ok && after > d {
		d = after
	}
	return d
}

// retryable reports whether the task deserves another attempt
func (p Policy) retryable(err error, attempt int) bool {
	return remote.IsTransient(err) && attempt+1 < p.MaxAttempts
}

// sleep waits for d or until ctx is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
