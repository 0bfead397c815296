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
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/gitpluck/gitpluck/pkg/remote"
)

// 🏷️ FailureKind classifies why a task reached terminal failure
type FailureKind string

const (
	FailureNotFound    FailureKind = "not_found"
	FailureRateLimited FailureKind = "rate_limited"
	FailureNetwork     FailureKind = "network"
	FailureIO          FailureKind = "io"
	FailureCancelled   FailureKind = "cancelled"
	FailurePermanent   FailureKind = "permanent"
)

// 📋 TaskFailure records one task that failed terminally
type TaskFailure struct {
	RelativePath string
	Kind         FailureKind
	Err          error
}

// 💥 PartialFailureError aggregates the tasks that failed after all
// retries were exhausted. The sibling tasks that succeeded are already
// on disk; nothing is rolled back.
type PartialFailureError struct {
	Failures []TaskFailure
}

func (e *PartialFailureError) Error() string {
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = fmt.Sprintf("%s (%s)", f.RelativePath, f.Kind)
	}
	return fmt.Sprintf("%d download(s) failed: %s", len(e.Failures), strings.Join(paths, ", "))
}

// classify maps a fetch error onto a failure kind
func classify(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, remote.ErrNotFound):
		return FailureNotFound
	case remote.IsRateLimited(err):
		return FailureRateLimited
	case remote.IsTransient(err):
		return FailureNetwork
	case isCancellation(err):
		return FailureCancelled
	default:
		return FailurePermanent
	}
}
