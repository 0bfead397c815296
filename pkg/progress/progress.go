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

// Package progress tracks completed downloads against a fixed total.
package progress

import (
	"sync/atomic"
)

// 📸 Snapshot is one observation of download progress. Current never
// exceeds Total and is non-decreasing over the life of one operation.
type Snapshot struct {
	Current int
	Total   int
}

// Percent returns completion in [0, 1], or 0 when Total is zero
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Current) / float64(s.Total)
}

// Done reports whether every task has completed
func (s Snapshot) Done() bool {
	return s.Current == s.Total
}

// Observer receives a snapshot after each completed task. It is invoked
// synchronously from whichever worker finished the task, so it must be
// cheap and safe for concurrent use.
type Observer func(Snapshot)

// 🎯 Tracker is a thread-safe completion counter. The total is fixed at
// construction; Advance is called exactly once per settled task.
type Tracker struct {
	total   int64
	current atomic.Int64
}

// 🏭 NewTracker creates a tracker for the given task count
func NewTracker(total int) *Tracker {
	return &Tracker{total: int64(total)}
}

// Advance atomically counts one more completed task and returns the
// resulting snapshot. Calls beyond the total are clamped rather than
// overflowing the counter.
func (t *Tracker) Advance() Snapshot {
	n := t.current.Add(1)
	if n > t.total {
		t.current.Store(t.total)
		n = t.total
	}
	return Snapshot{Current: int(n), Total: int(t.total)}
}

// Snapshot returns the current state without advancing
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{Current: int(t.current.Load()), Total: int(t.total)}
}
