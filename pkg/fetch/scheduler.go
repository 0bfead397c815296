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

// Package fetch runs bounded-concurrency downloads over a resolved task
// list, with per-task retries and aggregated progress.
package fetch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gitpluck/gitpluck/pkg/materialize"
	"github.com/gitpluck/gitpluck/pkg/progress"
	"github.com/gitpluck/gitpluck/pkg/remote"
	"github.com/gitpluck/gitpluck/pkg/resolve"
)

// DefaultConcurrency is used when Options.MaxConcurrency is unset
const DefaultConcurrency = 4

// 📬 Result is the terminal outcome of one task. Err is nil on success;
// otherwise Kind says why the task failed after all retries.
type Result struct {
	Task     resolve.Task
	Bytes    int
	Err      error
	Kind     FailureKind
	Snapshot progress.Snapshot
}

// 🔧 Options configures a scheduler run
type Options struct {
	// MaxConcurrency bounds the number of in-flight fetches
	MaxConcurrency int
	// Retry is the per-task retry policy
	Retry Policy
	// OnResult is invoked once per settled task, from the worker that
	// finished it. May be nil.
	OnResult func(Result)
	// OnProgress is invoked with each snapshot produced as tasks settle.
	// May be nil; must be cheap and concurrency-safe.
	OnProgress progress.Observer
}

// 🚚 Scheduler drains a task list through a fixed-size worker pool
type Scheduler struct {
	client remote.Client
	writer *materialize.Writer
	opts   Options
}

// 🏭 NewScheduler creates a scheduler fetching through client and writing
// through writer
func NewScheduler(client remote.Client, writer *materialize.Writer, opts Options) *Scheduler {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultConcurrency
	}
	opts.Retry = opts.Retry.withDefaults()
	return &Scheduler{client: client, writer: writer, opts: opts}
}

// 🏃 Run executes every task and waits for all of them to settle. A task
// failure never aborts its siblings; the failures are aggregated into a
// *PartialFailureError once everything has drained. Cancellation stops
// dispatching new tasks, lets in-flight ones settle, and is reported
// instead of any partial failure.
func (s *Scheduler) Run(ctx context.Context, repo remote.RepositoryRef, tasks []resolve.Task) error {
	tracker := progress.NewTracker(len(tasks))

	var (
		mu       sync.Mutex
		failures []TaskFailure
	)

	g := &errgroup.Group{}
	g.SetLimit(s.opts.MaxConcurrency)

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		task := task
		g.Go(func() error {
			res := s.runTask(ctx, repo, task)
			res.Snapshot = tracker.Advance()

			if res.Err != nil {
				mu.Lock()
				failures = append(failures, TaskFailure{
					RelativePath: task.RelativePath,
					Kind:         res.Kind,
					Err:          res.Err,
				})
				mu.Unlock()
			}

			if s.opts.OnProgress != nil {
				s.opts.OnProgress(res.Snapshot)
			}
			if s.opts.OnResult != nil {
				s.opts.OnResult(res)
			}
			return nil
		})
	}

	// workers always return nil, Wait only synchronizes
	_ = g.Wait()

	// cancellation wins over partial failure, whether it stopped the
	// dispatch loop or arrived while the last tasks were in flight
	if ctx.Err() != nil {
		return errors.Errorf("download cancelled: %w", ctx.Err())
	}

	if len(failures) > 0 {
		return &PartialFailureError{Failures: failures}
	}

	return nil
}

// runTask fetches one blob with retries and writes it to disk. The bytes
// are fully on disk before the task counts as settled.
func (s *Scheduler) runTask(ctx context.Context, repo remote.RepositoryRef, task resolve.Task) Result {
	logger := zerolog.Ctx(ctx)

	for attempt := 0; ; attempt++ {
		data, err := s.fetchOnce(ctx, repo, task.Entry.ContentID)
		if err == nil {
			n, werr := s.writer.Write(task.RelativePath, data)
			if werr != nil {
				return Result{Task: task, Err: werr, Kind: FailureIO}
			}
			return Result{Task: task, Bytes: n}
		}

		if ctx.Err() != nil {
			return Result{Task: task, Err: ctx.Err(), Kind: FailureCancelled}
		}

		if !s.opts.Retry.retryable(err, attempt) {
			return Result{Task: task, Err: err, Kind: classify(err)}
		}

		delay := s.opts.Retry.delay(attempt, err)
		logger.Debug().
			Str("file", task.RelativePath).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(err).
			Msg("retrying fetch")

		if serr := sleep(ctx, delay); serr != nil {
			return Result{Task: task, Err: serr, Kind: FailureCancelled}
		}
	}
}

// fetchOnce performs a single bounded-duration fetch attempt
func (s *Scheduler) fetchOnce(ctx context.Context, repo remote.RepositoryRef, contentID string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.Retry.AttemptTimeout)
	defer cancel()

	data, err := s.client.GetBlob(attemptCtx, repo, contentID)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		// attempt timed out but the operation is still live
		return nil, &remote.TransientError{Err: err}
	}
	return data, err
}
