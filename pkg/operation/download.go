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

package operation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/gitpluck/gitpluck/pkg/config"
	"github.com/gitpluck/gitpluck/pkg/fetch"
	"github.com/gitpluck/gitpluck/pkg/materialize"
	"github.com/gitpluck/gitpluck/pkg/progress"
	"github.com/gitpluck/gitpluck/pkg/remote"
	"github.com/gitpluck/gitpluck/pkg/resolve"
)

// 🔧 Options contains everything a download operation needs
type Options struct {
	// Config is the validated download configuration
	Config *config.Config
	// Client is the remote provider
	Client remote.Client
	// OnProgress receives a snapshot per settled task. May be nil.
	OnProgress progress.Observer
	// OnResult receives each task's terminal outcome. May be nil.
	OnResult func(fetch.Result)
}

// 📊 Summary describes a finished (or partially finished) download
type Summary struct {
	mu sync.Mutex

	// Total is the number of files resolved under the target path
	Total int
	// Succeeded is the number of files written to disk
	Succeeded int
	// Bytes is the total content size written
	Bytes int64
	// Failed lists the tasks that failed terminally
	Failed []fetch.TaskFailure
}

// 🏃 Download resolves the target path and fetches every file under it
// to the configured destination. Resolution errors abort before any
// fetch starts; fetch-phase failures are isolated per file and surfaced
// together in the returned error, alongside a summary of what did land
// on disk.
func Download(ctx context.Context, opts Options) (*Summary, error) {
	logger := zerolog.Ctx(ctx)

	if opts.Config == nil {
		return nil, errors.Errorf("config is required")
	}
	if opts.Client == nil {
		return nil, errors.Errorf("client is required")
	}

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	repo := cfg.RepoRef()
	logger.Info().
		Str("repo", repo.String()).
		Str("path", cfg.Repository.Path).
		Str("destination", cfg.Destination).
		Msg("resolving target path")

	tasks, err := resolve.Resolve(ctx, opts.Client, repo, resolve.Options{
		TargetPath:     cfg.Repository.Path,
		IgnorePatterns: cfg.IgnorePatterns,
	})
	if err != nil {
		return nil, errors.Errorf("resolving %q: %w", cfg.Repository.Path, err)
	}

	summary := &Summary{Total: len(tasks)}

	writer := materialize.NewWriter(cfg.Destination)
	scheduler := fetch.NewScheduler(opts.Client, writer, fetch.Options{
		MaxConcurrency: cfg.Concurrency,
		Retry:          fetch.Policy{MaxAttempts: cfg.MaxAttempts},
		OnProgress:     opts.OnProgress,
		OnResult: func(res fetch.Result) {
			if res.Err == nil {
				summary.record(res)
			}
			if opts.OnResult != nil {
				opts.OnResult(res)
			}
		},
	})

	runErr := scheduler.Run(ctx, repo, tasks)

	var partial *fetch.PartialFailureError
	if errors.As(runErr, &partial) {
		summary.Failed = partial.Failures
	}

	logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", len(summary.Failed)).
		Int64("bytes", summary.Bytes).
		Msg("download finished")

	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}

// record tallies one success. OnResult runs concurrently across workers.
func (s *Summary) record(res fetch.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Succeeded++
	s.Bytes += int64(res.Bytes)
}
