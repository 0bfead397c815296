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

// Package resolve turns a repository tree listing into the flat list of
// download tasks lying under a target path.
package resolve

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/gitpluck/gitpluck/pkg/remote"
)

// ErrEmptyResult reports that no files lie under the target path. The
// remote tree API does not distinguish an empty directory from an absent
// one, so both collapse to this error.
var ErrEmptyResult = errors.New("no files found under target path")

// 📦 Task is one file to download: the remote entry plus its local path
// relative to the destination root
type Task struct {
	Entry        remote.TreeEntry
	RelativePath string
}

// 🔧 Options tunes resolution
type Options struct {
	// TargetPath is the subdirectory to resolve, relative to the
	// repository root. Empty means the whole repository. Must be a
	// normalized relative path.
	TargetPath string
	// IgnorePatterns are doublestar globs matched against each task's
	// relative path; matching files are skipped entirely
	IgnorePatterns []string
}

// 🔍 Resolve lists the repository tree and filters it to the file entries
// strictly under the target path, preserving remote order. Directory
// entries are dropped; they are implied by the file paths.
func Resolve(ctx context.Context, client remote.Client, repo remote.RepositoryRef, opts Options) ([]Task, error) {
	logger := zerolog.Ctx(ctx)

	if err := validateTargetPath(opts.TargetPath); err != nil {
		return nil, err
	}

	entries, err := client.GetTree(ctx, repo)
	if err != nil {
		return nil, errors.Errorf("listing tree: %w", err)
	}

	var tasks []Task
	for _, entry := range entries {
		if entry.Kind != remote.KindFile {
			continue
		}

		rel, ok := relativeTo(entry.Path, opts.TargetPath)
		if !ok {
			continue
		}

		if ignored(rel, opts.IgnorePatterns, logger) {
			continue
		}

		tasks = append(tasks, Task{Entry: entry, RelativePath: rel})
	}

	if len(tasks) == 0 {
		return nil, errors.Errorf("%w: %q in %s", ErrEmptyResult, opts.TargetPath, repo)
	}

	logger.Debug().
		Str("repo", repo.String()).
		Str("path", opts.TargetPath).
		Int("files", len(tasks)).
		Msg("resolved target path")

	return tasks, nil
}

// validateTargetPath rejects absolute and traversal-bearing paths
func validateTargetPath(target string) error {
	if target == "" {
		return nil
	}
	if strings.HasPrefix(target, "/") || strings.HasSuffix(target, "/") {
		return errors.Errorf("target path %q must not have leading or trailing separators", target)
	}
	for _, seg := range strings.Split(target, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return errors.Errorf("target path %q must be a normalized relative path", target)
		}
	}
	return nil
}

// relativeTo strips target as a segment-wise prefix of path. "lib" is a
// prefix of "lib/a.go" but not of "libx/a.go" or of "lib" itself.
func relativeTo(path, target string) (string, bool) {
	if target == "" {
		return path, true
	}
	if !strings.HasPrefix(path, target+"/") {
		return "", false
	}
	return path[len(target)+1:], true
}

func ignored(rel string, patterns []string, logger *zerolog.Logger) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			logger.Debug().Str("pattern", pattern).Err(err).Msg("error matching ignore pattern")
			continue
		}
		if matched {
			logger.Debug().Str("file", rel).Str("pattern", pattern).Msg("file ignored by pattern")
			return true
		}
	}
	return false
}
