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

package github

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"

	"github.com/gitpluck/gitpluck/pkg/remote"
)

// 🎯 Client implements remote.Client against the GitHub API
type Client struct {
	gh *github.Client
}

var _ remote.Client = (*Client)(nil)

// 🏭 New creates a GitHub-backed remote client. A token is read from the
// GITHUB_TOKEN environment variable when present; public repositories
// work without one, just with a lower rate budget.
func New(ctx context.Context) (*Client, error) {
	logger := zerolog.Ctx(ctx)

	hc := http.DefaultClient
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	} else {
		logger.Debug().Msg("GITHUB_TOKEN not set, using unauthenticated client")
	}

	return &Client{gh: github.NewClient(hc)}, nil
}

// 🏭 NewFromGitHub wraps an already-configured go-github client
func NewFromGitHub(gh *github.Client) *Client {
	return &Client{gh: gh}
}

// 🔍 resolveRef fills in the repository's default branch when no ref was given
func (c *Client) resolveRef(ctx context.Context, repo remote.RepositoryRef) (string, error) {
	if repo.Ref != "" {
		return repo.Ref, nil
	}

	r, _, err := c.gh.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return "", mapError(err)
	}

	return r.GetDefaultBranch(), nil
}

// 📂 GetTree returns the full recursive listing for the repository
func (c *Client) GetTree(ctx context.Context, repo remote.RepositoryRef) ([]remote.TreeEntry, error) {
	logger := zerolog.Ctx(ctx)

	ref, err := c.resolveRef(ctx, repo)
	if err != nil {
		return nil, errors.Errorf("resolving ref for %s: %w", repo, err)
	}

	tree, _, err := c.gh.Git.GetTree(ctx, repo.Owner, repo.Name, ref, true)
	if err != nil {
		return nil, errors.Errorf("getting tree for %s: %w", repo, mapError(err))
	}

	if tree.GetTruncated() {
		logger.Warn().Str("repo", repo.String()).Msg("tree listing truncated by remote, some entries may be missing")
	}

	entries := make([]remote.TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		kind := remote.KindFile
		if e.GetType() == "tree" {
			kind = remote.KindDirectory
		} else if e.GetType() != "blob" {
			// submodule commits and symlinks are neither fetchable nor implied dirs
			continue
		}
		entries = append(entries, remote.TreeEntry{
			Path:      e.GetPath(),
			Kind:      kind,
			ContentID: e.GetSHA(),
			Size:      int64(e.GetSize()),
		})
	}

	return entries, nil
}

// 📥 GetBlob fetches the raw content of a single blob
func (c *Client) GetBlob(ctx context.Context, repo remote.RepositoryRef, contentID string) ([]byte, error) {
	data, _, err := c.gh.Git.GetBlobRaw(ctx, repo.Owner, repo.Name, contentID)
	if err != nil {
		return nil, errors.Errorf("getting blob %s from %s: %w", contentID, repo, mapError(err))
	}
	return data, nil
}

// 🗺️ mapError converts go-github errors to the remote error kinds
func mapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &remote.RateLimitError{RetryAfter: time.Until(rateErr.Rate.Reset.Time)}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &remote.RateLimitError{RetryAfter: abuseErr.GetRetryAfter()}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		switch {
		case code == http.StatusNotFound:
			return errors.Errorf("%w: %s", remote.ErrNotFound, respErr.Message)
		case code >= 500:
			return &remote.TransientError{Err: err}
		default:
			return err
		}
	}

	// no structured response means the transport itself failed
	return &remote.TransientError{Err: err}
}
