package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/gitpluck/gitpluck/pkg/remote"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gh := gogithub.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	return NewFromGitHub(gh)
}

func TestClient(t *testing.T) {
	repo := remote.RepositoryRef{Owner: "levinion", Name: "dotfiles", Ref: "main"}

	t.Run("test_get_tree", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/levinion/dotfiles/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("recursive"), "listing must be recursive")
			fmt.Fprint(w, `{
				"sha": "abc",
				"truncated": false,
				"tree": [
					{"path": "nvim", "mode": "040000", "type": "tree", "sha": "t1"},
					{"path": "nvim/init.lua", "mode": "100644", "type": "blob", "sha": "b1", "size": 12},
					{"path": "sub", "mode": "160000", "type": "commit", "sha": "c1"}
				]
			}`)
		})

		client := newTestClient(t, mux)
		entries, err := client.GetTree(context.Background(), repo)
		require.NoError(t, err, "getting tree should not error")
		require.Len(t, entries, 2, "submodule commits are skipped")

		assert.Equal(t, remote.TreeEntry{Path: "nvim", Kind: remote.KindDirectory, ContentID: "t1"}, entries[0])
		assert.Equal(t, remote.TreeEntry{Path: "nvim/init.lua", Kind: remote.KindFile, ContentID: "b1", Size: 12}, entries[1])
	})

	t.Run("test_empty_ref_uses_default_branch", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/levinion/dotfiles", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"default_branch": "trunk"}`)
		})
		mux.HandleFunc("/repos/levinion/dotfiles/git/trees/trunk", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"sha": "abc", "tree": [{"path": "a", "type": "blob", "sha": "b1", "size": 1}]}`)
		})

		client := newTestClient(t, mux)
		entries, err := client.GetTree(context.Background(), remote.RepositoryRef{Owner: "levinion", Name: "dotfiles"})
		require.NoError(t, err, "default branch should be resolved")
		require.Len(t, entries, 1)
	})

	t.Run("test_get_blob", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/levinion/dotfiles/git/blobs/b1", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "vim.opt.number = true")
		})

		client := newTestClient(t, mux)
		data, err := client.GetBlob(context.Background(), repo, "b1")
		require.NoError(t, err, "getting blob should not error")
		assert.Equal(t, "vim.opt.number = true", string(data))
	})

	t.Run("test_missing_repo_maps_to_not_found", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		})

		client := newTestClient(t, mux)
		_, err := client.GetTree(context.Background(), repo)
		require.Error(t, err, "missing repo should error")
		assert.True(t, errors.Is(err, remote.ErrNotFound), "404 should map to ErrNotFound")
	})

	t.Run("test_rate_limit_maps_to_rate_limit_error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Ratelimit-Limit", "60")
			w.Header().Set("X-Ratelimit-Remaining", "0")
			w.Header().Set("X-Ratelimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
		})

		client := newTestClient(t, mux)
		_, err := client.GetBlob(context.Background(), repo, "b1")
		require.Error(t, err, "rate limit should error")
		assert.True(t, remote.IsRateLimited(err), "403 with exhausted quota should map to RateLimitError")

		after, ok := remote.RetryAfterOf(err)
		require.True(t, ok)
		assert.Greater(t, after, 50*time.Minute, "retry-after should reflect the reset time")
	})

	t.Run("test_server_error_is_transient", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message": "boom"}`)
		})

		client := newTestClient(t, mux)
		_, err := client.GetBlob(context.Background(), repo, "b1")
		require.Error(t, err)
		assert.True(t, remote.IsTransient(err), "5xx should be retryable")
	})

	t.Run("test_unreachable_host_is_transient", func(t *testing.T) {
		gh := gogithub.NewClient(nil)
		base, err := url.Parse("http://127.0.0.1:1/")
		require.NoError(t, err)
		gh.BaseURL = base

		client := NewFromGitHub(gh)
		_, err = client.GetBlob(context.Background(), repo, "b1")
		require.Error(t, err)
		assert.True(t, remote.IsTransient(err), "transport failures should be retryable")
	})
}
