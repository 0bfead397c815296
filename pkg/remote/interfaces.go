package remote

import (
	"context"
)

// EntryKind distinguishes files from directories in a tree listing
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// RepositoryRef identifies the remote tree to query. Immutable once built.
type RepositoryRef struct {
	// Owner is the account or organization owning the repository
	Owner string
	// Name is the repository name
	Name string
	// Ref is the branch, tag, or commit to read. Empty means the
	// repository's default branch.
	Ref string
}

// String returns "owner/name@ref" (or "owner/name" when ref is empty)
func (r RepositoryRef) String() string {
	if r.Ref == "" {
		return r.Owner + "/" + r.Name
	}
	return r.Owner + "/" + r.Name + "@" + r.Ref
}

// TreeEntry is one node of a recursive tree listing
type TreeEntry struct {
	// Path is the full path of the entry within the repository
	Path string
	// Kind says whether this entry is a file or a directory
	Kind EntryKind
	// ContentID is the opaque blob identifier used to fetch content
	ContentID string
	// Size is the blob size in bytes, 0 for directories
	Size int64
}

// Client is the contract the fetch engine requires from a remote provider.
// Implementations must be safe for concurrent use; GetBlob is called from
// many workers at once.
type Client interface {
	// GetTree returns the full recursive tree listing for the repository,
	// in the order the remote returned it
	GetTree(ctx context.Context, repo RepositoryRef) ([]TreeEntry, error)
	// GetBlob returns the raw content of a single blob
	GetBlob(ctx context.Context, repo RepositoryRef, contentID string) ([]byte, error)
}
