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

// Package testutils provides a fake remote client for tests: scripted
// trees and blobs, per-blob error injection, and an in-flight gauge for
// concurrency assertions.
package testutils

import (
	"context"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/gitpluck/gitpluck/pkg/remote"
)

// 🎭 FakeClient implements remote.Client from scripted data
type FakeClient struct {
	mu sync.Mutex

	// Tree is returned by GetTree, in order
	Tree []remote.TreeEntry
	// Blobs maps content id to content
	Blobs map[string][]byte
	// TreeErr, when set, fails GetTree
	TreeErr error
	// BlobErrs queues errors per content id; each GetBlob call pops one
	// until the queue is empty, then the real blob is served
	BlobErrs map[string][]error
	// BlobDelay makes every GetBlob take at least this long, widening
	// the window the in-flight gauge observes
	BlobDelay time.Duration

	inFlight    int
	maxInFlight int
	blobCalls   map[string]int
}

var _ remote.Client = (*FakeClient)(nil)

// 🏭 NewFakeClient builds a fake serving the given file paths. Each path
// becomes a file entry with content id "sha-<path>" and content
// "content of <path>".
func NewFakeClient(paths ...string) *FakeClient {
	f := &FakeClient{Blobs: map[string][]byte{}}
	for _, p := range paths {
		f.AddFile(p, []byte("content of "+p))
	}
	return f
}

// AddFile appends a file entry with the given content
func (f *FakeClient) AddFile(path string, content []byte) {
	id := "sha-" + path
	f.Tree = append(f.Tree, remote.TreeEntry{
		Path:      path,
		Kind:      remote.KindFile,
		ContentID: id,
		Size:      int64(len(content)),
	})
	if f.Blobs == nil {
		f.Blobs = map[string][]byte{}
	}
	f.Blobs[id] = content
}

// AddDirectory appends a directory entry
func (f *FakeClient) AddDirectory(path string) {
	f.Tree = append(f.Tree, remote.TreeEntry{
		Path: path,
		Kind: remote.KindDirectory,
	})
}

// FailBlob queues errors for a content id; calls consume them in order
func (f *FakeClient) FailBlob(path string, errs ...error) {
	if f.BlobErrs == nil {
		f.BlobErrs = map[string][]error{}
	}
	id := "sha-" + path
	f.BlobErrs[id] = append(f.BlobErrs[id], errs...)
}

func (f *FakeClient) GetTree(ctx context.Context, repo remote.RepositoryRef) ([]remote.TreeEntry, error) {
	if f.TreeErr != nil {
		return nil, f.TreeErr
	}
	out := make([]remote.TreeEntry, len(f.Tree))
	copy(out, f.Tree)
	return out, nil
}

func (f *FakeClient) GetBlob(ctx context.Context, repo remote.RepositoryRef, contentID string) ([]byte, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	if f.blobCalls == nil {
		f.blobCalls = map[string]int{}
	}
	f.blobCalls[contentID]++
	var queued error
	if q := f.BlobErrs[contentID]; len(q) > 0 {
		queued = q[0]
		f.BlobErrs[contentID] = q[1:]
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.BlobDelay > 0 {
		timer := time.NewTimer(f.BlobDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if queued != nil {
		return nil, queued
	}

	content, ok := f.Blobs[contentID]
	if !ok {
		return nil, errors.Errorf("%w: blob %s", remote.ErrNotFound, contentID)
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// MaxInFlight reports the highest number of concurrent GetBlob calls seen
func (f *FakeClient) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// BlobCalls reports how many times a path's blob was requested
func (f *FakeClient) BlobCalls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blobCalls["sha-"+path]
}
