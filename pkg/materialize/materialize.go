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

// Package materialize writes fetched content to local storage.
package materialize

import (
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// 🗄️ Writer materializes files under a fixed destination root
type Writer struct {
	root string
}

// 🏭 NewWriter creates a writer rooted at root. The root itself is
// created on the first write.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Root returns the destination root path
func (w *Writer) Root() string {
	return w.root
}

// 📝 Write stores content at relativePath under the root, creating any
// missing parent directories. An existing file at that path is
// overwritten; writes go through a temp file and rename so a crashed
// write never leaves a half-written file behind.
func (w *Writer) Write(relativePath string, content []byte) (int, error) {
	if !filepath.IsLocal(relativePath) {
		return 0, errors.Errorf("relative path %q escapes destination root", relativePath)
	}

	target := filepath.Join(w.root, filepath.FromSlash(relativePath))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, errors.Errorf("creating parent directories: %w", err)
	}

	// a unique temp name per write; a fixed suffix would collide when the
	// repository itself ships a file named target+".tmp"
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-")
	if err != nil {
		return 0, errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return 0, errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return 0, errors.Errorf("setting temp file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return 0, errors.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return 0, errors.Errorf("renaming temp file: %w", err)
	}

	return len(content), nil
}
