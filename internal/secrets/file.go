// Copyright 2025 Tom Barlow
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

package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the default limit for file-based secrets (64KB).
const MaxFileSize = 64 * 1024

// FileBackend reads secrets from files.
//
// Security checks:
//   - Path must be absolute
//   - Path must be under an allowed directory, when any are configured
//   - Path must not be a symlink unless FollowSymlinks is set
//   - File size must be within MaxSize
type FileBackend struct {
	// AllowedDirs restricts which directories may be read.
	// Empty allows any absolute path.
	AllowedDirs []string

	// FollowSymlinks permits symlinked secret files (e.g., Kubernetes secret mounts).
	FollowSymlinks bool

	// MaxSize defaults to MaxFileSize.
	MaxSize int64
}

// NewFileBackend creates a file backend restricted to allowedDirs.
func NewFileBackend(allowedDirs ...string) *FileBackend {
	return &FileBackend{AllowedDirs: allowedDirs}
}

// Scheme returns "file".
func (f *FileBackend) Scheme() string {
	return "file"
}

// Available always returns true.
func (f *FileBackend) Available() bool {
	return true
}

// Get returns the contents of the file at path with trailing whitespace trimmed.
func (f *FileBackend) Get(ctx context.Context, path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: file path must be absolute: %s", ErrInvalidReference, path)
	}
	path = filepath.Clean(path)

	if !f.isAllowed(path) {
		return "", fmt.Errorf("file %s is outside the allowed directories", path)
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if !f.FollowSymlinks {
			return "", fmt.Errorf("secret file %s is a symlink", path)
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve symlink: %w", err)
		}
		if !f.isAllowed(resolved) {
			return "", fmt.Errorf("symlink target %s is outside the allowed directories", resolved)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open secret file: %w", err)
	}
	defer file.Close()

	maxSize := f.MaxSize
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("secret file %s exceeds %d bytes", path, maxSize)
	}

	value := strings.TrimRight(string(data), " \t\r\n")
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrSecretNotFound, path)
	}
	return value, nil
}

func (f *FileBackend) isAllowed(path string) bool {
	if len(f.AllowedDirs) == 0 {
		return true
	}
	for _, dir := range f.AllowedDirs {
		dir = filepath.Clean(dir)
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
