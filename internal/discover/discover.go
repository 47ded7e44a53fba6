// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package discover expands an input glob into the list of files to coalesce.
package discover

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v2"
)

var (
	// ErrNoFilesFound is returned when a pattern matches no regular files.
	ErrNoFilesFound = errors.New("no files found")

	// ErrFileAccess is returned when an input file cannot be measured.
	ErrFileAccess = errors.New("file access failed")
)

// Discover resolves pattern against the filesystem and returns every
// matching regular file. Callers must not rely on the order of the result.
func Discover(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFileAccess, m, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, m)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNoFilesFound, pattern)
	}
	return files, nil
}

// TotalByteSize returns the combined size of paths in bytes. Every file
// is opened, so one that exists but cannot be read fails here with
// ErrFileAccess.
func TotalByteSize(paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		size, err := readableSize(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrFileAccess, p, err)
		}
		total += size
	}
	return total, nil
}

func readableSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
