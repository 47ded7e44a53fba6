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

package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.parquet"), 10)
	writeFile(t, filepath.Join(dir, "b.parquet"), 20)
	writeFile(t, filepath.Join(dir, "notes.txt"), 5)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.parquet"), 0755))

	files, err := Discover(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.parquet"),
		filepath.Join(dir, "b.parquet"),
	}, files)
}

func TestDiscoverRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2025", "01", "a.parquet"), 1)
	writeFile(t, filepath.Join(dir, "2025", "02", "b.parquet"), 1)

	files, err := Discover(filepath.Join(dir, "**", "*.parquet"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDiscoverNoMatches(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(filepath.Join(dir, "*.parquet"))
	require.ErrorIs(t, err, ErrNoFilesFound)
}

func TestDiscoverOnlyDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "x.parquet"), 0755))
	_, err := Discover(filepath.Join(dir, "*.parquet"))
	require.ErrorIs(t, err, ErrNoFilesFound)
}

func TestTotalByteSize(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, 100)
	writeFile(t, b, 28)

	total, err := TotalByteSize([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, int64(128), total)
}

func TestTotalByteSizeMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := TotalByteSize([]string{filepath.Join(dir, "missing")})
	require.ErrorIs(t, err, ErrFileAccess)
}

func TestTotalByteSizeUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can open files regardless of mode")
	}
	dir := t.TempDir()
	p := filepath.Join(dir, "locked.parquet")
	writeFile(t, p, 10)
	require.NoError(t, os.Chmod(p, 0))
	t.Cleanup(func() { _ = os.Chmod(p, 0644) })

	_, err := TotalByteSize([]string{p})
	require.ErrorIs(t, err, ErrFileAccess)
}
