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

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskUsage(t *testing.T) {
	usage, err := DiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, usage.TotalBytes)
	assert.LessOrEqual(t, usage.FreeBytes, usage.TotalBytes)
	assert.Equal(t, usage.TotalBytes-usage.FreeBytes, usage.UsedBytes)
}

func TestDiskUsageMissingPath(t *testing.T) {
	_, err := DiskUsage("/definitely/not/a/real/path")
	require.Error(t, err)
}

func TestHasRoom(t *testing.T) {
	u := FSUsage{TotalBytes: 100, FreeBytes: 40, UsedBytes: 60}
	assert.True(t, u.HasRoom(40))
	assert.False(t, u.HasRoom(41))
}
