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

package duckdbx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0 bytes", 0},
		{"1 byte", 1},
		{"512", 512},
		{"512B", 512},
		{"1.5 KiB", 1536},
		{"2KB", 2000},
		{"1 MiB", 1 << 20},
		{"1.2 MB", 1_200_000},
		{"3 GiB", 3 << 30},
		{"3GB", 3_000_000_000},
		{"1 TiB", 1 << 40},
		{"2 PB", 2_000_000_000_000_000},
		{"  7 MiB  ", 7 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSizeRejectsUnknownUnits(t *testing.T) {
	for _, in := range []string{"1 mb", "1 kib", "4 XB", "2 M", "1.0 GIGABYTES"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseSize(in)
			require.ErrorIs(t, err, ErrUnknownSizeUnit)
		})
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "MiB", "1.2.3 MiB", "-5 MiB"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseSize(in)
			require.Error(t, err)
		})
	}
}

func TestDatabaseSizeGrowsWithData(t *testing.T) {
	ctx := context.Background()

	db, err := NewLocalDB(WithLocalDatabasePath(filepath.Join(t.TempDir(), "size.ddb")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conn, release, err := db.GetConnection(ctx)
	require.NoError(t, err)
	defer release()

	before, err := DatabaseSize(ctx, conn)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `CREATE TABLE t AS SELECT range AS id, md5(range::VARCHAR) AS v FROM range(200000)`)
	require.NoError(t, err)

	after, err := DatabaseSize(ctx, conn)
	require.NoError(t, err)

	assert.Positive(t, after.BlockSize)
	assert.Equal(t, after.BlockSize*after.TotalBlocks, after.DatabaseSize)
	assert.Greater(t, after.DatabaseSize, before.DatabaseSize)
	assert.NotEmpty(t, after.Formatted)
}
