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

package coalesce

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/coalescer/internal/duckdbx"
	"github.com/cardinalhq/coalescer/internal/parquetinfo"
	"github.com/cardinalhq/coalescer/internal/planner"
	"github.com/cardinalhq/coalescer/testhelpers"
)

type otherRecord struct {
	Code string `parquet:"code"`
}

func newTestEngine(t *testing.T) *DuckEngine {
	t.Helper()
	eng, err := NewDuckEngine(filepath.Join(t.TempDir(), databaseFileName), duckdbx.Settings{Threads: 2}, CodecSnappy)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestDuckEngineBulkIngest(t *testing.T) {
	ctx := context.Background()
	paths := testhelpers.WriteRecordFiles(t, t.TempDir(), 3, 50)
	eng := newTestEngine(t)

	res, err := eng.Ingest(ctx, TableName, paths, IngestBulk)
	require.NoError(t, err)
	assert.Equal(t, paths, res.Ingested)
	assert.Empty(t, res.Skipped)

	n, err := eng.RowCount(ctx, TableName)
	require.NoError(t, err)
	assert.Equal(t, int64(150), n)

	size, err := eng.SizeOnDisk(ctx)
	require.NoError(t, err)
	assert.Positive(t, size)
}

func TestDuckEngineBulkIngestSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	paths := testhelpers.WriteRecordFiles(t, dir, 1, 10)
	bad := filepath.Join(dir, "other.parquet")
	testhelpers.WriteParquet(t, bad, []otherRecord{{Code: "x"}})

	eng := newTestEngine(t)
	_, err := eng.Ingest(context.Background(), TableName, append(paths, bad), IngestBulk)
	require.Error(t, err)
}

func TestDuckEngineIncrementalSkipsBadAppend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	paths := testhelpers.WriteRecordFiles(t, dir, 2, 50)
	bad := filepath.Join(dir, "other.parquet")
	testhelpers.WriteParquet(t, bad, []otherRecord{{Code: "x"}})
	last := filepath.Join(dir, "last.parquet")
	testhelpers.WriteParquet(t, last, testhelpers.Records(100, 5))

	eng := newTestEngine(t)
	res, err := eng.Ingest(ctx, TableName, []string{paths[0], bad, paths[1], last}, IngestIncremental)
	require.NoError(t, err)
	assert.Equal(t, []string{paths[0], paths[1], last}, res.Ingested)
	assert.Equal(t, []string{bad}, res.Skipped)
	require.Error(t, res.SkipErr)
	assert.Contains(t, res.SkipErr.Error(), bad)

	n, err := eng.RowCount(ctx, TableName)
	require.NoError(t, err)
	assert.Equal(t, int64(105), n)
}

func TestDuckEngineIncrementalFirstFileFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Ingest(context.Background(), TableName, []string{filepath.Join(t.TempDir(), "missing.parquet")}, IngestIncremental)
	require.Error(t, err)
}

func TestDuckEngineExportRangeSaturates(t *testing.T) {
	ctx := context.Background()
	paths := testhelpers.WriteRecordFiles(t, t.TempDir(), 3, 50)
	eng := newTestEngine(t)
	_, err := eng.Ingest(ctx, TableName, paths, IngestBulk)
	require.NoError(t, err)

	out := t.TempDir()
	tests := []struct {
		name          string
		offset, limit int64
		want          int64
	}{
		{"full", 0, 50, 50},
		{"exact end", 100, 50, 50},
		{"past end", 140, 50, 10},
		{"beyond", 150, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(out, tt.name+".parquet")
			require.NoError(t, eng.ExportRange(ctx, TableName, tt.offset, tt.limit, dest))

			fh, err := parquetinfo.Open(dest)
			require.NoError(t, err)
			defer func() { _ = fh.Close() }()
			assert.Equal(t, tt.want, fh.NumRows())
		})
	}
}

func TestRunWithDuckEngine(t *testing.T) {
	src := t.TempDir()
	testhelpers.WriteRecordFiles(t, src, 4, 100_000)
	dest := filepath.Join(t.TempDir(), "out")

	runner := NewRunner(DuckEngineFactory(duckdbx.Settings{Threads: 2}, CodecZstd), nil)
	res, err := runner.Run(context.Background(), Options{
		SourcePattern: filepath.Join(src, "*.parquet"),
		Destination:   dest,
		TargetSizeMB:  1,
		Mode:          IngestIncremental,
		Verify:        true,
		WorkRoot:      t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(400_000), res.Plan.TotalRows)
	assert.Positive(t, res.MeasuredBytes)
	require.Len(t, res.Files, res.Plan.Len())

	total, err := parquetinfo.CountRows(res.Files)
	require.NoError(t, err)
	assert.Equal(t, int64(400_000), total)

	var want []string
	for _, p := range res.Plan.Partitions {
		want = append(want, p.FileName(planner.NamingRequested, res.Plan.TotalRows, outputExtension))
	}
	sort.Strings(want)
	assert.Equal(t, want, listDir(t, dest))
}
