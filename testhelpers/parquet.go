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

package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
)

// Record is the row type of the generated parquet fixtures.
type Record struct {
	ID    int64   `parquet:"id"`
	Name  string  `parquet:"name"`
	Value float64 `parquet:"value"`
}

// Records returns n records with ids starting at start.
func Records(start, n int64) []Record {
	rows := make([]Record, 0, n)
	for i := start; i < start+n; i++ {
		rows = append(rows, Record{
			ID:    i,
			Name:  fmt.Sprintf("row-%08d", i),
			Value: float64(i) * 0.5,
		})
	}
	return rows
}

// WriteParquet writes rows to path as a parquet file, creating parent
// directories as needed.
func WriteParquet[T any](t *testing.T, path string, rows []T) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	pw := parquet.NewGenericWriter[T](f)
	_, err = pw.Write(rows)
	require.NoError(t, err)
	require.NoError(t, pw.Close())
}

// WriteRecordFiles writes files parquet files of rowsPerFile records each
// into dir and returns their paths. Ids are unique across files.
func WriteRecordFiles(t *testing.T, dir string, files int, rowsPerFile int64) []string {
	t.Helper()

	paths := make([]string, 0, files)
	for i := 0; i < files; i++ {
		p := filepath.Join(dir, fmt.Sprintf("part-%03d.parquet", i))
		WriteParquet(t, p, Records(int64(i)*rowsPerFile, rowsPerFile))
		paths = append(paths, p)
	}
	return paths
}
