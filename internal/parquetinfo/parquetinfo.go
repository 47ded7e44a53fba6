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

// Package parquetinfo reads parquet footers to report row counts, sizes
// and schemas without loading any row data.
package parquetinfo

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

type FileHandle struct {
	File        *os.File
	Size        int64
	Schema      *parquet.Schema
	ParquetFile *parquet.File
}

func (fh *FileHandle) Close() error {
	return fh.File.Close()
}

// NumRows returns the row count recorded in the file footer.
func (fh *FileHandle) NumRows() int64 {
	return fh.ParquetFile.NumRows()
}

// Open opens filename and parses its parquet footer.
func Open(filename string) (*FileHandle, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size(), parquet.SkipPageIndex(true), parquet.SkipBloomFilters(true))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet file %s: %w", filename, err)
	}

	return &FileHandle{
		File:        f,
		Size:        stat.Size(),
		Schema:      pf.Schema(),
		ParquetFile: pf,
	}, nil
}

// CountRows returns the total number of rows across paths.
func CountRows(paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		fh, err := Open(p)
		if err != nil {
			return 0, err
		}
		total += fh.NumRows()
		_ = fh.Close()
	}
	return total, nil
}

// Summary describes a set of parquet files.
type Summary struct {
	Files             int
	Rows              int64
	FileBytes         int64
	CompressedBytes   int64
	UncompressedBytes int64
}

// Summarize aggregates footer statistics of paths.
func Summarize(paths []string) (Summary, error) {
	var s Summary
	for _, p := range paths {
		fh, err := Open(p)
		if err != nil {
			return Summary{}, err
		}
		s.Files++
		s.Rows += fh.NumRows()
		s.FileBytes += fh.Size
		for _, rg := range fh.ParquetFile.Metadata().RowGroups {
			for _, col := range rg.Columns {
				s.CompressedBytes += col.MetaData.TotalCompressedSize
				s.UncompressedBytes += col.MetaData.TotalUncompressedSize
			}
		}
		_ = fh.Close()
	}
	return s, nil
}
