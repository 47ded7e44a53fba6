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
	"fmt"
	"strings"
)

// IngestMode selects how input files are loaded into the working table.
type IngestMode string

const (
	// IngestBulk loads every file in one statement. Incompatible schemas
	// fail the whole ingestion.
	IngestBulk IngestMode = "bulk"
	// IngestIncremental creates the table from the first file and appends
	// the rest one at a time. A failed append skips only that file.
	IngestIncremental IngestMode = "incremental"
)

func ParseIngestMode(s string) (IngestMode, error) {
	switch IngestMode(strings.ToLower(s)) {
	case "", IngestBulk:
		return IngestBulk, nil
	case IngestIncremental:
		return IngestIncremental, nil
	default:
		return "", fmt.Errorf("unknown ingest mode %q (want %q or %q)", s, IngestBulk, IngestIncremental)
	}
}

// Codec is the compression codec of exported parquet files.
type Codec string

const (
	CodecSnappy       Codec = "snappy"
	CodecZstd         Codec = "zstd"
	CodecGzip         Codec = "gzip"
	CodecUncompressed Codec = "uncompressed"
)

func ParseCodec(s string) (Codec, error) {
	switch c := Codec(strings.ToLower(s)); c {
	case "":
		return CodecSnappy, nil
	case CodecSnappy, CodecZstd, CodecGzip, CodecUncompressed:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported parquet codec %q", s)
	}
}

func (c Codec) sqlName() string {
	return strings.ToUpper(string(c))
}

// IngestResult reports which files made it into the working table.
type IngestResult struct {
	Ingested []string
	// Skipped lists files whose append failed in incremental mode.
	Skipped []string
	// SkipErr holds the append failures of Skipped, if any.
	SkipErr error
}

// Engine is the storage engine that holds the ingested dataset.
type Engine interface {
	// Ingest loads the rows of paths into a new table.
	Ingest(ctx context.Context, table string, paths []string, mode IngestMode) (IngestResult, error)
	RowCount(ctx context.Context, table string) (int64, error)
	// SizeOnDisk returns the engine's on-disk footprint in bytes.
	SizeOnDisk(ctx context.Context) (int64, error)
	// ExportRange writes rows [offset, offset+limit) of table to dest. A
	// range extending past the last row yields only the rows that exist.
	ExportRange(ctx context.Context, table string, offset, limit int64, dest string) error
	Close() error
}

// EngineFactory opens an Engine whose files live under workDir.
type EngineFactory func(workDir string) (Engine, error)
