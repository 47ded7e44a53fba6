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
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/coalescer/internal/duckdbx"
)

const databaseFileName = "ingest_database.ddb"

// DuckEngine is an Engine backed by a DuckDB database file.
type DuckEngine struct {
	db    *duckdbx.LocalDB
	codec Codec
}

var _ Engine = (*DuckEngine)(nil)

// NewDuckEngine opens a DuckDB database at dbPath.
func NewDuckEngine(dbPath string, settings duckdbx.Settings, codec Codec) (*DuckEngine, error) {
	db, err := duckdbx.NewLocalDB(duckdbx.WithLocalDatabasePath(dbPath), duckdbx.WithSettings(settings))
	if err != nil {
		return nil, err
	}
	return &DuckEngine{db: db, codec: codec}, nil
}

// DuckEngineFactory returns an EngineFactory that places the database
// file inside the run's work area.
func DuckEngineFactory(settings duckdbx.Settings, codec Codec) EngineFactory {
	return func(workDir string) (Engine, error) {
		return NewDuckEngine(filepath.Join(workDir, databaseFileName), settings, codec)
	}
}

func (e *DuckEngine) Close() error {
	return e.db.Close()
}

func (e *DuckEngine) Ingest(ctx context.Context, table string, paths []string, mode IngestMode) (IngestResult, error) {
	if len(paths) == 0 {
		return IngestResult{}, fmt.Errorf("ingest: no input files")
	}

	conn, release, err := e.db.GetConnection(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("get connection: %w", err)
	}
	defer release()

	switch mode {
	case IngestBulk:
		if err := appendFiles(ctx, conn, table, paths, true); err != nil {
			return IngestResult{}, fmt.Errorf("bulk ingest of %d files: %w", len(paths), err)
		}
		slog.Info("Ingested files", slog.Int("files", len(paths)), slog.String("mode", string(mode)))
		return IngestResult{Ingested: paths}, nil

	case IngestIncremental:
		return ingestIncremental(ctx, conn, table, paths)

	default:
		return IngestResult{}, fmt.Errorf("unknown ingest mode %q", mode)
	}
}

func ingestIncremental(ctx context.Context, conn *sql.Conn, table string, paths []string) (IngestResult, error) {
	if err := appendFiles(ctx, conn, table, paths[:1], true); err != nil {
		return IngestResult{}, fmt.Errorf("create table from %s: %w", paths[0], err)
	}
	res := IngestResult{Ingested: []string{paths[0]}}
	slog.Info("Ingested file", slog.String("file", paths[0]), slog.Int("n", 1), slog.Int("of", len(paths)))

	var skipErr *multierror.Error
	for i, p := range paths[1:] {
		if err := ctx.Err(); err != nil {
			return IngestResult{}, err
		}
		if err := appendFiles(ctx, conn, table, []string{p}, false); err != nil {
			if ctx.Err() != nil {
				return IngestResult{}, ctx.Err()
			}
			slog.Warn("Skipping file that failed to append",
				slog.String("file", p),
				slog.Any("error", err))
			res.Skipped = append(res.Skipped, p)
			skipErr = multierror.Append(skipErr, fmt.Errorf("%s: %w", p, err))
			continue
		}
		res.Ingested = append(res.Ingested, p)
		slog.Info("Ingested file", slog.String("file", p), slog.Int("n", i+2), slog.Int("of", len(paths)))
	}
	res.SkipErr = skipErr.ErrorOrNil()
	return res, nil
}

// appendFiles is the single loading primitive: it either creates table
// from the union of paths or appends them to an existing table by column
// name.
func appendFiles(ctx context.Context, conn *sql.Conn, table string, paths []string, create bool) error {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = duckdbx.QuoteLiteral(p)
	}
	source := "read_parquet([" + strings.Join(quoted, ", ") + "])"

	var q string
	if create {
		q = fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s;", duckdbx.QuoteIdent(table), source)
	} else {
		q = fmt.Sprintf("INSERT INTO %s BY NAME SELECT * FROM %s;", duckdbx.QuoteIdent(table), source)
	}
	_, err := conn.ExecContext(ctx, q)
	return err
}

func (e *DuckEngine) RowCount(ctx context.Context, table string) (int64, error) {
	conn, release, err := e.db.GetConnection(ctx)
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer release()

	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT count(*) FROM "+duckdbx.QuoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return n, nil
}

func (e *DuckEngine) SizeOnDisk(ctx context.Context) (int64, error) {
	conn, release, err := e.db.GetConnection(ctx)
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer release()

	stat, err := duckdbx.DatabaseSize(ctx, conn)
	if err != nil {
		return 0, err
	}
	duckdbx.RecordSize(ctx, stat)
	slog.Debug("Measured database size",
		slog.String("database", stat.DatabaseName),
		slog.Int64("bytes", stat.DatabaseSize),
		slog.String("formatted", stat.Formatted),
		slog.Int64("blockSize", stat.BlockSize),
		slog.Int64("totalBlocks", stat.TotalBlocks))
	return stat.DatabaseSize, nil
}

func (e *DuckEngine) ExportRange(ctx context.Context, table string, offset, limit int64, dest string) error {
	conn, release, err := e.db.GetConnection(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer release()

	q := fmt.Sprintf("COPY (SELECT * FROM %s LIMIT %d OFFSET %d) TO %s (FORMAT PARQUET, CODEC '%s');",
		duckdbx.QuoteIdent(table), limit, offset, duckdbx.QuoteLiteral(dest), e.codec.sqlName())
	if _, err := conn.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("export rows [%d, %d) to %s: %w", offset, offset+limit, dest, err)
	}
	return nil
}
