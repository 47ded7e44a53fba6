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
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/marcboeker/go-duckdb/v2"
)

// LocalDB is a DuckDB database file used as a transient working store.
// It holds a single connection: all work against it is sequential.
type LocalDB struct {
	dbPath string

	db *sql.DB

	memoryLimitMB int64
	tempDir       string
	threads       int
}

// Settings mirrors config.DuckDBConfig to avoid an import cycle.
type Settings struct {
	MemoryLimitMB int64  // 0 = DuckDB default
	TempDirectory string // spill directory, empty = DuckDB default
	Threads       int    // 0 = GOMAXPROCS
}

type localDBConfig struct {
	dbPath   *string
	settings Settings
}

type LocalDBOption func(*localDBConfig)

// WithLocalDatabasePath places the database file at path. The caller owns
// the file and its directory.
func WithLocalDatabasePath(path string) LocalDBOption {
	return func(cfg *localDBConfig) {
		if path == "" {
			panic("WithLocalDatabasePath: path must not be empty")
		}
		cfg.dbPath = &path
	}
}

func WithSettings(s Settings) LocalDBOption {
	return func(cfg *localDBConfig) { cfg.settings = s }
}

// NewLocalDB opens a file-backed DuckDB database. WithLocalDatabasePath
// is required.
func NewLocalDB(opts ...LocalDBOption) (*LocalDB, error) {
	cfg := &localDBConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.dbPath == nil {
		return nil, errors.New("duckdbx: NewLocalDB requires WithLocalDatabasePath")
	}
	dbPath := *cfg.dbPath

	threads := cfg.settings.Threads
	if threads < 1 {
		threads = runtime.GOMAXPROCS(0)
	}

	l := &LocalDB{
		dbPath:        dbPath,
		memoryLimitMB: cfg.settings.MemoryLimitMB,
		tempDir:       cfg.settings.TempDirectory,
		threads:       threads,
	}

	slog.Info("duckdbx: LocalDB init",
		"dbPath", dbPath,
		"threads", threads,
		"memoryLimitMB", l.memoryLimitMB,
		"tempDirectory", l.tempDir,
	)

	// Important: do not use request ctx inside the init hook.
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		ctx := context.Background()

		// parquet is built in; nothing else may be fetched at runtime.
		_, _ = execer.ExecContext(ctx, "SET autoinstall_known_extensions = false;", nil)
		_, _ = execer.ExecContext(ctx, "SET autoload_known_extensions = false;", nil)

		if l.memoryLimitMB > 0 {
			if _, err := execer.ExecContext(ctx, fmt.Sprintf("SET memory_limit='%dMB';", l.memoryLimitMB), nil); err != nil {
				return fmt.Errorf("set memory_limit: %w", err)
			}
		}
		if l.tempDir != "" {
			if _, err := execer.ExecContext(ctx, fmt.Sprintf("SET temp_directory='%s';", escapeSingle(l.tempDir)), nil); err != nil {
				return fmt.Errorf("set temp_directory: %w", err)
			}
		}
		if _, err := execer.ExecContext(ctx, fmt.Sprintf("PRAGMA threads=%d;", l.threads), nil); err != nil {
			return fmt.Errorf("set threads: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create duckdb connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l.db = db
	return l, nil
}

// Close closes the connection. The database file is left in place.
func (l *LocalDB) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *LocalDB) GetConnection(ctx context.Context) (*sql.Conn, func(), error) {
	c, err := l.db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// escapeSingle doubles single quotes for use inside a SQL string literal.
func escapeSingle(s string) string {
	var result []byte
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			result = append(result, '\'', '\'')
		} else {
			result = append(result, s[i])
		}
	}
	return string(result)
}

// QuoteLiteral returns s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + escapeSingle(s) + "'"
}

// QuoteIdent returns s as a double-quoted SQL identifier.
func QuoteIdent(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}
