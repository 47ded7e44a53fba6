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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDBRequiresPath(t *testing.T) {
	_, err := NewLocalDB(WithSettings(Settings{Threads: 1}))
	require.Error(t, err)
}

func TestLocalDBUserPathIsKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "work.ddb")

	db, err := NewLocalDB(WithLocalDatabasePath(path), WithSettings(Settings{Threads: 1, MemoryLimitMB: 256}))
	require.NoError(t, err)

	ctx := context.Background()
	conn, release, err := db.GetConnection(ctx)
	require.NoError(t, err)
	var threads int64
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT current_setting('threads')`).Scan(&threads))
	assert.Equal(t, int64(1), threads)
	release()

	require.NoError(t, db.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestQuoting(t *testing.T) {
	assert.Equal(t, `'it''s'`, QuoteLiteral("it's"))
	assert.Equal(t, `"ingest"`, QuoteIdent("ingest"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}
