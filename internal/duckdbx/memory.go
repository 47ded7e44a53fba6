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
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownSizeUnit is returned by ParseSize for a suffix outside the
// unit table.
var ErrUnknownSizeUnit = errors.New("unknown size unit")

type returnedSizeStats struct {
	DatabaseName string
	DatabaseSize string
	BlockSize    int64
	TotalBlocks  int64
	UsedBlocks   int64
	FreeBlocks   int64
	WALSize      string
	MemoryUsage  string
	MemoryLimit  string
}

// SizeStats is the storage footprint of one attached database.
type SizeStats struct {
	DatabaseName string
	// DatabaseSize is block_size * total_blocks, in bytes.
	DatabaseSize int64
	BlockSize    int64
	TotalBlocks  int64
	UsedBlocks   int64
	FreeBlocks   int64
	// Formatted is the engine's own human readable rendering.
	Formatted string
}

// DatabaseSize checkpoints the current database so that all ingested data
// lives in its block file, then reports its size.
func DatabaseSize(ctx context.Context, conn *sql.Conn) (SizeStats, error) {
	if _, err := conn.ExecContext(ctx, "CHECKPOINT;"); err != nil {
		return SizeStats{}, fmt.Errorf("checkpoint: %w", err)
	}

	row := conn.QueryRowContext(ctx,
		`SELECT database_name, database_size, block_size, total_blocks, used_blocks, free_blocks, wal_size, memory_usage, memory_limit
		 FROM pragma_database_size()
		 WHERE database_name = current_database()`)

	var stat returnedSizeStats
	if err := row.Scan(&stat.DatabaseName, &stat.DatabaseSize, &stat.BlockSize, &stat.TotalBlocks, &stat.UsedBlocks, &stat.FreeBlocks, &stat.WALSize, &stat.MemoryUsage, &stat.MemoryLimit); err != nil {
		return SizeStats{}, fmt.Errorf("read database size: %w", err)
	}

	ret := SizeStats{
		DatabaseName: stat.DatabaseName,
		BlockSize:    stat.BlockSize,
		TotalBlocks:  stat.TotalBlocks,
		UsedBlocks:   stat.UsedBlocks,
		FreeBlocks:   stat.FreeBlocks,
		Formatted:    stat.DatabaseSize,
	}

	if stat.BlockSize > 0 && stat.TotalBlocks > 0 {
		ret.DatabaseSize = stat.BlockSize * stat.TotalBlocks
		return ret, nil
	}

	// No block accounting (e.g. an in-memory database): fall back to the
	// formatted string.
	size, err := ParseSize(stat.DatabaseSize)
	if err != nil {
		return SizeStats{}, fmt.Errorf("parse database size %q: %w", stat.DatabaseSize, err)
	}
	ret.DatabaseSize = size
	return ret, nil
}

var sizeUnits = map[string]float64{
	"bytes": 1,
	"byte":  1,
	"B":     1,
	"KB":    1000,
	"KiB":   1 << 10,
	"MB":    1000 * 1000,
	"MiB":   1 << 20,
	"GB":    1000 * 1000 * 1000,
	"GiB":   1 << 30,
	"TB":    1000 * 1000 * 1000 * 1000,
	"TiB":   1 << 40,
	"PB":    1000 * 1000 * 1000 * 1000 * 1000,
	"PiB":   1 << 50,
}

// ParseSize parses sizes such as "0 bytes", "1.2 MiB", "512KB" or "3GB"
// into bytes. Units are matched exactly; anything else is an error.
func ParseSize(sizeStr string) (int64, error) {
	s := strings.TrimSpace(sizeStr)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	number, unit := s[:i], strings.TrimSpace(s[i:])
	if number == "" {
		return 0, fmt.Errorf("size %q has no numeric part", sizeStr)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", sizeStr, err)
	}

	if unit == "" {
		unit = "B"
	}
	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("%w %q in %q", ErrUnknownSizeUnit, unit, sizeStr)
	}

	bytes := value * mult
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size %q overflows int64", sizeStr)
	}
	return int64(bytes), nil
}
