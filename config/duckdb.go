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

package config

import (
	"github.com/cardinalhq/coalescer/internal/duckdbx"
)

// DuckDBConfig holds DuckDB-specific configuration
type DuckDBConfig struct {
	MemoryLimit   int64  `mapstructure:"memory_limit"`   // Memory limit in MB (0 = unlimited)
	TempDirectory string `mapstructure:"temp_directory"` // Directory for spill files
	Threads       int    `mapstructure:"threads"`        // 0 = GOMAXPROCS
}

// DefaultDuckDBConfig returns default DuckDB configuration
func DefaultDuckDBConfig() DuckDBConfig {
	return DuckDBConfig{}
}

// Settings converts the configuration for duckdbx.
func (c DuckDBConfig) Settings() duckdbx.Settings {
	return duckdbx.Settings{
		MemoryLimitMB: c.MemoryLimit,
		TempDirectory: c.TempDirectory,
		Threads:       c.Threads,
	}
}
