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

package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/coalescer/internal/discover"
	"github.com/cardinalhq/coalescer/internal/parquetinfo"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats <path>",
		Short: "Display statistics about the parquet files matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runStats(c.OutOrStdout(), args[0])
		},
	}
	rootCmd.AddCommand(cmd)
}

func runStats(out io.Writer, pattern string) error {
	files, err := discover.Discover(pattern)
	if err != nil {
		return err
	}
	s, err := parquetinfo.Summarize(files)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Displaying statistics about %s\n", pattern)
	fmt.Fprintf(out, "files:              %d\n", s.Files)
	fmt.Fprintf(out, "rows:               %d\n", s.Rows)
	fmt.Fprintf(out, "file bytes:         %d (%s)\n", s.FileBytes, humanize.IBytes(uint64(s.FileBytes)))
	fmt.Fprintf(out, "compressed bytes:   %d (%s)\n", s.CompressedBytes, humanize.IBytes(uint64(s.CompressedBytes)))
	fmt.Fprintf(out, "uncompressed bytes: %d (%s)\n", s.UncompressedBytes, humanize.IBytes(uint64(s.UncompressedBytes)))
	return nil
}
