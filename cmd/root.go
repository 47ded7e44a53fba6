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
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/coalescer/config"
	"github.com/cardinalhq/coalescer/internal/coalesce"
	"github.com/cardinalhq/coalescer/internal/planner"
	"github.com/cardinalhq/coalescer/internal/steptimer"
)

const serviceName = "coalescer"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coalescer <sourcePath> <destinationPath>",
	Short: "Coalesce parquet files into files of a target size",
	Long: `Load every parquet file matching sourcePath into a transient DuckDB database,
measure it, and write it back out to destinationPath as files of roughly --size MB.

sourcePath is a glob pattern and should be quoted, e.g. '/path/to/input/*.parquet'.
Output files are named after the row range they were exported from, e.g. 0_500000.parquet.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.Load(c.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return withTelemetry(func(ctx context.Context) error {
			return runCoalesce(ctx, cfg, args[0], args[1])
		})
	},
}

func init() {
	f := rootCmd.Flags()
	f.Int64("size", coalesce.DefaultTargetSizeMB, "Target size of each output file in MB")
	f.Bool("clean", false, "Delete existing contents of the destination before writing")
	f.Bool("time", false, "Print the elapsed time of each step to stdout")
	f.String("mode", string(coalesce.IngestBulk), "Ingestion mode: bulk or incremental")
	f.String("codec", string(coalesce.CodecSnappy), "Parquet compression codec: snappy, zstd, gzip or uncompressed")
	f.String("naming", string(planner.NamingRequested), "Output file naming: requested (offset_offset+rowsPerFile) or actual (offset_offset+rowsWritten)")
	f.Bool("verify", false, "Re-read the written files and check that their total row count matches the dataset")
	f.String("work-root", "", "Directory for the temporary work area (default: system temp dir)")
}

func runCoalesce(ctx context.Context, cfg *config.Config, source, destination string) error {
	mode, err := coalesce.ParseIngestMode(cfg.Coalesce.Mode)
	if err != nil {
		return err
	}
	codec, err := coalesce.ParseCodec(cfg.Coalesce.Codec)
	if err != nil {
		return err
	}
	naming, err := planner.ParseNamingMode(cfg.Coalesce.Naming)
	if err != nil {
		return err
	}

	slog.Info("Starting coalesce",
		slog.String("source", source),
		slog.String("destination", destination),
		slog.Int64("sizeMB", cfg.Coalesce.SizeMB),
		slog.Bool("clean", cfg.Coalesce.Clean),
		slog.String("mode", string(mode)),
		slog.String("codec", string(codec)))

	timer := steptimer.New(os.Stdout, cfg.Coalesce.Time)
	runner := coalesce.NewRunner(coalesce.DuckEngineFactory(cfg.DuckDB.Settings(), codec), timer)

	stop := timer.Start("total")
	defer stop()

	_, err = runner.Run(ctx, coalesce.Options{
		SourcePattern: source,
		Destination:   destination,
		TargetSizeMB:  cfg.Coalesce.SizeMB,
		Clean:         cfg.Coalesce.Clean,
		Mode:          mode,
		Naming:        naming,
		Verify:        cfg.Coalesce.Verify,
		WorkRoot:      cfg.Coalesce.WorkRoot,
	})
	return err
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if isInterrupted(err) {
			slog.Warn("coalescer interrupted", slog.Any("error", err))
		} else {
			slog.Error("coalescer failed", slog.Any("error", err))
		}
		os.Exit(1)
	}
}
