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

// Package coalesce rewrites a set of parquet files into files of roughly
// a target size by loading them into a transient DuckDB database and
// exporting row ranges.
package coalesce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/coalescer/internal/discover"
	"github.com/cardinalhq/coalescer/internal/helpers"
	"github.com/cardinalhq/coalescer/internal/parquetinfo"
	"github.com/cardinalhq/coalescer/internal/planner"
	"github.com/cardinalhq/coalescer/internal/steptimer"
)

const (
	// TableName is the working table every input file is loaded into.
	TableName = "ingest"

	outputExtension = "parquet"
	stagingPrefix   = ".coalesce-"

	// DefaultTargetSizeMB is the default size of an output file.
	DefaultTargetSizeMB = 128
)

// ErrVerification is returned when the written files do not hold exactly
// the ingested rows.
var ErrVerification = errors.New("output verification failed")

// Options describes one coalesce run.
type Options struct {
	SourcePattern string
	Destination   string
	TargetSizeMB  int64
	Clean         bool
	Mode          IngestMode
	Naming        planner.NamingMode
	// Verify re-reads every written file and checks the total row count.
	Verify bool
	// WorkRoot is where the temporary work area is created. Empty means
	// the OS temp directory.
	WorkRoot string
}

// Result describes a completed run.
type Result struct {
	RunID         string
	Files         []string
	Plan          planner.Plan
	InputBytes    int64
	MeasuredBytes int64
	Ingest        IngestResult
}

// Runner drives discovery, ingestion, planning and export.
type Runner struct {
	newEngine EngineFactory
	timer     steptimer.Timer
}

// NewRunner returns a Runner that opens its storage engine with
// newEngine. A nil timer disables step timing.
func NewRunner(newEngine EngineFactory, timer steptimer.Timer) *Runner {
	if timer == nil {
		timer = steptimer.Nop()
	}
	return &Runner{newEngine: newEngine, timer: timer}
}

// Run performs one coalesce run. On success the destination holds the
// complete set of output files. On failure it holds none of this run's
// files.
func (r *Runner) Run(ctx context.Context, opts Options) (res Result, err error) {
	if opts.TargetSizeMB <= 0 {
		return Result{}, fmt.Errorf("%w: target size must be positive, got %d MB", planner.ErrInvalidPartitionSize, opts.TargetSizeMB)
	}
	if opts.Mode == "" {
		opts.Mode = IngestBulk
	}
	if opts.Naming == "" {
		opts.Naming = planner.NamingRequested
	}

	res.RunID = uuid.NewString()
	ll := slog.Default().With(slog.String("runID", res.RunID))

	stop := r.timer.Start("discover")
	files, err := discover.Discover(opts.SourcePattern)
	stop()
	if err != nil {
		return res, err
	}
	ll.Info("Discovered input files", slog.Int("count", len(files)), slog.String("pattern", opts.SourcePattern))

	if err := checkInputsOutside(opts.Destination, files); err != nil {
		return res, err
	}
	if err := prepareDestination(opts.Destination, opts.Clean); err != nil {
		return res, err
	}

	stop = r.timer.Start("measure inputs")
	res.InputBytes, err = discover.TotalByteSize(files)
	stop()
	if err != nil {
		return res, err
	}
	ll.Info("Input size",
		slog.Int64("bytes", res.InputBytes),
		slog.String("size", humanize.IBytes(uint64(res.InputBytes))))

	workDir, err := os.MkdirTemp(opts.WorkRoot, "coalescer-")
	if err != nil {
		return res, fmt.Errorf("create work area: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			err = multierror.Append(err, fmt.Errorf("remove work area %s: %w", workDir, rmErr)).ErrorOrNil()
		}
	}()
	ll.Info("Created work area", slog.String("path", workDir))
	warnIfLowOnSpace(ll, workDir, res.InputBytes)

	engine, err := r.newEngine(workDir)
	if err != nil {
		return res, fmt.Errorf("open engine: %w", err)
	}
	defer func() {
		if closeErr := engine.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("close engine: %w", closeErr)).ErrorOrNil()
		}
	}()

	stop = r.timer.Start("ingest")
	res.Ingest, err = engine.Ingest(ctx, TableName, files, opts.Mode)
	stop()
	if err != nil {
		return res, err
	}
	if res.Ingest.SkipErr != nil {
		ll.Warn("Some files were not ingested",
			slog.Int("skipped", len(res.Ingest.Skipped)),
			slog.Any("error", res.Ingest.SkipErr))
	}

	stop = r.timer.Start("count rows")
	totalRows, err := engine.RowCount(ctx, TableName)
	stop()
	if err != nil {
		return res, err
	}
	ll.Info("Ingested rows", slog.Int64("rows", totalRows))

	stop = r.timer.Start("measure database")
	res.MeasuredBytes, err = engine.SizeOnDisk(ctx)
	stop()
	if err != nil {
		return res, fmt.Errorf("measure database size: %w", err)
	}
	ll.Info("Database size",
		slog.Int64("bytes", res.MeasuredBytes),
		slog.String("size", humanize.IBytes(uint64(res.MeasuredBytes))))

	stop = r.timer.Start("plan")
	rowsPerFile, err := planner.ComputeRowsPerFile(res.MeasuredBytes, totalRows, opts.TargetSizeMB)
	if err == nil {
		res.Plan, err = planner.BuildPlan(totalRows, rowsPerFile)
	}
	stop()
	if err != nil {
		return res, err
	}
	ll.Info("Planned partitions",
		slog.Int64("rowsPerFile", rowsPerFile),
		slog.Int("partitions", res.Plan.Len()),
		slog.Int64("targetSizeMB", opts.TargetSizeMB))

	staging := filepath.Join(opts.Destination, stagingPrefix+res.RunID)
	if err := os.Mkdir(staging, 0755); err != nil {
		return res, fmt.Errorf("create staging directory: %w", err)
	}
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(staging)
		}
	}()

	stop = r.timer.Start("export")
	names, err := r.export(ctx, ll, engine, res.Plan, staging, opts.Naming)
	stop()
	if err != nil {
		return res, err
	}

	if opts.Verify {
		stop = r.timer.Start("verify")
		err = verify(staging, names, totalRows)
		stop()
		if err != nil {
			return res, err
		}
	}

	res.Files, err = publish(staging, opts.Destination, names)
	if err != nil {
		return res, err
	}
	published = true

	ll.Info("Coalesce complete",
		slog.Int("files", len(res.Files)),
		slog.String("destination", opts.Destination))
	return res, nil
}

func (r *Runner) export(ctx context.Context, ll *slog.Logger, engine Engine, plan planner.Plan, staging string, naming planner.NamingMode) ([]string, error) {
	names := make([]string, 0, plan.Len())
	for _, p := range plan.Partitions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := p.FileName(naming, plan.TotalRows, outputExtension)
		if err := engine.ExportRange(ctx, TableName, p.Offset, p.Length, filepath.Join(staging, name)); err != nil {
			return nil, err
		}
		ll.Info("Exported partition",
			slog.String("file", name),
			slog.Int("n", p.Index+1),
			slog.Int("of", plan.Len()),
			slog.Int64("rows", p.Actual(plan.TotalRows)))
		names = append(names, name)
	}
	return names, nil
}

func verify(dir string, names []string, totalRows int64) error {
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	n, err := parquetinfo.CountRows(paths)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if n != totalRows {
		return fmt.Errorf("%w: wrote %d rows, dataset has %d", ErrVerification, n, totalRows)
	}
	return nil
}

// warnIfLowOnSpace logs a warning when the work area has less than twice
// the input size available, the rough peak of an uncompressed copy.
func warnIfLowOnSpace(ll *slog.Logger, dir string, inputBytes int64) {
	usage, err := helpers.DiskUsage(dir)
	if err != nil {
		ll.Debug("Could not read disk usage of work area", slog.Any("error", err))
		return
	}
	if !usage.HasRoom(uint64(inputBytes) * 2) {
		ll.Warn("Work area may run out of space",
			slog.String("path", dir),
			slog.String("free", humanize.IBytes(usage.FreeBytes)),
			slog.String("input", humanize.IBytes(uint64(inputBytes))))
	}
}
