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

// Package planner decides how the rows of an ingested dataset are sliced
// into output files of roughly a target size.
package planner

import (
	"errors"
	"fmt"
	"math"
)

const (
	bytesPerMB     = 1024 * 1024
	maxRowsPerFile = math.MaxInt64 / 2
)

var (
	// ErrInvalidPartitionSize is returned when the rows per output file is
	// not a positive number, either because it was supplied that way or
	// because a single row is larger than the target file size.
	ErrInvalidPartitionSize = errors.New("invalid partition size")

	// ErrEmptyDataset is returned when the dataset has no rows. There is
	// no meaningful bytes-per-row estimate for an empty dataset.
	ErrEmptyDataset = errors.New("dataset has no rows")
)

// ComputeRowsPerFile estimates how many rows fit into a file of
// targetFileSizeMB megabytes, given the measured size of the dataset and
// the number of rows it holds.
func ComputeRowsPerFile(datasetByteSize, totalRows, targetFileSizeMB int64) (int64, error) {
	if totalRows == 0 {
		return 0, ErrEmptyDataset
	}
	if totalRows < 0 {
		return 0, fmt.Errorf("%w: negative row count %d", ErrInvalidPartitionSize, totalRows)
	}
	if targetFileSizeMB <= 0 {
		return 0, fmt.Errorf("%w: target file size must be positive, got %d MB", ErrInvalidPartitionSize, targetFileSizeMB)
	}
	if datasetByteSize < 0 {
		return 0, fmt.Errorf("%w: negative dataset size %d", ErrInvalidPartitionSize, datasetByteSize)
	}
	if datasetByteSize == 0 {
		// Nothing measurable on disk, so everything fits in one file.
		return totalRows, nil
	}

	bytesPerRow := float64(datasetByteSize) / float64(totalRows)
	targetFileSizeBytes := float64(targetFileSizeMB) * bytesPerMB
	rowsPerFile := math.Floor(targetFileSizeBytes / bytesPerRow)

	if rowsPerFile < 1 {
		return 0, fmt.Errorf("%w: a row averages %.0f bytes, more than the %d MB target",
			ErrInvalidPartitionSize, bytesPerRow, targetFileSizeMB)
	}
	// Keeps Offset+Length of any partition representable.
	if rowsPerFile > maxRowsPerFile {
		return maxRowsPerFile, nil
	}
	return int64(rowsPerFile), nil
}
