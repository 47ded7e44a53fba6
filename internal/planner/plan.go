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

package planner

import (
	"fmt"
	"strconv"
)

// NamingMode selects how output file names describe their row range.
type NamingMode string

const (
	// NamingRequested names a file after the range requested from the
	// export step, so the final file of an inexact plan claims more rows
	// than it holds.
	NamingRequested NamingMode = "requested"
	// NamingActual names a file after the rows it actually contains.
	NamingActual NamingMode = "actual"
)

// ParseNamingMode validates a naming mode string. Empty means requested.
func ParseNamingMode(s string) (NamingMode, error) {
	switch NamingMode(s) {
	case "", NamingRequested:
		return NamingRequested, nil
	case NamingActual:
		return NamingActual, nil
	default:
		return "", fmt.Errorf("unknown naming mode %q (want %q or %q)", s, NamingRequested, NamingActual)
	}
}

// Partition is one contiguous row range destined for one output file.
type Partition struct {
	Index  int
	Offset int64
	// Length is the number of rows requested from the export step. It is
	// always the plan's rows per file, even for the final partition.
	Length int64
}

// End returns the exclusive end of the requested range.
func (p Partition) End() int64 {
	return p.Offset + p.Length
}

// Actual returns the number of rows an export of this partition yields
// once the request saturates at the end of a dataset of totalRows rows.
func (p Partition) Actual(totalRows int64) int64 {
	remaining := totalRows - p.Offset
	if remaining <= 0 {
		return 0
	}
	return min(p.Length, remaining)
}

// FileName returns the output file name for this partition.
func (p Partition) FileName(naming NamingMode, totalRows int64, ext string) string {
	end := p.End()
	if naming == NamingActual {
		end = p.Offset + p.Actual(totalRows)
	}
	return strconv.FormatInt(p.Offset, 10) + "_" + strconv.FormatInt(end, 10) + "." + ext
}

// Plan is an ordered, gap-free sequence of partitions covering
// [0, TotalRows).
type Plan struct {
	TotalRows   int64
	RowsPerFile int64
	Partitions  []Partition
}

// BuildPlan slices totalRows into partitions of rowsPerFile rows each.
func BuildPlan(totalRows, rowsPerFile int64) (Plan, error) {
	if rowsPerFile <= 0 {
		return Plan{}, fmt.Errorf("%w: rows per file must be positive, got %d", ErrInvalidPartitionSize, rowsPerFile)
	}
	if totalRows < 0 {
		return Plan{}, fmt.Errorf("%w: negative row count %d", ErrInvalidPartitionSize, totalRows)
	}

	count := totalRows / rowsPerFile
	if totalRows%rowsPerFile != 0 {
		count++
	}

	plan := Plan{
		TotalRows:   totalRows,
		RowsPerFile: rowsPerFile,
		Partitions:  make([]Partition, 0, count),
	}
	for offset := int64(0); offset < totalRows; offset += rowsPerFile {
		plan.Partitions = append(plan.Partitions, Partition{
			Index:  len(plan.Partitions),
			Offset: offset,
			Length: rowsPerFile,
		})
	}
	return plan, nil
}

// Len returns the number of partitions.
func (p Plan) Len() int {
	return len(p.Partitions)
}

// RequestedRows is the sum of requested lengths. It exceeds TotalRows
// whenever TotalRows is not a multiple of RowsPerFile.
func (p Plan) RequestedRows() int64 {
	var n int64
	for _, part := range p.Partitions {
		n += part.Length
	}
	return n
}

// ExportedRows is the sum of rows actually written after saturation.
func (p Plan) ExportedRows() int64 {
	var n int64
	for _, part := range p.Partitions {
		n += part.Actual(p.TotalRows)
	}
	return n
}
