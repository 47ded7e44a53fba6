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
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/cardinalhq/coalescer/duckdbx")

// RecordSize publishes the measured footprint of the working database.
func RecordSize(ctx context.Context, stat SizeStats) {
	dbSizeGauge, err := meter.Int64Gauge("coalescer.duckdb.database_size",
		metric.WithDescription("DuckDB database size after ingestion"),
		metric.WithUnit("By"),
	)
	if err != nil {
		slog.Error("failed to create database_size metric", "error", err)
		return
	}

	totalBlocksGauge, err := meter.Int64Gauge("coalescer.duckdb.total_blocks",
		metric.WithDescription("DuckDB total blocks after ingestion"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("failed to create total_blocks metric", "error", err)
		return
	}

	attr := metric.WithAttributeSet(attribute.NewSet(
		attribute.String("database_name", stat.DatabaseName),
		attribute.String("database_type", "duckdb"),
	))
	dbSizeGauge.Record(ctx, stat.DatabaseSize, attr)
	totalBlocksGauge.Record(ctx, stat.TotalBlocks, attr)
}
