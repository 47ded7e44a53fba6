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

// Package steptimer measures the wall clock time of each step of a run.
package steptimer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Timer starts named steps. The returned function stops the step.
type Timer interface {
	Start(step string) func()
}

type stepTimer struct {
	out      io.Writer
	display  bool
	now      func() time.Time
	duration metric.Float64Histogram
}

var _ Timer = (*stepTimer)(nil)

// New returns a Timer that logs and records every step. When display is
// true each step's elapsed time is also printed to out.
func New(out io.Writer, display bool) Timer {
	h, err := otel.Meter("github.com/cardinalhq/coalescer/steptimer").Float64Histogram(
		"coalescer.step.duration",
		metric.WithUnit("s"),
		metric.WithDescription("The duration in seconds of one step of a coalesce run"),
	)
	if err != nil {
		slog.Warn("failed to create step duration histogram", slog.Any("error", err))
	}
	return &stepTimer{
		out:      out,
		display:  display,
		now:      time.Now,
		duration: h,
	}
}

func (t *stepTimer) Start(step string) func() {
	start := t.now()
	return func() {
		elapsed := t.now().Sub(start)
		slog.Debug("step finished", slog.String("step", step), slog.Duration("elapsed", elapsed))
		if t.duration != nil {
			t.duration.Record(context.Background(), elapsed.Seconds(),
				metric.WithAttributes(attribute.String("step", step)))
		}
		if t.display && t.out != nil {
			fmt.Fprintf(t.out, "%s took %s\n", step, elapsed)
		}
	}
}

type nopTimer struct{}

// Nop returns a Timer that does nothing.
func Nop() Timer { return nopTimer{} }

func (nopTimer) Start(string) func() { return func() {} }
