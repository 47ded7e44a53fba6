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

package coalesce

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrDestinationConflict is returned when the destination already holds
// files and cleaning was not requested.
var ErrDestinationConflict = errors.New("destination is not empty")

// checkInputsOutside returns ErrDestinationConflict when any input lives
// inside dir. Cleaning or publishing there would touch the inputs.
func checkInputsOutside(dir string, inputs []string) error {
	root := resolvePath(dir)
	for _, in := range inputs {
		rel, err := filepath.Rel(root, resolvePath(in))
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: input %s is inside destination %s", ErrDestinationConflict, in, dir)
		}
	}
	return nil
}

func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs
	}
	return filepath.Join(resolvePath(parent), filepath.Base(abs))
}

// prepareDestination makes sure dir exists and is empty. Existing content
// is removed only when clean is set; otherwise it is left untouched and
// ErrDestinationConflict is returned.
func prepareDestination(dir string, clean bool) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create destination %s: %w", dir, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("stat destination %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("destination %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read destination %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil
	}
	if !clean {
		return fmt.Errorf("%w: %s holds %d entries and clean was not requested", ErrDestinationConflict, dir, len(entries))
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("clean destination %s: %w", dir, err)
		}
	}
	return nil
}

// publish moves every staged file into dir and removes the staging
// directory. Staging lives inside dir, so each move is a rename on the
// same filesystem. If a move fails, the files already moved are taken
// back out of dir.
func publish(staging, dir string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		dst := filepath.Join(dir, name)
		if err := os.Rename(filepath.Join(staging, name), dst); err != nil {
			pubErr := fmt.Errorf("publish %s: %w", name, err)
			return nil, multierror.Append(pubErr, unpublish(staging, out)).ErrorOrNil()
		}
		out = append(out, dst)
	}
	if err := os.Remove(staging); err != nil {
		slog.Warn("Could not remove staging directory",
			slog.String("path", staging),
			slog.Any("error", err))
	}
	return out, nil
}

// unpublish moves published files back into staging, removing any that
// cannot be moved.
func unpublish(staging string, published []string) error {
	var errs *multierror.Error
	for _, p := range published {
		if err := os.Rename(p, filepath.Join(staging, filepath.Base(p))); err == nil {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierror.Append(errs, fmt.Errorf("roll back %s: %w", p, err))
		}
	}
	return errs.ErrorOrNil()
}
