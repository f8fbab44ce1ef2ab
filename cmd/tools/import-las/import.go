package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/source"
	"github.com/banshee-data/lodexport/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lodexport/internal/monitoring"
	"github.com/banshee-data/lodexport/internal/units"
)

// ImportOptions describes one LAS import.
type ImportOptions struct {
	ID        string
	LASPath   string
	Units     string
	Transform geometry.SourceTransform
}

// RunImport reads the LAS file and stores its points under opts.ID, or the
// file name without extension when ID is empty.
func RunImport(ctx context.Context, store *sqlite.Store, opts ImportOptions) (int, error) {
	if !units.IsValid(opts.Units) {
		return 0, fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), opts.Units)
	}
	id := opts.ID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(opts.LASPath), filepath.Ext(opts.LASPath))
	}
	las, err := source.OpenLAS(id, opts.LASPath, opts.Transform, units.CentimetresPer(opts.Units))
	if err != nil {
		return 0, err
	}
	pts, err := las.Points()
	if err != nil {
		return 0, err
	}
	if n := las.NumPoints(); n != len(pts) {
		monitoring.Logf("import %s: header declares %d points, read %d", id, n, len(pts))
	}
	if err := store.ImportSource(ctx, id, opts.Transform, pts); err != nil {
		return 0, err
	}
	return len(pts), nil
}

func parsePlacement(location, rotation, scale, offset string) (geometry.SourceTransform, error) {
	loc, err := parseVec3(location)
	if err != nil {
		return geometry.SourceTransform{}, fmt.Errorf("location: %w", err)
	}
	rot, err := parseVec3(rotation)
	if err != nil {
		return geometry.SourceTransform{}, fmt.Errorf("rotation: %w", err)
	}
	sc, err := parseVec3(scale)
	if err != nil {
		return geometry.SourceTransform{}, fmt.Errorf("scale: %w", err)
	}
	off, err := parseVec3(offset)
	if err != nil {
		return geometry.SourceTransform{}, fmt.Errorf("offset: %w", err)
	}
	t := geometry.NewSourceTransform(geometry.Rotator{Yaw: rot.X, Pitch: rot.Y, Roll: rot.Z}, sc, loc, off)
	if err := t.Validate(); err != nil {
		return geometry.SourceTransform{}, err
	}
	return t, nil
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		v[i] = f
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}
