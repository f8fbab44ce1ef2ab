package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/source"
	"github.com/banshee-data/lodexport/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lodexport/internal/units"
)

type sourceFlags struct {
	LAS   string
	Units string
	DB    string
	ID    string
}

// openSource opens a LAS file or a stored source. The returned func
// releases the store, if one was opened.
func openSource(ctx context.Context, f sourceFlags) (lidar.Source, func(), error) {
	nop := func() {}
	switch {
	case f.LAS != "" && f.DB != "":
		return nil, nop, errors.New("use either -las or -db, not both")
	case f.LAS != "":
		if !units.IsValid(f.Units) {
			return nil, nop, errors.New("units must be one of " + units.GetValidUnitsString())
		}
		id := f.ID
		if id == "" {
			id = strings.TrimSuffix(filepath.Base(f.LAS), filepath.Ext(f.LAS))
		}
		src, err := source.OpenLAS(id, f.LAS, geometry.IdentityTransform(), units.CentimetresPer(f.Units))
		if err != nil {
			return nil, nop, err
		}
		return src, nop, nil
	case f.DB != "":
		if f.ID == "" {
			return nil, nop, errors.New("-id is required with -db")
		}
		store, err := sqlite.Open(f.DB)
		if err != nil {
			return nil, nop, err
		}
		src, err := store.Source(ctx, f.ID)
		if err != nil {
			store.Close()
			return nil, nop, err
		}
		return src, func() { store.Close() }, nil
	}
	return nil, nop, errors.New("one of -las or -db is required")
}
