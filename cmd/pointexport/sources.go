package main

import (
	"context"
	"fmt"

	"github.com/banshee-data/lodexport/internal/config"
	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/source"
	"github.com/banshee-data/lodexport/internal/lidar/storage/sqlite"
)

// openSources resolves the configured sources in file order. store may be
// nil when no source reads from it.
func openSources(ctx context.Context, cfg *config.ExportConfig, store *sqlite.Store) ([]lidar.Source, error) {
	out := make([]lidar.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch {
		case sc.Store:
			if store == nil {
				return nil, fmt.Errorf("source %s: stored source needs -store", sc.ID)
			}
			src, err := store.Source(ctx, sc.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, src)
		default:
			src, err := source.OpenLAS(sc.ID, sc.LAS, sc.Transform(), sc.LASScale())
			if err != nil {
				return nil, err
			}
			out = append(out, src)
		}
	}
	return out, nil
}
