package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/pipeline"
	"github.com/banshee-data/lodexport/internal/lidar/serialize"
	"github.com/banshee-data/lodexport/internal/monitoring"
)

// ErrEmptySource is returned when a bake finds no points in the source.
var ErrEmptySource = fmt.Errorf("%w: source has no points", pipeline.ErrEmptyResult)

// BakeReport describes the textures written for one source.
type BakeReport struct {
	SourceID        string
	Points          int
	Side            int
	PositionTexture string
	ColorTexture    string
}

// BakeSourceTextures packs every point of src, hidden ones included, into a
// texture pair named after the source. Positions are full-local, so the
// textures can be placed with the source's own transform.
func BakeSourceTextures(ctx context.Context, src lidar.Source, assets *serialize.AssetStore) (*BakeReport, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", pipeline.ErrInvalidInput)
	}
	if assets == nil {
		return nil, fmt.Errorf("%w: no asset directory", pipeline.ErrInvalidInput)
	}
	bounds := src.LocalBounds()
	if bounds.IsEmpty() {
		return nil, ErrEmptySource
	}

	cands, err := src.Query(ctx, geometry.BoxVolume(bounds.Expand(1)), false)
	if err != nil {
		return nil, fmt.Errorf("bake %s: %w", src.ID(), err)
	}
	if len(cands) == 0 {
		return nil, ErrEmptySource
	}

	t := src.Transform()
	recs := make([]lidar.PointRecord, len(cands))
	for i, c := range cands {
		recs[i] = lidar.PointRecord{
			World:     t.WorldPoint(c.Position),
			Local:     t.LocalPoint(c.Position),
			Color:     c.Color,
			Intensity: c.Intensity,
			SourceID:  src.ID(),
			Weight:    1,
		}
	}

	raster := serialize.PackRaster(recs, false)
	pos, col, err := assets.SaveRaster(src.ID(), raster)
	if err != nil {
		if errors.Is(err, serialize.ErrEmptyRaster) {
			return nil, ErrEmptySource
		}
		return nil, fmt.Errorf("%w: bake %s into %s: %w", ErrPersistence, src.ID(), assets.Dir(), err)
	}
	monitoring.Logf("[export] baked %s: %d points, %dx%d", src.ID(), raster.Count, raster.Side, raster.Side)
	return &BakeReport{
		SourceID:        src.ID(),
		Points:          raster.Count,
		Side:            raster.Side,
		PositionTexture: pos,
		ColorTexture:    col,
	}, nil
}
