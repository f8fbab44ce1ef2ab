package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/lod"
)

// VisibilityStats summarises a VisibleSources call. Total and Predicted
// are only filled when LOD params were given.
type VisibilityStats struct {
	Considered int
	Visible    int
	Total      int // points inside the frustum across visible sources
	Predicted  int // points that would survive LOD
}

type visibility struct {
	visible          bool
	total, predicted int
}

// VisibleSources returns the sources whose world bounds intersect the
// frustum of cam (far replaced by far when > 0), in input order. With
// params set, each visible source is also queried to count frustum points
// and predict the LOD survivors without building records. Sources are
// checked concurrently, one task per source, as in Run.
func VisibleSources(ctx context.Context, sources []lidar.Source, cam *geometry.CameraView, far float64, params *lod.Params, visibleOnly bool) ([]lidar.Source, VisibilityStats, error) {
	var stats VisibilityStats
	if len(sources) == 0 {
		return nil, stats, ErrNoSources
	}
	if cam == nil {
		return nil, stats, ErrNoCamera
	}
	for i, s := range sources {
		if s == nil {
			return nil, stats, invalid("source %d is nil", i)
		}
	}
	if params != nil {
		if err := params.Validate(); err != nil {
			return nil, stats, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	world, err := worldFrustum(*cam, far)
	if err != nil {
		return nil, stats, err
	}

	results := make([]visibility, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Options{}.workers())
	for i, src := range sources {
		i, src := i, src // per-iteration copy; go directive is 1.21
		g.Go(func() error {
			v, err := checkVisibility(gctx, src, world, cam.Position, params, visibleOnly)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.ID(), err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var visible []lidar.Source
	for i, v := range results {
		if !v.visible {
			continue
		}
		visible = append(visible, sources[i])
		stats.Total += v.total
		stats.Predicted += v.predicted
	}
	stats.Considered = len(sources)
	stats.Visible = len(visible)
	diagf("visible sources: %d of %d (points=%d predicted=%d)", stats.Visible, stats.Considered, stats.Total, stats.Predicted)
	return visible, stats, nil
}

func checkVisibility(ctx context.Context, src lidar.Source, world geometry.ConvexVolume, camPos r3.Vec, params *lod.Params, visibleOnly bool) (visibility, error) {
	if err := ctx.Err(); err != nil {
		return visibility{}, err
	}
	if !visibleBounds(src, world) {
		return visibility{}, nil
	}
	v := visibility{visible: true}
	if params == nil {
		return v, nil
	}

	t := src.Transform()
	local, err := t.ToLocal(world)
	if err != nil {
		return visibility{}, err
	}
	cands, err := src.Query(ctx, local, visibleOnly)
	if err != nil {
		return visibility{}, fmt.Errorf("query: %w", err)
	}
	dists := make([]float64, len(cands))
	for i, c := range cands {
		dists[i] = r3.Norm(r3.Sub(t.WorldPoint(c.Position), camPos))
	}
	v.total = len(cands)
	v.predicted = lod.Predict(dists, *params)
	return v, nil
}
