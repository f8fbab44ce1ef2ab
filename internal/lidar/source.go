package lidar

import (
	"context"

	"github.com/banshee-data/lodexport/internal/lidar/geometry"
)

// Source is a point storage backend that can answer convex-volume queries in
// its own stored frame. Implementations must be safe for concurrent Query
// calls and must return identical results for identical inputs, in a stable
// order, so repeated exports of a static scene are reproducible.
type Source interface {
	// ID identifies the source in records, logs and asset names.
	ID() string
	// Transform maps stored coordinates to world space.
	Transform() geometry.SourceTransform
	// LocalBounds is the box around every stored coordinate.
	LocalBounds() geometry.Box
	// Query returns the points inside vol, which is expressed in the stored
	// frame. visibleOnly asks the backend to skip points it marks hidden.
	Query(ctx context.Context, vol geometry.ConvexVolume, visibleOnly bool) ([]Candidate, error)
}

// WorldBounds returns the world-space box around a source.
func WorldBounds(s Source) geometry.Box {
	return s.Transform().WorldBounds(s.LocalBounds())
}

// StoredPoint is a point as a backend holds it.
type StoredPoint struct {
	Candidate
	Hidden bool
}

// SelectInVolume returns the candidates of pts inside vol, in input order.
// Backends that keep points in memory, or that prefilter in storage, share
// it for the exact plane test.
func SelectInVolume(ctx context.Context, pts []StoredPoint, vol geometry.ConvexVolume, visibleOnly bool) ([]Candidate, error) {
	var out []Candidate
	for i, p := range pts {
		if i&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if visibleOnly && p.Hidden {
			continue
		}
		if vol.Contains(p.Position) {
			out = append(out, p.Candidate)
		}
	}
	return out, nil
}
