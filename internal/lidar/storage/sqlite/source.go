package sqlite

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
)

// PointSource is a lidar.Source backed by the source_points table.
type PointSource struct {
	store *Store
	info  SourceInfo
}

var _ lidar.Source = (*PointSource)(nil)

func (p *PointSource) ID() string                          { return p.info.ID }
func (p *PointSource) Transform() geometry.SourceTransform { return p.info.Transform }
func (p *PointSource) LocalBounds() geometry.Box           { return p.info.Bounds }

// Info returns the catalogue row the source was loaded from.
func (p *PointSource) Info() SourceInfo { return p.info }

// Query returns the stored points inside vol in import order.
func (p *PointSource) Query(ctx context.Context, vol geometry.ConvexVolume, visibleOnly bool) ([]lidar.Candidate, error) {
	if p.info.PointCount == 0 {
		return nil, nil
	}
	q := `SELECT x, y, z, r, g, b, intensity, hidden FROM source_points WHERE source_id = ?`
	args := []interface{}{p.info.ID}
	if box, ok := prefilterBox(vol); ok {
		q += ` AND x BETWEEN ? AND ? AND y BETWEEN ? AND ? AND z BETWEEN ? AND ?`
		args = append(args, box.Min.X, box.Max.X, box.Min.Y, box.Max.Y, box.Min.Z, box.Max.Z)
	}
	if visibleOnly {
		q += ` AND hidden = 0`
	}
	q += ` ORDER BY seq`

	rows, err := p.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query source %s: %w", p.info.ID, err)
	}
	defer rows.Close()

	var pts []lidar.StoredPoint
	for rows.Next() {
		var sp lidar.StoredPoint
		if err := rows.Scan(
			&sp.Position.X, &sp.Position.Y, &sp.Position.Z,
			&sp.Color.R, &sp.Color.G, &sp.Color.B, &sp.Intensity, &sp.Hidden,
		); err != nil {
			return nil, fmt.Errorf("query source %s: %w", p.info.ID, err)
		}
		pts = append(pts, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query source %s: %w", p.info.ID, err)
	}
	return lidar.SelectInVolume(ctx, pts, vol, visibleOnly)
}

// prefilterBox returns the box around vol, padded against rounding in the
// vertex solve so the exact test never sees fewer rows than it accepts.
func prefilterBox(vol geometry.ConvexVolume) (geometry.Box, bool) {
	box, ok := vol.Bounds()
	if !ok || box.IsEmpty() {
		return box, false
	}
	s := box.Size()
	extent := math.Max(1, math.Max(math.Abs(s.X), math.Max(math.Abs(s.Y), math.Abs(s.Z))))
	for _, v := range []float64{box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return box, false
		}
		extent = math.Max(extent, math.Abs(v))
	}
	return box.Expand(extent * 1e-9), true
}
