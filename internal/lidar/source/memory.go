package source

import (
	"context"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
)

// Memory is a slice-backed source. Its points are never modified after
// construction, so concurrent queries need no locking.
type Memory struct {
	id        string
	transform geometry.SourceTransform
	points    []lidar.StoredPoint
	bounds    geometry.Box
}

// NewMemory copies pts into a new source.
func NewMemory(id string, t geometry.SourceTransform, pts []lidar.StoredPoint) *Memory {
	m := &Memory{
		id:        id,
		transform: t,
		points:    append([]lidar.StoredPoint(nil), pts...),
		bounds:    geometry.EmptyBox(),
	}
	for _, p := range m.points {
		m.bounds = m.bounds.Extend(p.Position)
	}
	return m
}

// NewMemoryCandidates builds a source whose points are all visible.
func NewMemoryCandidates(id string, t geometry.SourceTransform, cands []lidar.Candidate) *Memory {
	pts := make([]lidar.StoredPoint, len(cands))
	for i, c := range cands {
		pts[i] = lidar.StoredPoint{Candidate: c}
	}
	return NewMemory(id, t, pts)
}

func (m *Memory) ID() string                          { return m.id }
func (m *Memory) Transform() geometry.SourceTransform { return m.transform }
func (m *Memory) LocalBounds() geometry.Box           { return m.bounds }

// Len returns the number of stored points.
func (m *Memory) Len() int { return len(m.points) }

// Query returns the stored points inside vol in insertion order.
func (m *Memory) Query(ctx context.Context, vol geometry.ConvexVolume, visibleOnly bool) ([]lidar.Candidate, error) {
	return lidar.SelectInVolume(ctx, m.points, vol, visibleOnly)
}
