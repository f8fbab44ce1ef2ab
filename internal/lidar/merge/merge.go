package merge

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
)

// Merge folds every record into the first earlier cluster whose anchor lies
// within mergeDistance (world space, inclusive). A cluster's anchor is the
// position of the record that opened it; absorbed records update the
// cluster to the weighted mean of everything it represents.
//
// The pass repeats on its own output until a pass absorbs nothing. The
// input slice is not modified. A non-positive distance returns a copy.
func Merge(points []lidar.PointRecord, mergeDistance float64) []lidar.PointRecord {
	cur := append([]lidar.PointRecord(nil), points...)
	if mergeDistance <= 0 || math.IsNaN(mergeDistance) {
		return cur
	}
	for {
		next, absorbed := mergePass(cur, mergeDistance)
		cur = next
		if absorbed == 0 {
			return cur
		}
	}
}

func mergePass(points []lidar.PointRecord, dist float64) ([]lidar.PointRecord, int) {
	if len(points) < 2 {
		return points, 0
	}
	bounds := geometry.EmptyBox()
	for _, p := range points {
		bounds = bounds.Extend(p.World)
	}
	idx := NewIndex(bounds, dist)

	out := make([]lidar.PointRecord, 0, len(points))
	anchors := make([]r3.Vec, 0, len(points))
	limit := dist * dist
	absorbed := 0

	for _, p := range points {
		match := -1
		idx.Query(p.World, dist, func(h int) bool {
			if (match < 0 || h < match) && r3.Norm2(r3.Sub(anchors[h], p.World)) <= limit {
				match = h
			}
			return true
		})
		if match >= 0 {
			out[match] = absorb(out[match], p)
			absorbed++
			continue
		}
		handle := len(out)
		out = append(out, p)
		anchors = append(anchors, p.World)
		idx.Insert(p.World, handle)
	}
	return out, absorbed
}

func absorb(a, b lidar.PointRecord) lidar.PointRecord {
	wa := float64(a.EffectiveWeight())
	wb := float64(b.EffectiveWeight())
	total := wa + wb
	mean := func(x, y r3.Vec) r3.Vec {
		return r3.Scale(1/total, r3.Add(r3.Scale(wa, x), r3.Scale(wb, y)))
	}
	mean8 := func(x, y uint8) uint8 {
		return uint8(math.Round((wa*float64(x) + wb*float64(y)) / total))
	}
	return lidar.PointRecord{
		World: mean(a.World, b.World),
		Local: mean(a.Local, b.Local),
		Color: lidar.RGB{
			R: mean8(a.Color.R, b.Color.R),
			G: mean8(a.Color.G, b.Color.G),
			B: mean8(a.Color.B, b.Color.B),
		},
		Intensity: mean8(a.Intensity, b.Intensity),
		SourceID:  a.SourceID,
		Weight:    a.EffectiveWeight() + b.EffectiveWeight(),
	}
}
