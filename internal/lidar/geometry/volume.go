package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plane slots of a ConvexVolume.
const (
	PlaneNear = iota
	PlaneFar
	PlaneLeft
	PlaneRight
	PlaneTop
	PlaneBottom
	planeCount
)

// ConvexVolume is the intersection of six half-spaces ordered near, far,
// left, right, top, bottom. Opposite slots (near/far, left/right,
// top/bottom) bound the volume along one direction each, which is what
// Vertices relies on.
type ConvexVolume struct {
	Planes [planeCount]Plane
}

// Contains reports whether p is inside every plane.
func (v ConvexVolume) Contains(p r3.Vec) bool {
	for _, pl := range v.Planes {
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}

// Normalize returns a copy with every plane rescaled to a unit normal.
func (v ConvexVolume) Normalize() ConvexVolume {
	for i := range v.Planes {
		v.Planes[i] = v.Planes[i].Normalize()
	}
	return v
}

// IntersectsBox is a conservative overlap test: it returns false only when
// every corner of b lies outside a single plane. Boxes near a frustum edge
// may be reported as intersecting when they are not.
func (v ConvexVolume) IntersectsBox(b Box) bool {
	if b.IsEmpty() {
		return false
	}
	corners := b.Corners()
	for _, pl := range v.Planes {
		outside := 0
		for _, c := range corners {
			if pl.Distance(c) < 0 {
				outside++
			}
		}
		if outside == len(corners) {
			return false
		}
	}
	return true
}

// Vertices returns the eight corners of the volume, computed as the
// intersections of one plane from each opposite pair. ok is false when any
// triple is (near) parallel, which only happens for degenerate volumes.
func (v ConvexVolume) Vertices() (out [8]r3.Vec, ok bool) {
	pairs := [3][2]int{
		{PlaneNear, PlaneFar},
		{PlaneLeft, PlaneRight},
		{PlaneTop, PlaneBottom},
	}
	for i := 0; i < 8; i++ {
		a := v.Planes[pairs[0][i&1]]
		b := v.Planes[pairs[1][(i>>1)&1]]
		c := v.Planes[pairs[2][(i>>2)&1]]
		p, hit := intersect3(a, b, c)
		if !hit {
			return out, false
		}
		out[i] = p
	}
	return out, true
}

// Bounds returns the axis-aligned box around the volume's vertices.
func (v ConvexVolume) Bounds() (Box, bool) {
	verts, ok := v.Vertices()
	if !ok {
		return EmptyBox(), false
	}
	return BoxOf(verts[:]), true
}

// intersect3 solves n_i·x = -d_i for three planes.
func intersect3(a, b, c Plane) (r3.Vec, bool) {
	bc := r3.Cross(b.Normal, c.Normal)
	det := r3.Dot(a.Normal, bc)
	if math.Abs(det) < 1e-12 {
		return r3.Vec{}, false
	}
	ca := r3.Cross(c.Normal, a.Normal)
	ab := r3.Cross(a.Normal, b.Normal)
	sum := r3.Add(r3.Add(r3.Scale(-a.D, bc), r3.Scale(-b.D, ca)), r3.Scale(-c.D, ab))
	return r3.Scale(1/det, sum), true
}

// BoxVolume returns the six inward-facing planes of b, so whole-source
// queries can reuse the convex volume path.
func BoxVolume(b Box) ConvexVolume {
	return ConvexVolume{Planes: [planeCount]Plane{
		PlaneNear:   {Normal: r3.Vec{X: 1}, D: -b.Min.X},
		PlaneFar:    {Normal: r3.Vec{X: -1}, D: b.Max.X},
		PlaneLeft:   {Normal: r3.Vec{Y: 1}, D: -b.Min.Y},
		PlaneRight:  {Normal: r3.Vec{Y: -1}, D: b.Max.Y},
		PlaneTop:    {Normal: r3.Vec{Z: -1}, D: b.Max.Z},
		PlaneBottom: {Normal: r3.Vec{Z: 1}, D: -b.Min.Z},
	}}
}
