package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is the half-space {P : Normal·P + D >= 0}.
type Plane struct {
	Normal r3.Vec
	D      float64
}

// PlaneFromPoints builds the plane through a, b and c with normal
// (b-a)×(c-a). Orientation is fixed afterwards by the caller. ok is false
// when the three points are collinear.
func PlaneFromPoints(a, b, c r3.Vec) (p Plane, ok bool) {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(n)
	if l == 0 || math.IsNaN(l) {
		return Plane{}, false
	}
	n = r3.Scale(1/l, n)
	return Plane{Normal: n, D: -r3.Dot(n, a)}, true
}

// Distance returns the signed distance of p from the plane. It is a true
// Euclidean distance only while the normal is unit length.
func (pl Plane) Distance(p r3.Vec) float64 {
	return r3.Dot(pl.Normal, p) + pl.D
}

// Contains reports whether p lies on the inside of the plane.
func (pl Plane) Contains(p r3.Vec) bool {
	return pl.Distance(p) >= 0
}

// Flip returns the plane bounding the opposite half-space.
func (pl Plane) Flip() Plane {
	return Plane{Normal: r3.Scale(-1, pl.Normal), D: -pl.D}
}

// Normalize rescales the plane equation so the normal has unit length.
// A zero normal is returned unchanged.
func (pl Plane) Normalize() Plane {
	l := r3.Norm(pl.Normal)
	if l == 0 {
		return pl
	}
	return Plane{Normal: r3.Scale(1/l, pl.Normal), D: pl.D / l}
}

// IsUnit reports whether the normal is unit length within tol.
func (pl Plane) IsUnit(tol float64) bool {
	return math.Abs(r3.Norm(pl.Normal)-1) <= tol
}
