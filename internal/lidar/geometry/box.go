package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis-aligned bounding box. The zero value is a degenerate box at
// the origin; use EmptyBox to start an accumulation.
type Box struct {
	Min, Max r3.Vec
}

// EmptyBox returns an inverted box that any Extend call will replace.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b Box) Extend(p r3.Vec) Box {
	return Box{
		Min: r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Expand grows every face outwards by margin.
func (b Box) Expand(margin float64) Box {
	m := r3.Vec{X: margin, Y: margin, Z: margin}
	return Box{Min: r3.Sub(b.Min, m), Max: r3.Add(b.Max, m)}
}

// Center returns the midpoint of the box.
func (b Box) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Size returns the edge lengths of the box.
func (b Box) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Contains reports whether p lies inside the box (faces inclusive).
func (b Box) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Corners returns the eight vertices of the box.
func (b Box) Corners() [8]r3.Vec {
	var c [8]r3.Vec
	for i := 0; i < 8; i++ {
		v := b.Min
		if i&1 != 0 {
			v.X = b.Max.X
		}
		if i&2 != 0 {
			v.Y = b.Max.Y
		}
		if i&4 != 0 {
			v.Z = b.Max.Z
		}
		c[i] = v
	}
	return c
}

// DistanceSquared returns the squared distance from p to the closest point
// of the box; zero when p is inside.
func (b Box) DistanceSquared(p r3.Vec) float64 {
	d := 0.0
	d += axisGap(p.X, b.Min.X, b.Max.X)
	d += axisGap(p.Y, b.Min.Y, b.Max.Y)
	d += axisGap(p.Z, b.Min.Z, b.Max.Z)
	return d
}

// IntersectsSphere reports whether the sphere (center, radius) overlaps the box.
func (b Box) IntersectsSphere(center r3.Vec, radius float64) bool {
	return b.DistanceSquared(center) <= radius*radius
}

func axisGap(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return (lo - v) * (lo - v)
	case v > hi:
		return (v - hi) * (v - hi)
	}
	return 0
}

// BoxOf returns the bounds of the given points, or an empty box.
func BoxOf(points []r3.Vec) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}
