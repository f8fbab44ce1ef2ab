// Package testutil provides shared test helpers and synthetic point fixtures.
//
// It depends only on gonum's r3 so that any package, including the lidar
// layers, can use it from its tests without an import cycle.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// VecNear reports whether every component of a and b differs by at most tol.
func VecNear(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// AssertVecNear fails the test if got is not within tol of want.
func AssertVecNear(t testing.TB, got, want r3.Vec, tol float64) {
	t.Helper()
	if !VecNear(got, want, tol) {
		t.Errorf("vector = %v, want %v (tol %g)", got, want, tol)
	}
}

// Grid returns n×n×n points on a cube lattice starting at origin.
func Grid(origin r3.Vec, n int, spacing float64) []r3.Vec {
	pts := make([]r3.Vec, 0, n*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				pts = append(pts, r3.Vec{
					X: origin.X + float64(i)*spacing,
					Y: origin.Y + float64(j)*spacing,
					Z: origin.Z + float64(k)*spacing,
				})
			}
		}
	}
	return pts
}

// AlongX places one point on the +X axis at each of the given distances.
func AlongX(dists ...float64) []r3.Vec {
	pts := make([]r3.Vec, len(dists))
	for i, d := range dists {
		pts[i] = r3.Vec{X: d}
	}
	return pts
}
