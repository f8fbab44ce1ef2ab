package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/testutil"
)

// samplePointInFrustum returns a point strictly inside the camera frustum,
// staying away from the faces by a relative margin.
func samplePointInFrustum(rng *rand.Rand, c CameraView) r3.Vec {
	f, r, u, _ := c.Basis()
	depth := c.Near + (c.Far-c.Near)*(0.02+0.96*rng.Float64())
	h := math.Tan(c.FOV/2) * depth
	w := h * c.Aspect
	p := r3.Add(c.Position, r3.Scale(depth, f))
	p = r3.Add(p, r3.Scale((rng.Float64()*2-1)*0.95*w, r))
	p = r3.Add(p, r3.Scale((rng.Float64()*2-1)*0.95*h, u))
	return p
}

func sampleTransforms() map[string]SourceTransform {
	shear := IdentityTransform()
	shear.Linear = [9]float64{1, 0.7, 0, 0, 1, -0.4, 0.2, 0, 1}
	shear.Translation = r3.Vec{X: -30, Y: 12, Z: 4}
	shear.LocalOffset = r3.Vec{X: 1e5, Y: -2e5, Z: 50}

	return map[string]SourceTransform{
		"identity":          IdentityTransform(),
		"translated":        NewSourceTransform(Rotator{}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 250, Y: -40, Z: 9}, r3.Vec{}),
		"rotated":           NewSourceTransform(Rotator{Yaw: 33, Pitch: -12, Roll: 71}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 5}, r3.Vec{}),
		"non-uniform scale": NewSourceTransform(Rotator{Yaw: -48, Pitch: 20}, r3.Vec{X: 2, Y: 0.5, Z: 3}, r3.Vec{X: 10, Y: 20, Z: 30}, r3.Vec{X: 7, Y: -3, Z: 1}),
		"offset origin":     NewSourceTransform(Rotator{Roll: 15}, r3.Vec{X: 0.01, Y: 0.01, Z: 0.01}, r3.Vec{}, r3.Vec{X: 5e4, Y: 5e4, Z: -1e3}),
		"shear":             shear,
	}
}

func TestToLocal_RoundTripCulling(t *testing.T) {
	cam := NewCameraView(r3.Vec{X: -20, Y: 15, Z: 3}, Rotator{Yaw: 20, Pitch: -5}, 70, 1.5, 1, 400)
	world, err := BuildFrustum(cam)
	require.NoError(t, err)

	for name, tr := range sampleTransforms() {
		t.Run(name, func(t *testing.T) {
			local, err := tr.ToLocal(world)
			require.NoError(t, err)
			for i, pl := range local.Planes {
				require.True(t, pl.IsUnit(1e-9), "plane %d not renormalised", i)
			}

			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 500; i++ {
				w := samplePointInFrustum(rng, cam)
				require.True(t, world.Contains(w))

				stored, err := tr.StoredPoint(w)
				require.NoError(t, err)
				if !local.Contains(stored) {
					t.Fatalf("point %v inside world frustum but outside local frustum (stored %v)", w, stored)
				}
			}

			outside := []r3.Vec{
				r3.Add(cam.Position, r3.Scale(-10, cam.Forward)),
				r3.Add(cam.Position, r3.Scale(cam.Far*1.5, cam.Forward)),
			}
			for _, w := range outside {
				stored, err := tr.StoredPoint(w)
				require.NoError(t, err)
				assert.False(t, local.Contains(stored), "point %v should stay culled", w)
			}
		})
	}
}

func TestToLocal_PlaneDistanceIsMetricAfterTransform(t *testing.T) {
	// A uniform x2 scale halves local distances; renormalised planes must
	// report stored-frame distances, not world ones.
	tr := NewSourceTransform(Rotator{}, r3.Vec{X: 2, Y: 2, Z: 2}, r3.Vec{}, r3.Vec{})
	world := ConvexVolume{Planes: [6]Plane{
		{Normal: r3.Vec{X: 1}, D: 0},
		{Normal: r3.Vec{X: -1}, D: 100},
		{Normal: r3.Vec{Y: 1}, D: 100},
		{Normal: r3.Vec{Y: -1}, D: 100},
		{Normal: r3.Vec{Z: -1}, D: 100},
		{Normal: r3.Vec{Z: 1}, D: 100},
	}}
	local, err := tr.ToLocal(world)
	require.NoError(t, err)
	assert.InDelta(t, 25, local.Planes[PlaneFar].Distance(r3.Vec{X: 25}), 1e-9)
}

func TestSourceTransform_WorldStoredInverse(t *testing.T) {
	for name, tr := range sampleTransforms() {
		t.Run(name, func(t *testing.T) {
			p := r3.Vec{X: 12.5, Y: -3, Z: 44}
			w := tr.WorldPoint(p)
			back, err := tr.StoredPoint(w)
			require.NoError(t, err)
			testutil.AssertVecNear(t, back, p, 1e-6)
		})
	}
}

func TestSourceTransform_Singular(t *testing.T) {
	tr := NewSourceTransform(Rotator{}, r3.Vec{X: 1, Y: 0, Z: 1}, r3.Vec{}, r3.Vec{})
	_, err := tr.ToLocal(ConvexVolume{})
	if !errors.Is(err, ErrSingularTransform) {
		t.Errorf("ToLocal() error = %v, want ErrSingularTransform", err)
	}
}

func TestSourceTransform_WorldBounds(t *testing.T) {
	tr := NewSourceTransform(Rotator{Yaw: 90}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 100}, r3.Vec{X: 10})
	b := tr.WorldBounds(Box{Min: r3.Vec{}, Max: r3.Vec{X: 1, Y: 2, Z: 3}})

	// Local X (offset 10..11) maps to world +Y after a 90° yaw.
	assert.InDelta(t, 10, b.Min.Y, 1e-9)
	assert.InDelta(t, 11, b.Max.Y, 1e-9)
	assert.InDelta(t, 98, b.Min.X, 1e-9)
	assert.InDelta(t, 100, b.Max.X, 1e-9)
	assert.InDelta(t, 3, b.Max.Z, 1e-9)
}
