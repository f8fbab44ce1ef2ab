package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrDegenerateCamera is returned when the camera basis cannot be formed.
	ErrDegenerateCamera = errors.New("degenerate camera basis")
	// ErrInvalidClip is returned for unusable field of view, aspect or clip distances.
	ErrInvalidClip = errors.New("invalid camera projection")
)

// CameraView is an immutable camera snapshot in world space.
// FOV is the vertical field of view in radians.
type CameraView struct {
	Position r3.Vec
	Forward  r3.Vec
	Up       r3.Vec
	FOV      float64
	Aspect   float64
	Near     float64
	Far      float64
}

// Rotator is a yaw/pitch/roll orientation in degrees using the X-forward,
// Y-right, Z-up convention of the scenes these exports come from.
type Rotator struct {
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// Axes returns the forward, right and up unit vectors of the rotator.
func (r Rotator) Axes() (forward, right, up r3.Vec) {
	sp, cp := math.Sincos(r.Pitch * math.Pi / 180)
	sy, cy := math.Sincos(r.Yaw * math.Pi / 180)
	sr, cr := math.Sincos(r.Roll * math.Pi / 180)

	forward = r3.Vec{X: cp * cy, Y: cp * sy, Z: sp}
	right = r3.Vec{X: sr*sp*cy - cr*sy, Y: sr*sp*sy + cr*cy, Z: -sr * cp}
	up = r3.Vec{X: -(cr*sp*cy + sr*sy), Y: cy*sr - cr*sp*sy, Z: cr * cp}
	return forward, right, up
}

// NewCameraView builds a camera from a rotator. fovDeg is the vertical
// field of view in degrees.
func NewCameraView(pos r3.Vec, rot Rotator, fovDeg, aspect, near, far float64) CameraView {
	f, _, u := rot.Axes()
	return CameraView{
		Position: pos,
		Forward:  f,
		Up:       u,
		FOV:      fovDeg * math.Pi / 180,
		Aspect:   aspect,
		Near:     near,
		Far:      far,
	}
}

// WithFar returns a copy of the camera with a different far distance.
func (c CameraView) WithFar(far float64) CameraView {
	c.Far = far
	return c
}

// Basis returns the orthonormal forward, right and up vectors of the camera.
func (c CameraView) Basis() (forward, right, up r3.Vec, err error) {
	fl := r3.Norm(c.Forward)
	if fl == 0 || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return forward, right, up, fmt.Errorf("%w: zero-length forward vector", ErrDegenerateCamera)
	}
	forward = r3.Scale(1/fl, c.Forward)

	side := r3.Cross(c.Up, forward)
	sl := r3.Norm(side)
	if sl < 1e-12 || math.IsNaN(sl) {
		return forward, right, up, fmt.Errorf("%w: up vector is parallel to forward", ErrDegenerateCamera)
	}
	right = r3.Scale(1/sl, side)
	up = r3.Cross(forward, right)
	return forward, right, up, nil
}

// Validate checks the projection parameters. It does not check the basis.
func (c CameraView) Validate() error {
	switch {
	case !finite(c.FOV) || c.FOV <= 0 || c.FOV >= math.Pi:
		return fmt.Errorf("%w: field of view %g rad must be in (0, pi)", ErrInvalidClip, c.FOV)
	case !finite(c.Aspect) || c.Aspect <= 0:
		return fmt.Errorf("%w: aspect ratio %g must be positive", ErrInvalidClip, c.Aspect)
	case !finite(c.Near) || c.Near <= 0:
		return fmt.Errorf("%w: near distance %g must be positive", ErrInvalidClip, c.Near)
	case !finite(c.Far) || c.Far <= c.Near:
		return fmt.Errorf("%w: far distance %g must be finite and beyond near %g", ErrInvalidClip, c.Far, c.Near)
	}
	return nil
}

// BuildFrustum derives the six-plane world-space view volume of the camera.
// Each plane passes through three corners of its face and is oriented so the
// frustum interior is on its inside.
func BuildFrustum(c CameraView) (ConvexVolume, error) {
	if err := c.Validate(); err != nil {
		return ConvexVolume{}, err
	}
	forward, right, up, err := c.Basis()
	if err != nil {
		return ConvexVolume{}, err
	}

	halfTan := math.Tan(c.FOV / 2)
	corners := func(dist float64) (tl, tr, bl, br r3.Vec) {
		center := r3.Add(c.Position, r3.Scale(dist, forward))
		h := halfTan * dist
		w := h * c.Aspect
		u := r3.Scale(h, up)
		r := r3.Scale(w, right)
		tl = r3.Sub(r3.Add(center, u), r)
		tr = r3.Add(r3.Add(center, u), r)
		bl = r3.Sub(r3.Sub(center, u), r)
		br = r3.Add(r3.Sub(center, u), r)
		return
	}
	ntl, ntr, nbl, nbr := corners(c.Near)
	ftl, ftr, fbl, fbr := corners(c.Far)

	faces := [planeCount][3]r3.Vec{
		PlaneNear:   {ntl, ntr, nbr},
		PlaneFar:    {ftr, ftl, fbl},
		PlaneLeft:   {ftl, ntl, nbl},
		PlaneRight:  {ntr, ftr, fbr},
		PlaneTop:    {ntl, ftl, ftr},
		PlaneBottom: {nbl, nbr, fbr},
	}

	inner := r3.Add(c.Position, r3.Scale((c.Near+c.Far)/2, forward))
	var vol ConvexVolume
	for i, f := range faces {
		pl, ok := PlaneFromPoints(f[0], f[1], f[2])
		if !ok {
			return ConvexVolume{}, fmt.Errorf("%w: collapsed frustum face %d", ErrDegenerateCamera, i)
		}
		if pl.Distance(inner) < 0 {
			pl = pl.Flip()
		}
		vol.Planes[i] = pl
	}
	return vol, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
