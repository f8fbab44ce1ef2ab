package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSingularTransform is returned when a source transform cannot be inverted.
var ErrSingularTransform = errors.New("singular source transform")

// SourceTransform maps a point source's stored coordinates to world space:
//
//	world = Linear · (stored + LocalOffset) + Translation
//
// Linear is a row-major 3x3 matrix (rotation, scale and shear). LocalOffset
// is the sub-origin that stored coordinates are relative to; stored + offset
// is the source's full local position.
type SourceTransform struct {
	Linear      [9]float64
	Translation r3.Vec
	LocalOffset r3.Vec
}

// IdentityTransform returns the transform that leaves coordinates unchanged.
func IdentityTransform() SourceTransform {
	return SourceTransform{Linear: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// NewSourceTransform composes rotation and per-axis scale (applied first)
// with a translation. The rotator's forward, right and up axes become the
// images of local X, Y and Z.
func NewSourceTransform(rot Rotator, scale, translation, offset r3.Vec) SourceTransform {
	f, r, u := rot.Axes()
	cols := [3]r3.Vec{r3.Scale(scale.X, f), r3.Scale(scale.Y, r), r3.Scale(scale.Z, u)}
	var t SourceTransform
	for c, v := range cols {
		t.Linear[0*3+c] = v.X
		t.Linear[1*3+c] = v.Y
		t.Linear[2*3+c] = v.Z
	}
	t.Translation = translation
	t.LocalOffset = offset
	return t
}

func (t SourceTransform) linear() *mat.Dense {
	data := make([]float64, 9)
	copy(data, t.Linear[:])
	return mat.NewDense(3, 3, data)
}

// Validate reports whether the linear part is finite and invertible.
func (t SourceTransform) Validate() error {
	for _, v := range t.Linear {
		if !finite(v) {
			return fmt.Errorf("%w: non-finite matrix entry", ErrSingularTransform)
		}
	}
	if det := mat.Det(t.linear()); math.Abs(det) < 1e-12 {
		return fmt.Errorf("%w: determinant %g", ErrSingularTransform, det)
	}
	return nil
}

// LocalPoint returns the full local position of a stored coordinate.
func (t SourceTransform) LocalPoint(stored r3.Vec) r3.Vec {
	return r3.Add(stored, t.LocalOffset)
}

// WorldPoint maps a stored coordinate to world space.
func (t SourceTransform) WorldPoint(stored r3.Vec) r3.Vec {
	q := r3.Add(stored, t.LocalOffset)
	l := t.Linear
	return r3.Vec{
		X: l[0]*q.X + l[1]*q.Y + l[2]*q.Z + t.Translation.X,
		Y: l[3]*q.X + l[4]*q.Y + l[5]*q.Z + t.Translation.Y,
		Z: l[6]*q.X + l[7]*q.Y + l[8]*q.Z + t.Translation.Z,
	}
}

// StoredPoint maps a world position back into the source's stored frame.
func (t SourceTransform) StoredPoint(world r3.Vec) (r3.Vec, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.linear()); err != nil {
		return r3.Vec{}, fmt.Errorf("%w: %v", ErrSingularTransform, err)
	}
	d := r3.Sub(world, t.Translation)
	var q mat.VecDense
	q.MulVec(&inv, mat.NewVecDense(3, []float64{d.X, d.Y, d.Z}))
	return r3.Sub(r3.Vec{X: q.AtVec(0), Y: q.AtVec(1), Z: q.AtVec(2)}, t.LocalOffset), nil
}

// WorldBounds returns the world-space box around a stored-frame box.
func (t SourceTransform) WorldBounds(stored Box) Box {
	if stored.IsEmpty() {
		return stored
	}
	out := EmptyBox()
	for _, c := range stored.Corners() {
		out = out.Extend(t.WorldPoint(c))
	}
	return out
}

// ToLocal maps a world-space volume into the source's stored frame.
//
// Plane normals transform by the inverse transpose of the world→stored
// linear map, which is Linearᵀ; translation and the local offset fold into
// the plane constant. Every plane is renormalised afterwards because the
// linear part may scale the normal.
func (t SourceTransform) ToLocal(v ConvexVolume) (ConvexVolume, error) {
	if err := t.Validate(); err != nil {
		return ConvexVolume{}, err
	}
	lt := t.linear().T()

	var out ConvexVolume
	var n mat.VecDense
	for i, pl := range v.Planes {
		n.MulVec(lt, mat.NewVecDense(3, []float64{pl.Normal.X, pl.Normal.Y, pl.Normal.Z}))
		ln := r3.Vec{X: n.AtVec(0), Y: n.AtVec(1), Z: n.AtVec(2)}
		d := r3.Dot(ln, t.LocalOffset) + r3.Dot(pl.Normal, t.Translation) + pl.D
		out.Planes[i] = Plane{Normal: ln, D: d}.Normalize()
	}
	return out, nil
}
