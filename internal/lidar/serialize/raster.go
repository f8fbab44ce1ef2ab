package serialize

import (
	"image"
	"math"

	"github.com/x448/float16"

	"github.com/banshee-data/lodexport/internal/lidar"
)

var halfOne = float16.Fromfloat32(1).Bits()

// Raster is a square texture pair holding one point per texel, row-major
// in input order. Texels past Count are zero.
type Raster struct {
	Side  int
	Count int
	// Position holds 4 half-float bit patterns per texel: x, y, z, 1.
	Position []uint16
	// Color holds 4 bytes per texel: r, g, b, intensity.
	Color []uint8
}

// PackRaster lays pts out on the smallest square that holds them.
// Positions are in scene units; magnitudes beyond 65504 become infinite.
func PackRaster(pts []lidar.PointRecord, worldSpace bool) *Raster {
	n := len(pts)
	side := int(math.Ceil(math.Sqrt(float64(n))))
	r := &Raster{
		Side:     side,
		Count:    n,
		Position: make([]uint16, side*side*4),
		Color:    make([]uint8, side*side*4),
	}
	for i, p := range pts {
		v := p.Position(worldSpace)
		o := i * 4
		r.Position[o+0] = float16.Fromfloat32(float32(v.X)).Bits()
		r.Position[o+1] = float16.Fromfloat32(float32(v.Y)).Bits()
		r.Position[o+2] = float16.Fromfloat32(float32(v.Z)).Bits()
		r.Position[o+3] = halfOne
		r.Color[o+0] = p.Color.R
		r.Color[o+1] = p.Color.G
		r.Color[o+2] = p.Color.B
		r.Color[o+3] = p.Intensity
	}
	return r
}

// PositionAt decodes the position stored in texel i.
func (r *Raster) PositionAt(i int) (x, y, z float32) {
	o := i * 4
	return float16.Frombits(r.Position[o]).Float32(),
		float16.Frombits(r.Position[o+1]).Float32(),
		float16.Frombits(r.Position[o+2]).Float32()
}

// PositionImage wraps the half-float bits in a 16-bit RGBA image without
// conversion, so the raw bit patterns reach the encoder.
func (r *Raster) PositionImage() *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, r.Side, r.Side))
	for i, bits := range r.Position {
		img.Pix[i*2] = uint8(bits >> 8)
		img.Pix[i*2+1] = uint8(bits)
	}
	return img
}

// ColorImage returns the colour texture. Alpha carries intensity and is not
// premultiplied.
func (r *Raster) ColorImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Side, r.Side))
	copy(img.Pix, r.Color)
	return img
}
