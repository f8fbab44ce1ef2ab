package serialize

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar"
)

// ASCIIOptions controls coordinate conversion on output.
type ASCIIOptions struct {
	// WorldSpace selects world positions; otherwise source-local.
	WorldSpace bool
	// Scale multiplies every coordinate (0.01 converts cm to m).
	Scale float64
	// FlipX, FlipY and FlipZ negate an axis after scaling.
	FlipX, FlipY, FlipZ bool
	// Precision is the number of decimals per coordinate.
	Precision int
}

// DefaultASCIIOptions writes world-space metres with Y negated, which turns
// the left-handed Z-up scene frame into the right-handed frame point cloud
// tools expect.
func DefaultASCIIOptions() ASCIIOptions {
	return ASCIIOptions{
		WorldSpace: true,
		Scale:      0.01,
		FlipY:      true,
		Precision:  8,
	}
}

// Validate rejects unusable scale and precision values.
func (o ASCIIOptions) Validate() error {
	if !(o.Scale > 0) || math.IsInf(o.Scale, 0) {
		return fmt.Errorf("scale must be finite and > 0, got %g", o.Scale)
	}
	if o.Precision < 0 || o.Precision > 17 {
		return fmt.Errorf("precision must be between 0 and 17, got %d", o.Precision)
	}
	return nil
}

// Convert applies space selection, scale and axis flips to a record.
func (o ASCIIOptions) Convert(p lidar.PointRecord) r3.Vec {
	v := r3.Scale(o.Scale, p.Position(o.WorldSpace))
	if o.FlipX {
		v.X = -v.X
	}
	if o.FlipY {
		v.Y = -v.Y
	}
	if o.FlipZ {
		v.Z = -v.Z
	}
	return v
}

// WriteASCII writes pts to w and returns the number of points written.
func WriteASCII(w io.Writer, pts []lidar.PointRecord, opts ASCIIOptions) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	bw := bufio.NewWriterSize(w, 64*1024)
	line := make([]byte, 0, 128)
	for i, p := range pts {
		v := opts.Convert(p)
		line = line[:0]
		line = appendCoord(line, v.X, opts.Precision)
		line = append(line, ' ')
		line = appendCoord(line, v.Y, opts.Precision)
		line = append(line, ' ')
		line = appendCoord(line, v.Z, opts.Precision)
		for _, c := range [4]uint8{p.Intensity, p.Color.R, p.Color.G, p.Color.B} {
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(c), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return i, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(pts), nil
}

// FormatASCII renders pts into memory.
func FormatASCII(pts []lidar.PointRecord, opts ASCIIOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(pts) * (3*(opts.Precision+8) + 16))
	if _, err := WriteASCII(&buf, pts, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendCoord(b []byte, v float64, prec int) []byte {
	// Flipping an exact zero yields -0; print it as 0.
	if v == 0 {
		v = 0
	}
	return strconv.AppendFloat(b, v, 'f', prec, 64)
}
