package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/jblindsay/lidario"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/monitoring"
)

// LAS point formats that carry RGB.
var rgbFormats = map[byte]bool{2: true, 3: true, 5: true, 7: true, 8: true, 10: true}

// LAS is a source backed by a LAS file. The header is read on open; point
// records are decoded on the first query and cached for the life of the
// source. LAS has no hidden flag, so visibleOnly never filters.
type LAS struct {
	id        string
	path      string
	transform geometry.SourceTransform
	scale     float64
	bounds    geometry.Box
	count     int

	once   sync.Once
	points []lidar.StoredPoint
	err    error
}

// OpenLAS reads the header of the file at path. scale converts file units
// into scene units (100 for metres).
func OpenLAS(id, path string, t geometry.SourceTransform, scale float64) (*LAS, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("las source %s: scale must be > 0, got %g", id, scale)
	}
	lf, err := lidario.NewLasFile(path, "r")
	if err != nil {
		return nil, fmt.Errorf("open las %s: %w", path, err)
	}
	defer lf.Close()

	h := lf.Header
	return &LAS{
		id:        id,
		path:      path,
		transform: t,
		scale:     scale,
		count:     h.NumberPoints,
		bounds: geometry.Box{
			Min: r3.Scale(scale, r3.Vec{X: h.MinX, Y: h.MinY, Z: h.MinZ}),
			Max: r3.Scale(scale, r3.Vec{X: h.MaxX, Y: h.MaxY, Z: h.MaxZ}),
		},
	}, nil
}

func (s *LAS) ID() string                          { return s.id }
func (s *LAS) Transform() geometry.SourceTransform { return s.transform }
func (s *LAS) LocalBounds() geometry.Box           { return s.bounds }

// Path returns the file the source reads.
func (s *LAS) Path() string { return s.path }

// NumPoints returns the point count declared by the header.
func (s *LAS) NumPoints() int { return s.count }

// Points returns every decoded point, loading the file on first use.
func (s *LAS) Points() ([]lidar.StoredPoint, error) {
	s.once.Do(func() {
		s.points, s.err = s.load()
		if s.err == nil {
			monitoring.Debugf("[LAS] %s: loaded %d points from %s", s.id, len(s.points), s.path)
		}
	})
	return s.points, s.err
}

// Query decodes the file if needed and returns the points inside vol.
func (s *LAS) Query(ctx context.Context, vol geometry.ConvexVolume, visibleOnly bool) ([]lidar.Candidate, error) {
	pts, err := s.Points()
	if err != nil {
		return nil, err
	}
	return lidar.SelectInVolume(ctx, pts, vol, visibleOnly)
}

func (s *LAS) load() ([]lidar.StoredPoint, error) {
	lf, err := lidario.NewLasFile(s.path, "r")
	if err != nil {
		return nil, fmt.Errorf("open las %s: %w", s.path, err)
	}
	defer lf.Close()

	hasRGB := rgbFormats[lf.Header.PointFormatID]
	n := lf.Header.NumberPoints
	pts := make([]lidar.StoredPoint, 0, n)
	raw := make([]rawSample, 0, n)

	for i := 0; i < n; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, fmt.Errorf("read las %s point %d: %w", s.path, i, err)
		}
		pd := p.PointData()
		rs := rawSample{intensity: pd.Intensity}
		if hasRGB {
			if rgb := p.RgbData(); rgb != nil {
				rs.rgb = [3]uint16{rgb.Red, rgb.Green, rgb.Blue}
				rs.hasRGB = true
			}
		}
		raw = append(raw, rs)
		pts = append(pts, lidar.StoredPoint{Candidate: lidar.Candidate{
			Position: r3.Scale(s.scale, r3.Vec{X: pd.X, Y: pd.Y, Z: pd.Z}),
		}})
	}
	narrowSamples(pts, raw)
	return pts, nil
}

// rawSample holds the 16-bit fields of one LAS point record.
type rawSample struct {
	intensity uint16
	rgb       [3]uint16
	hasRGB    bool
}

// narrowSamples fills intensity and colour of pts from raw. Files disagree
// on whether the 16-bit fields carry 8- or 16-bit values, so each field is
// shifted down only when some sample exceeds 255. Points without colour
// are white.
func narrowSamples(pts []lidar.StoredPoint, raw []rawSample) {
	var maxIntensity, maxColor uint16
	for _, r := range raw {
		maxIntensity = max(maxIntensity, r.intensity)
		if r.hasRGB {
			maxColor = max(maxColor, r.rgb[0], r.rgb[1], r.rgb[2])
		}
	}
	iShift, cShift := depthShift(maxIntensity), depthShift(maxColor)
	for i, r := range raw {
		pts[i].Intensity = uint8(r.intensity >> iShift)
		pts[i].Color = lidar.RGB{R: 255, G: 255, B: 255}
		if r.hasRGB {
			pts[i].Color = lidar.RGB{
				R: uint8(r.rgb[0] >> cShift),
				G: uint8(r.rgb[1] >> cShift),
				B: uint8(r.rgb[2] >> cShift),
			}
		}
	}
}

func depthShift(peak uint16) uint {
	if peak > 255 {
		return 8
	}
	return 0
}
