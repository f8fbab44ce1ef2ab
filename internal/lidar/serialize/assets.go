package serialize

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strconv"

	"golang.org/x/image/tiff"

	"github.com/banshee-data/lodexport/internal/fsutil"
	"github.com/banshee-data/lodexport/internal/monitoring"
	"github.com/banshee-data/lodexport/internal/security"
)

// Asset file suffixes.
const (
	PositionSuffix = "_PosTex.tiff"
	ColorSuffix    = "_ColorTex.png"
)

// ErrEmptyRaster is returned when asked to save a raster with no points.
var ErrEmptyRaster = errors.New("raster has no points")

// AssetStore writes texture pairs into one directory.
type AssetStore struct {
	fs  fsutil.FileSystem
	dir string
}

// NewAssetStore creates a store rooted at dir. The directory is created on
// first save.
func NewAssetStore(fs fsutil.FileSystem, dir string) *AssetStore {
	return &AssetStore{fs: fs, dir: dir}
}

// Dir returns the asset directory.
func (a *AssetStore) Dir() string { return a.dir }

// UniqueName picks base (sanitized) or the first of base_1, base_2, ...
// for which neither texture exists yet, and returns the validated paths
// of that pair.
func (a *AssetStore) UniqueName(base string) (posPath, colorPath string, err error) {
	base = security.SanitizeFilename(base)
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = base + "_" + strconv.Itoa(i)
		}
		if posPath, err = security.AssetPath(a.dir, name, PositionSuffix); err != nil {
			return "", "", err
		}
		if colorPath, err = security.AssetPath(a.dir, name, ColorSuffix); err != nil {
			return "", "", err
		}
		if !a.fs.Exists(posPath) && !a.fs.Exists(colorPath) {
			return posPath, colorPath, nil
		}
	}
}

// SaveRaster encodes r as <name>_PosTex.tiff (16-bit RGBA holding half
// floats) and <name>_ColorTex.png at the paths UniqueName(base) picks. A
// failure removes whichever file was already written.
func (a *AssetStore) SaveRaster(base string, r *Raster) (posPath, colorPath string, err error) {
	if r == nil || r.Count == 0 {
		return "", "", ErrEmptyRaster
	}
	if err := a.fs.MkdirAll(a.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create asset dir %s: %w", a.dir, err)
	}
	posPath, colorPath, err = a.UniqueName(base)
	if err != nil {
		return "", "", err
	}

	var posBuf bytes.Buffer
	if err := tiff.Encode(&posBuf, r.PositionImage(), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return "", "", fmt.Errorf("encode %s: %w", posPath, err)
	}
	var colBuf bytes.Buffer
	if err := png.Encode(&colBuf, r.ColorImage()); err != nil {
		return "", "", fmt.Errorf("encode %s: %w", colorPath, err)
	}

	if err := a.fs.WriteFile(posPath, posBuf.Bytes(), 0o644); err != nil {
		a.fs.Remove(posPath)
		return "", "", fmt.Errorf("write %s: %w", posPath, err)
	}
	if err := a.fs.WriteFile(colorPath, colBuf.Bytes(), 0o644); err != nil {
		a.fs.Remove(colorPath)
		a.fs.Remove(posPath)
		return "", "", fmt.Errorf("write %s: %w", colorPath, err)
	}
	monitoring.Logf("[assets] wrote %dx%d textures for %d points: %s, %s", r.Side, r.Side, r.Count, posPath, colorPath)
	return posPath, colorPath, nil
}

// LoadPositionImage decodes a position texture written by SaveRaster.
func (a *AssetStore) LoadPositionImage(path string) ([]uint16, int, error) {
	data, err := a.fs.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	b := img.Bounds()
	out := make([]uint16, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			rr, gg, bb, aa := c.RGBA()
			out = append(out, uint16(rr), uint16(gg), uint16(bb), uint16(aa))
		}
	}
	return out, b.Dx(), nil
}
