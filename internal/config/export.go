package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/segmentio/encoding/json"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/lod"
	"github.com/banshee-data/lodexport/internal/lidar/pipeline"
	"github.com/banshee-data/lodexport/internal/lidar/serialize"
	"github.com/banshee-data/lodexport/internal/units"
)

// DefaultConfigPath is the path to the canonical export defaults file.
const DefaultConfigPath = "config/export.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ExportConfig is the root export configuration. Scalar fields are
// pointers so a partial file keeps the defaults returned by the Get*
// accessors for everything it omits.
type ExportConfig struct {
	// LOD bands, scene units (cm)
	NearRadius *float64 `json:"near_radius,omitempty" yaml:"near_radius,omitempty"`
	MidRadius  *float64 `json:"mid_radius,omitempty" yaml:"mid_radius,omitempty"`
	FarRadius  *float64 `json:"far_radius,omitempty" yaml:"far_radius,omitempty"`
	MidSkip    *float64 `json:"mid_skip,omitempty" yaml:"mid_skip,omitempty"`
	FarSkip    *float64 `json:"far_skip,omitempty" yaml:"far_skip,omitempty"`

	// Frustum and aggregation
	FrustumFar    *float64 `json:"frustum_far,omitempty" yaml:"frustum_far,omitempty"`
	MergeDistance *float64 `json:"merge_distance,omitempty" yaml:"merge_distance,omitempty"`
	MaxPoints     *int     `json:"max_points,omitempty" yaml:"max_points,omitempty"`
	Workers       *int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	VisibleOnly   *bool    `json:"visible_only,omitempty" yaml:"visible_only,omitempty"`

	// Output
	OutputPath     *string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	WorldSpace     *bool   `json:"world_space,omitempty" yaml:"world_space,omitempty"`
	ExportTextures *bool   `json:"export_textures,omitempty" yaml:"export_textures,omitempty"`
	Units          *string `json:"units,omitempty" yaml:"units,omitempty"` // output length unit
	FlipX          *bool   `json:"flip_x,omitempty" yaml:"flip_x,omitempty"`
	FlipY          *bool   `json:"flip_y,omitempty" yaml:"flip_y,omitempty"`
	FlipZ          *bool   `json:"flip_z,omitempty" yaml:"flip_z,omitempty"`
	Precision      *int    `json:"precision,omitempty" yaml:"precision,omitempty"`

	Camera  *CameraConfig  `json:"camera,omitempty" yaml:"camera,omitempty"`
	Sources []SourceConfig `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Vec3 is a plain vector in config files.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func (v Vec3) r3() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// CameraConfig describes the export camera. Zero FOV, aspect or near
// fall back to defaults.
type CameraConfig struct {
	Position   Vec3             `json:"position" yaml:"position"`
	Rotation   geometry.Rotator `json:"rotation" yaml:"rotation"`
	FOVDegrees float64          `json:"fov_degrees,omitempty" yaml:"fov_degrees,omitempty"`
	Aspect     float64          `json:"aspect,omitempty" yaml:"aspect,omitempty"`
	Near       float64          `json:"near,omitempty" yaml:"near,omitempty"`
}

// SourceConfig names one point source and its placement in the world.
// Exactly one of LAS or Store must be set. Store sources keep the
// placement recorded when they were imported.
type SourceConfig struct {
	ID       string           `json:"id" yaml:"id"`
	LAS      string           `json:"las,omitempty" yaml:"las,omitempty"`
	LASUnits string           `json:"las_units,omitempty" yaml:"las_units,omitempty"`
	Store    bool             `json:"store,omitempty" yaml:"store,omitempty"`
	Location Vec3             `json:"location" yaml:"location"`
	Rotation geometry.Rotator `json:"rotation" yaml:"rotation"`
	Scale    *Vec3            `json:"scale,omitempty" yaml:"scale,omitempty"`
	Offset   Vec3             `json:"offset" yaml:"offset"`
}

// Defaults for fields the file omits.
const (
	DefaultFrustumFar = 200000.0
	DefaultUnits      = units.M
	DefaultPrecision  = 8
	DefaultFOVDegrees = 90.0
	DefaultAspect     = 16.0 / 9.0
	DefaultNear       = 10.0
)

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyExportConfig returns an ExportConfig with all fields unset.
func EmptyExportConfig() *ExportConfig {
	return &ExportConfig{}
}

// DefaultExportConfig returns a config with every scalar set explicitly to
// its default.
func DefaultExportConfig() *ExportConfig {
	p := lod.DefaultParams()
	return &ExportConfig{
		NearRadius:     ptrFloat64(p.NearRadius),
		MidRadius:      ptrFloat64(p.MidRadius),
		FarRadius:      ptrFloat64(p.FarRadius),
		MidSkip:        ptrFloat64(p.MidSkip),
		FarSkip:        ptrFloat64(p.FarSkip),
		FrustumFar:     ptrFloat64(DefaultFrustumFar),
		MergeDistance:  ptrFloat64(0),
		MaxPoints:      ptrInt(0),
		Workers:        ptrInt(0),
		VisibleOnly:    ptrBool(true),
		OutputPath:     ptrString(""),
		WorldSpace:     ptrBool(true),
		ExportTextures: ptrBool(false),
		Units:          ptrString(DefaultUnits),
		FlipX:          ptrBool(false),
		FlipY:          ptrBool(true),
		FlipZ:          ptrBool(false),
		Precision:      ptrInt(DefaultPrecision),
	}
}

// LoadExportConfig loads an ExportConfig from a .json, .yaml or .yml file.
// The file must be under 1MB. Fields omitted from the file retain their
// default values, so partial configs are safe.
func LoadExportConfig(path string) (*ExportConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseExportConfig(data, ext)
}

// ParseExportConfig decodes data in the format named by ext and validates it.
func ParseExportConfig(data []byte, ext string) (*ExportConfig, error) {
	cfg := EmptyExportConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ExportConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadExportConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set. Cross-field LOD constraints are
// checked on the combined result so a file may override a single radius.
func (c *ExportConfig) Validate() error {
	if err := c.LODParams().Validate(); err != nil {
		return err
	}
	if f := c.GetFrustumFar(); !(f > 0) || math.IsInf(f, 0) {
		return fmt.Errorf("frustum_far must be finite and > 0, got %g", f)
	}
	if d := c.GetMergeDistance(); d < 0 || math.IsNaN(d) {
		return fmt.Errorf("merge_distance must be >= 0, got %g", d)
	}
	if c.GetMaxPoints() < 0 {
		return fmt.Errorf("max_points must be non-negative, got %d", c.GetMaxPoints())
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if !units.IsValid(c.GetUnits()) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), c.GetUnits())
	}
	if p := c.GetPrecision(); p < 0 || p > 17 {
		return fmt.Errorf("precision must be between 0 and 17, got %d", p)
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if (s.LAS == "") == !s.Store {
			return fmt.Errorf("sources[%d] %q: exactly one of las or store must be set", i, s.ID)
		}
		if s.LASUnits != "" && !units.IsValid(s.LASUnits) {
			return fmt.Errorf("sources[%d] %q: las_units must be one of %s", i, s.ID, units.GetValidUnitsString())
		}
	}
	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// LODParams returns the LOD bands with defaults filled in.
func (c *ExportConfig) LODParams() lod.Params {
	d := lod.DefaultParams()
	return lod.Params{
		NearRadius: getFloat(c.NearRadius, d.NearRadius),
		MidRadius:  getFloat(c.MidRadius, d.MidRadius),
		FarRadius:  getFloat(c.FarRadius, d.FarRadius),
		MidSkip:    getFloat(c.MidSkip, d.MidSkip),
		FarSkip:    getFloat(c.FarSkip, d.FarSkip),
	}
}

// GetFrustumFar returns the frustum_far value or the default.
func (c *ExportConfig) GetFrustumFar() float64 {
	return getFloat(c.FrustumFar, DefaultFrustumFar)
}

// GetMergeDistance returns the merge_distance value or 0 (merge off).
func (c *ExportConfig) GetMergeDistance() float64 {
	return getFloat(c.MergeDistance, 0)
}

// GetMaxPoints returns the max_points value or 0 (no cap).
func (c *ExportConfig) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return 0
	}
	return *c.MaxPoints
}

// GetWorkers returns the worker count, defaulting to GOMAXPROCS.
func (c *ExportConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetVisibleOnly returns the visible_only value or the default.
func (c *ExportConfig) GetVisibleOnly() bool {
	return getBool(c.VisibleOnly, true)
}

// GetOutputPath returns the output_path value or "".
func (c *ExportConfig) GetOutputPath() string {
	if c.OutputPath == nil {
		return ""
	}
	return *c.OutputPath
}

// GetWorldSpace returns the world_space value or the default.
func (c *ExportConfig) GetWorldSpace() bool {
	return getBool(c.WorldSpace, true)
}

// GetExportTextures returns the export_textures value or the default.
func (c *ExportConfig) GetExportTextures() bool {
	return getBool(c.ExportTextures, false)
}

// GetUnits returns the output unit or the default.
func (c *ExportConfig) GetUnits() string {
	if c.Units == nil || *c.Units == "" {
		return DefaultUnits
	}
	return *c.Units
}

// GetPrecision returns the number of decimals written per coordinate.
func (c *ExportConfig) GetPrecision() int {
	if c.Precision == nil {
		return DefaultPrecision
	}
	return *c.Precision
}

// ToPipelineOptions maps the config onto pipeline options.
func (c *ExportConfig) ToPipelineOptions() pipeline.Options {
	return pipeline.Options{
		LOD:           c.LODParams(),
		FrustumFar:    c.GetFrustumFar(),
		Workers:       c.GetWorkers(),
		MergeDistance: c.GetMergeDistance(),
		MaxPoints:     c.GetMaxPoints(),
		VisibleOnly:   c.GetVisibleOnly(),
	}
}

// ASCIIOptions maps the output section onto serializer options.
func (c *ExportConfig) ASCIIOptions() serialize.ASCIIOptions {
	return serialize.ASCIIOptions{
		WorldSpace: c.GetWorldSpace(),
		Scale:      units.FromCentimetresScale(c.GetUnits()),
		FlipX:      getBool(c.FlipX, false),
		FlipY:      getBool(c.FlipY, true),
		FlipZ:      getBool(c.FlipZ, false),
		Precision:  c.GetPrecision(),
	}
}

// CameraView returns the configured camera, or nil when the file has none.
// Far is left at zero; the pipeline sets it from FrustumFar.
func (c *ExportConfig) CameraView() *geometry.CameraView {
	if c.Camera == nil {
		return nil
	}
	cam := c.Camera
	fov, aspect, near := cam.FOVDegrees, cam.Aspect, cam.Near
	if fov == 0 {
		fov = DefaultFOVDegrees
	}
	if aspect == 0 {
		aspect = DefaultAspect
	}
	if near == 0 {
		near = DefaultNear
	}
	v := geometry.NewCameraView(cam.Position.r3(), cam.Rotation, fov, aspect, near, 0)
	return &v
}

// Transform returns the source placement. The scale defaults to 1.
func (s SourceConfig) Transform() geometry.SourceTransform {
	scale := r3.Vec{X: 1, Y: 1, Z: 1}
	if s.Scale != nil {
		scale = s.Scale.r3()
	}
	return geometry.NewSourceTransform(s.Rotation, scale, s.Location.r3(), s.Offset.r3())
}

// LASScale converts the source's LAS units into scene units. LAS files
// default to metres.
func (s SourceConfig) LASScale() float64 {
	if s.LASUnits == "" {
		return units.CentimetresPer(units.M)
	}
	return units.CentimetresPer(s.LASUnits)
}
