package lod

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid LOD parameters")

// Default band radii (scene units, centimetres) and skip factors.
const (
	DefaultNearRadius = 5000.0
	DefaultMidRadius  = 20000.0
	DefaultFarRadius  = 100000.0
	DefaultMidSkip    = 2.0
	DefaultFarSkip    = 10.0
)

// Params configures the distance bands. Radii are measured from the camera
// in world units.
type Params struct {
	NearRadius float64 `json:"near_radius" yaml:"near_radius"`
	MidRadius  float64 `json:"mid_radius" yaml:"mid_radius"`
	FarRadius  float64 `json:"far_radius" yaml:"far_radius"`
	MidSkip    float64 `json:"mid_skip" yaml:"mid_skip"`
	FarSkip    float64 `json:"far_skip" yaml:"far_skip"`
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		NearRadius: DefaultNearRadius,
		MidRadius:  DefaultMidRadius,
		FarRadius:  DefaultFarRadius,
		MidSkip:    DefaultMidSkip,
		FarSkip:    DefaultFarSkip,
	}
}

// Validate checks the preconditions once per run so SkipFactor never has to.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"near radius": p.NearRadius, "mid radius": p.MidRadius, "far radius": p.FarRadius,
		"mid skip": p.MidSkip, "far skip": p.FarSkip,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidParams, name, v)
		}
	}
	if p.NearRadius <= 0 || p.MidRadius <= 0 || p.FarRadius <= 0 {
		return fmt.Errorf("%w: radii must be > 0 (near=%g mid=%g far=%g)",
			ErrInvalidParams, p.NearRadius, p.MidRadius, p.FarRadius)
	}
	if !(p.NearRadius < p.MidRadius && p.MidRadius < p.FarRadius) {
		return fmt.Errorf("%w: radii must increase strictly (near=%g mid=%g far=%g)",
			ErrInvalidParams, p.NearRadius, p.MidRadius, p.FarRadius)
	}
	if p.MidSkip < 1 || p.FarSkip < 1 {
		return fmt.Errorf("%w: skip factors must be >= 1 (mid=%g far=%g)", ErrInvalidParams, p.MidSkip, p.FarSkip)
	}
	if p.FarSkip < p.MidSkip {
		return fmt.Errorf("%w: far skip %g must be >= mid skip %g", ErrInvalidParams, p.FarSkip, p.MidSkip)
	}
	return nil
}

// SkipFactor returns S(d). Params must have passed Validate.
func (p Params) SkipFactor(d float64) float64 {
	switch {
	case math.IsNaN(d):
		return p.FarSkip
	case d <= p.NearRadius:
		return 1
	case d <= p.MidRadius:
		return lerp(1, p.MidSkip, (d-p.NearRadius)/(p.MidRadius-p.NearRadius))
	case d <= p.FarRadius:
		return lerp(p.MidSkip, p.FarSkip, (d-p.MidRadius)/(p.FarRadius-p.MidRadius))
	default:
		return p.FarSkip
	}
}

// Keep is the fractional-stride test for the n-th (1-based) point of a
// stream with skip factor s.
func Keep(n int, s float64) bool {
	if s <= 1 {
		return true
	}
	return math.Mod(float64(n), s) < 1
}

// KeepAt combines SkipFactor and Keep.
func (p Params) KeepAt(n int, d float64) bool {
	return Keep(n, p.SkipFactor(d))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Stride is the running ordinal of one stream.
type Stride struct {
	params Params
	n      int
}

// NewStride starts a stream with ordinal 0.
func NewStride(p Params) *Stride {
	return &Stride{params: p}
}

// Next advances the ordinal for one candidate at distance d and reports
// whether it is kept.
func (s *Stride) Next(d float64) bool {
	s.n++
	return s.params.KeepAt(s.n, d)
}

// Count returns how many candidates the stream has seen.
func (s *Stride) Count() int { return s.n }
