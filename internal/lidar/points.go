package lidar

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// RGB is an 8-bit colour. Intensity is carried separately on each point and
// is never stored in an alpha channel.
type RGB struct {
	R, G, B uint8
}

// Candidate is one point returned by a Source query, in the source's stored
// frame (before the local offset is applied).
type Candidate struct {
	Position  r3.Vec
	Color     RGB
	Intensity uint8
}

// PointRecord is a point that survived visibility and LOD filtering.
//
// Records are created while a source's query results are consumed, may be
// folded together by the merge stage (World, Local, Color and Intensity
// become weighted means and Weight counts the raw points represented) and
// are read-only afterwards.
type PointRecord struct {
	World     r3.Vec
	Local     r3.Vec
	Color     RGB
	Intensity uint8
	SourceID  string
	Weight    int
}

// Position returns the world or full-local position of the record.
func (p PointRecord) Position(worldSpace bool) r3.Vec {
	if worldSpace {
		return p.World
	}
	return p.Local
}

// EffectiveWeight treats the zero value as a single raw point.
func (p PointRecord) EffectiveWeight() int {
	if p.Weight <= 0 {
		return 1
	}
	return p.Weight
}
