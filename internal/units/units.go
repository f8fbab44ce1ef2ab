// Package units provides shared constants and validation for length units.
//
// Scene coordinates are centimetres. Export files and LAS inputs may use
// other units; every conversion goes through centimetres.
package units

// Unit constants
const (
	CM = "cm"
	M  = "m"
	MM = "mm"
	FT = "ft"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{CM, M, MM, FT}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "cm, m, mm, ft"
}

// CentimetresPer returns how many centimetres one unit spans.
func CentimetresPer(unit string) float64 {
	switch unit {
	case M:
		return 100
	case MM:
		return 0.1
	case FT:
		return 30.48
	default:
		return 1 // cm, or unknown
	}
}

// FromCentimetresScale is the factor that converts scene units into unit.
// ASCII export multiplies every coordinate by it.
func FromCentimetresScale(unit string) float64 {
	return 1 / CentimetresPer(unit)
}
