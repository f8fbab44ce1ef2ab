package units

import (
	"math"
	"testing"
)

func TestCentimetresPer(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		units    string
		expected float64
	}{
		{"1 m", 1.0, M, 100.0},
		{"25 mm", 25.0, MM, 2.5},
		{"2 ft", 2.0, FT, 60.96},
		{"cm unchanged", 42.0, CM, 42.0},
		{"unknown units default to cm", 7.0, "unknown", 7.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.value * CentimetresPer(tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("%f %s = %f cm, want %f", tt.value, tt.units, result, tt.expected)
			}
		})
	}
}

func TestFromCentimetresScale(t *testing.T) {
	if got := FromCentimetresScale(M); got != 0.01 {
		t.Errorf("FromCentimetresScale(m) = %v, want 0.01", got)
	}
	for _, u := range ValidUnits {
		if got := FromCentimetresScale(u) * CentimetresPer(u); math.Abs(got-1) > 1e-12 {
			t.Errorf("round trip for %s = %v, want 1", u, got)
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid cm", CM, true},
		{"valid m", M, true},
		{"valid mm", MM, true},
		{"valid ft", FT, true},
		{"invalid unit", "parsec", false},
		{"empty string", "", false},
		{"case sensitive", "M", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "cm, m, mm, ft"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}
