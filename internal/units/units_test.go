package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"10 m/s to mph", 10.0, MPH, 22.3694},
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown units default to mps", 10.0, "unknown", 10.0},
		{"0 m/s to mph", 0.0, MPH, 0.0},
		{"ego cruise 20 m/s to mph", 20.0, MPH, 44.7387},
		{"ego cruise 20 m/s to kph", 20.0, KPH, 72.0},
		{"slow agent 15 m/s to mph", 15.0, MPH, 33.5540},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.units)
			if math.Abs(result-tt.expected) > 0.01 { // Allow small floating point differences
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mps", MPS, true},
		{"valid mph", MPH, true},
		{"valid kmph", KMPH, true},
		{"valid kph", KPH, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "MPH", false},
		{"case sensitive", "Mph", false},
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
	expected := "mps, mph, kmph, kph"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		unit string
		want string
	}{
		{MPS, "m/s"},
		{MPH, "mph"},
		{KMPH, "km/h"},
		{KPH, "km/h"},
		{"", "m/s"},
	}
	for _, tt := range tests {
		if got := Label(tt.unit); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.unit, got, tt.want)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(20, KPH); got != "72.0 km/h" {
		t.Errorf("FormatSpeed(20, kph) = %q", got)
	}
	if got := FormatSpeed(20, MPS); got != "20.0 m/s" {
		t.Errorf("FormatSpeed(20, mps) = %q", got)
	}
}
