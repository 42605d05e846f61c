package rig

import (
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestThresholdTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		table ThresholdTable
		want  error
	}{
		{"Default table", DefaultThresholdTable(), nil},
		{"Two points", ThresholdTable{{0, 1}, {10, 2}}, nil},
		{"Empty", nil, ErrInvalidTable},
		{"Single point", ThresholdTable{{0, 1}}, ErrInvalidTable},
		{"Duplicate temperature", ThresholdTable{{0, 1}, {0, 2}}, ErrTableNotIncreasing},
		{"Decreasing temperature", ThresholdTable{{10, 1}, {5, 2}}, ErrTableNotIncreasing},
		{"NaN multiplier", ThresholdTable{{0, math.NaN()}, {5, 2}}, ErrTableNotFinite},
		{"Inf temperature", ThresholdTable{{0, 1}, {math.Inf(1), 2}}, ErrTableNotFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.table.Validate()
			if got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpectedThreshold(t *testing.T) {
	table := DefaultThresholdTable()
	const ref = 450.0

	tests := []struct {
		name string
		temp float64
		want float64
	}{
		{"Clamp far below", -40, ref * 0.50},
		{"Clamp just below", -0.01, ref * 0.50},
		{"First breakpoint", 0, ref * 0.50},
		{"Exact breakpoint 10", 10, ref * 0.70},
		{"Reference temperature", 25, ref * 1.00},
		{"Between 10 and 15", 12.5, ref * 0.75},
		{"Between 20 and 25", 21, ref * 0.92},
		{"Just under last", 34.99, ref * 1.1998},
		{"Last breakpoint", 35, ref * 1.20},
		{"Clamp above", 80, ref * 1.20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Expected(ref, tt.temp)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("Expected(%v, %v) = %v, want %v", ref, tt.temp, got, tt.want)
			}
		})
	}
}

func TestExpectedThresholdExactAtBreakpoints(t *testing.T) {
	table := DefaultThresholdTable()
	for _, bp := range table {
		got := table.Expected(1, bp.Temperature)
		if got != bp.Multiplier {
			t.Errorf("Expected(1, %v) = %v, want exactly %v", bp.Temperature, got, bp.Multiplier)
		}
	}
}

func TestExpectedThresholdContinuous(t *testing.T) {
	table := DefaultThresholdTable()
	const eps = 1e-7
	for _, bp := range table[1 : len(table)-1] {
		below := table.Expected(450, bp.Temperature-eps)
		at := table.Expected(450, bp.Temperature)
		above := table.Expected(450, bp.Temperature+eps)
		if !almostEqual(below, at, 1e-4) || !almostEqual(above, at, 1e-4) {
			t.Errorf("discontinuity at %v: %v / %v / %v", bp.Temperature, below, at, above)
		}
	}
}

func TestExpectedThresholdClampsOutOfRange(t *testing.T) {
	table := DefaultThresholdTable()
	for temp := -50.0; temp <= 0; temp += 2.5 {
		if got := table.Expected(450, temp); got != 450*0.50 {
			t.Fatalf("Expected(450, %v) = %v, want %v", temp, got, 450*0.50)
		}
	}
	for temp := 35.0; temp <= 100; temp += 2.5 {
		if got := table.Expected(450, temp); got != 450*1.20 {
			t.Fatalf("Expected(450, %v) = %v, want %v", temp, got, 450*1.20)
		}
	}
}

func TestExpectedThresholdCustomTable(t *testing.T) {
	table := ThresholdTable{{-10, 2}, {0, 1}, {40, 3}}
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	tests := []struct {
		temp float64
		want float64
	}{
		{-20, 200},
		{-5, 150},
		{0, 100},
		{20, 200},
		{50, 300},
	}
	for _, tt := range tests {
		if got := table.Expected(100, tt.temp); !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("Expected(100, %v) = %v, want %v", tt.temp, got, tt.want)
		}
	}
}
