package rig

import (
	"math"
	"sort"
)

// Breakpoint maps a temperature (°C) to a dimensionless multiplier applied
// to the reference concentration.
type Breakpoint struct {
	Temperature float64
	Multiplier  float64
}

// ThresholdTable is a piecewise-linear compensation curve. Temperatures must
// be strictly increasing; the first and last entries clamp out-of-range input.
type ThresholdTable []Breakpoint

// DefaultThresholdTable returns the factory curve (0..35 °C, ×0.50..×1.20).
func DefaultThresholdTable() ThresholdTable {
	return ThresholdTable{
		{0, 0.50},
		{5, 0.60},
		{10, 0.70},
		{15, 0.80},
		{20, 0.90},
		{25, 1.00},
		{30, 1.10},
		{35, 1.20},
	}
}

func (t ThresholdTable) Validate() error {
	if len(t) < 2 {
		return ErrInvalidTable
	}
	for i, bp := range t {
		if !finite(bp.Temperature) || !finite(bp.Multiplier) {
			return ErrTableNotFinite
		}
		if i > 0 && bp.Temperature <= t[i-1].Temperature {
			return ErrTableNotIncreasing
		}
	}
	return nil
}

// Expected returns the raw threshold expected for reference at temperature.
// The table must have passed Validate.
func (t ThresholdTable) Expected(reference, temperature float64) float64 {
	first, last := t[0], t[len(t)-1]
	if temperature <= first.Temperature {
		return reference * first.Multiplier
	}
	if temperature >= last.Temperature {
		return reference * last.Multiplier
	}

	// i is the first breakpoint strictly above temperature, so t[i-1] <= temperature < t[i].
	i := sort.Search(len(t), func(i int) bool { return t[i].Temperature > temperature })
	lo, hi := t[i-1], t[i]
	f := lo.Multiplier + (temperature-lo.Temperature)/(hi.Temperature-lo.Temperature)*(hi.Multiplier-lo.Multiplier)
	return reference * f
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
