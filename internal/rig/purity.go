package rig

import "time"

type PurityParams struct {
	DecisionDelay          time.Duration
	ReferenceConcentration float64
	TurbidityMin           float64
	TurbidityMax           float64
	RefractiveMin          float64
	RefractiveMax          float64
	Table                  ThresholdTable
}

func (params *PurityParams) Validate() error {
	if params.DecisionDelay < 0 {
		return ErrInvalidDuration
	}
	if !(params.ReferenceConcentration > 0) {
		return ErrInvalidReference
	}
	if params.TurbidityMin > params.TurbidityMax || params.RefractiveMin > params.RefractiveMax {
		return ErrInvalidRange
	}
	return params.Table.Validate()
}

// Decision is the outcome of a purity check.
type Decision struct {
	Verdict  Verdict
	Expected float64
	FailSafe bool // forced impure because an input was invalid
}

// Decide compares the live readings with the compensated TDS threshold and
// the turbidity / refractive-index windows. All bounds are inclusive.
func (params *PurityParams) Decide(r Readings) Decision {
	if !r.TDS.Valid || !r.Turbidity.Valid || !r.Refractive.Valid || !r.TankA.Valid {
		return Decision{Verdict: VerdictImpure, FailSafe: true}
	}

	expected := params.Table.Expected(params.ReferenceConcentration, r.TankA.Value)
	pure := r.TDS.Value <= expected &&
		within(r.Turbidity.Value, params.TurbidityMin, params.TurbidityMax) &&
		within(r.Refractive.Value, params.RefractiveMin, params.RefractiveMax)

	d := Decision{Verdict: VerdictImpure, Expected: expected}
	if pure {
		d.Verdict = VerdictPure
	}
	return d
}

func within(v, min, max float64) bool {
	return v >= min && v <= max
}
