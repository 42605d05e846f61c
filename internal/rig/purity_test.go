package rig

import (
	"errors"
	"testing"
)

func valid(v float64) Reading {
	return Reading{Value: v, Valid: true}
}

func invalid() Reading {
	return Reading{Err: errors.New("no sample")}
}

func newTestReadings(opts ...func(*Readings)) Readings {
	r := Readings{
		TDS:        valid(100),
		Turbidity:  valid(4085),
		Refractive: valid(3500),
		TankA:      valid(25), // multiplier 1.00 → expected 450
		TankC:      valid(20),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func TestPurityParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PurityParams)
		want   error
	}{
		{"Defaults", func(*PurityParams) {}, nil},
		{"Negative delay", func(p *PurityParams) { p.DecisionDelay = -1 }, ErrInvalidDuration},
		{"Zero reference", func(p *PurityParams) { p.ReferenceConcentration = 0 }, ErrInvalidReference},
		{"Turbidity min > max", func(p *PurityParams) { p.TurbidityMin = 5000 }, ErrInvalidRange},
		{"Refractive min > max", func(p *PurityParams) { p.RefractiveMax = 10 }, ErrInvalidRange},
		{"Bad table", func(p *PurityParams) { p.Table = ThresholdTable{{1, 1}} }, ErrInvalidTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams().Purity
			tt.mutate(&p)
			if got := p.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	params := DefaultParams().Purity

	tests := []struct {
		name         string
		readings     Readings
		wantVerdict  Verdict
		wantFailSafe bool
	}{
		{"Pure sample", newTestReadings(), VerdictPure, false},
		{"TDS above threshold", newTestReadings(func(r *Readings) { r.TDS = valid(500) }), VerdictImpure, false},
		{"TDS equal to threshold", newTestReadings(func(r *Readings) { r.TDS = valid(450) }), VerdictPure, false},
		{"Cold tank lowers threshold", newTestReadings(func(r *Readings) {
			r.TDS = valid(300)
			r.TankA = valid(5) // expected 270
		}), VerdictImpure, false},
		{"Turbidity at min", newTestReadings(func(r *Readings) { r.Turbidity = valid(4080) }), VerdictPure, false},
		{"Turbidity at max", newTestReadings(func(r *Readings) { r.Turbidity = valid(4095) }), VerdictPure, false},
		{"Turbidity below min", newTestReadings(func(r *Readings) { r.Turbidity = valid(4079) }), VerdictImpure, false},
		{"Refractive at min", newTestReadings(func(r *Readings) { r.Refractive = valid(3000) }), VerdictPure, false},
		{"Refractive below min", newTestReadings(func(r *Readings) { r.Refractive = valid(2999.5) }), VerdictImpure, false},
		{"Refractive above max", newTestReadings(func(r *Readings) { r.Refractive = valid(4096) }), VerdictImpure, false},
		{"Invalid TDS fails safe", newTestReadings(func(r *Readings) { r.TDS = invalid() }), VerdictImpure, true},
		{"Disconnected Tank A probe fails safe", newTestReadings(func(r *Readings) {
			r.TankA = temperature(DisconnectedC, nil)
		}), VerdictImpure, true},
		{"Invalid Tank C is irrelevant", newTestReadings(func(r *Readings) { r.TankC = invalid() }), VerdictPure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := params.Decide(tt.readings)
			if got.Verdict != tt.wantVerdict {
				t.Errorf("Verdict = %v, want %v", got.Verdict, tt.wantVerdict)
			}
			if got.FailSafe != tt.wantFailSafe {
				t.Errorf("FailSafe = %v, want %v", got.FailSafe, tt.wantFailSafe)
			}
		})
	}
}

func TestDecideReportsExpected(t *testing.T) {
	params := DefaultParams().Purity
	got := params.Decide(newTestReadings(func(r *Readings) { r.TankA = valid(12.5) }))
	if !almostEqual(got.Expected, 450*0.75, 1e-9) {
		t.Errorf("Expected = %v, want %v", got.Expected, 450*0.75)
	}
}

func TestSampleMarksInvalidReadings(t *testing.T) {
	s := &fakeSensors{tds: 12, turbidity: 4090, refractive: 3100, tankA: DisconnectedC, tankC: 21}
	s.errs = map[string]error{"turbidity": errors.New("adc timeout")}

	r := Sample(s)
	if !r.TDS.Valid || r.TDS.Value != 12 {
		t.Errorf("TDS = %+v, want valid 12", r.TDS)
	}
	if r.Turbidity.Valid {
		t.Error("turbidity with read error should be invalid")
	}
	if r.TankA.Valid || !errors.Is(r.TankA.Err, ErrDisconnectedProbe) {
		t.Errorf("TankA = %+v, want disconnected", r.TankA)
	}
	if !r.TankC.Valid {
		t.Error("TankC should be valid")
	}
	if r.AllValid() {
		t.Error("AllValid() should be false")
	}
}
