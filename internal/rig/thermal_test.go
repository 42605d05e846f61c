package rig

import (
	"testing"
	"time"
)

func TestThermalParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ThermalParams)
		want   error
	}{
		{"Defaults", func(*ThermalParams) {}, nil},
		{"Equal boundaries", func(p *ThermalParams) { p.HeatBoundary, p.CoolBoundary = 20, 20 }, nil},
		{"Inverted boundaries", func(p *ThermalParams) { p.HeatBoundary, p.CoolBoundary = 30, 20 }, ErrInvalidBoundaries},
		{"Negative startup", func(p *ThermalParams) { p.StartupDelay = -time.Second }, ErrInvalidDuration},
		{"Zero pump on", func(p *ThermalParams) { p.Hot.PumpOn = 0 }, ErrInvalidPumpDuty},
		{"Zero pump off", func(p *ThermalParams) { p.Cold.PumpOff = 0 }, ErrInvalidPumpDuty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams().Thermal
			tt.mutate(&p)
			if got := p.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	params := DefaultParams().Thermal // 10 / 33
	tests := []struct {
		temp float64
		want Band
	}{
		{-5, BandCold},
		{9.99, BandCold},
		{10, BandNormal},
		{20, BandNormal},
		{33, BandNormal},
		{33.01, BandHot},
		{60, BandHot},
	}
	for _, tt := range tests {
		if got := params.Classify(tt.temp); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.temp, got, tt.want)
		}
	}
}

func TestThermalOutputsPerBand(t *testing.T) {
	tests := []struct {
		name                      string
		temp                      float64
		band                      Band
		heater, cooler, fan, pump bool
	}{
		{"Cold", 5, BandCold, false, true, true, false},
		{"Normal", 20, BandNormal, false, false, true, false},
		{"Hot", 40, BandHot, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewThermalRegulator(DefaultParams().Thermal, t0)
			got := r.Update(valid(tt.temp), t0.Add(time.Second))
			want := ThermalOutput{Band: tt.band, Heater: tt.heater, Cooler: tt.cooler, Fan: tt.fan, Pump: tt.pump}
			if got != want {
				t.Errorf("Update() = %+v, want %+v", got, want)
			}
			if r.Band() != tt.band {
				t.Errorf("Band() = %v, want %v", r.Band(), tt.band)
			}
		})
	}
}

func TestPumpCycleTogglesPerBandDurations(t *testing.T) {
	r := NewThermalRegulator(DefaultParams().Thermal, t0)
	cold := valid(5) // (on 5s, off 10s)

	steps := []struct {
		after time.Duration
		want  bool
	}{
		{9 * time.Second, false},
		{10 * time.Second, true}, // rested 10s
		{14 * time.Second, true},
		{15 * time.Second, false}, // ran 5s
		{24 * time.Second, false},
		{25 * time.Second, true},
	}
	for _, s := range steps {
		got := r.Update(cold, t0.Add(s.after))
		if got.Pump != s.want {
			t.Errorf("+%v: pump = %v, want %v", s.after, got.Pump, s.want)
		}
	}
}

func TestPumpTimerSurvivesBandChange(t *testing.T) {
	r := NewThermalRegulator(DefaultParams().Thermal, t0)

	// Normal: off phase lasts 600s.
	if out := r.Update(valid(20), t0.Add(5*time.Second)); out.Pump {
		t.Fatal("pump should still rest in normal band")
	}
	// Switching to cold applies the cold off duration (10s) to the same
	// timer that started at t0, so the pump starts right away.
	out := r.Update(valid(5), t0.Add(10*time.Second))
	if !out.Pump {
		t.Fatal("expected pump on: 10s elapsed since last toggle under cold band")
	}
	if got := r.Pump().LastToggle; !got.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("LastToggle = %v, want %v", got, t0.Add(10*time.Second))
	}
	// Back to normal while on: on phase is 120s from the last toggle.
	if out := r.Update(valid(20), t0.Add(129*time.Second)); !out.Pump {
		t.Error("pump should keep running until 120s elapsed")
	}
	if out := r.Update(valid(20), t0.Add(130*time.Second)); out.Pump {
		t.Error("pump should stop after 120s in normal band")
	}
}

func TestPumpCycleAdvance(t *testing.T) {
	p := PumpCycle{LastToggle: t0}
	profile := BandProfile{PumpOn: 2 * time.Second, PumpOff: 3 * time.Second}
	if p.Advance(profile, t0.Add(2999*time.Millisecond)) {
		t.Fatal("toggled before the off duration elapsed")
	}
	if !p.Advance(profile, t0.Add(3*time.Second)) || !p.On {
		t.Fatal("expected toggle to on")
	}
	if !p.Advance(profile, t0.Add(5*time.Second)) || p.On {
		t.Fatal("expected toggle to off")
	}
}

func TestThermalInvalidReadingSuppresses(t *testing.T) {
	r := NewThermalRegulator(DefaultParams().Thermal, t0)
	r.Update(valid(5), t0.Add(10*time.Second)) // pump on
	before := r.Pump()

	out := r.Update(temperature(DisconnectedC, nil), t0.Add(20*time.Second))
	if !out.Suppressed || out.Band != BandUnknown {
		t.Fatalf("Update() = %+v, want suppressed unknown band", out)
	}
	if out.Heater || out.Cooler {
		t.Error("heater and cooler must be off while suppressed")
	}
	if out.Pump != before.On || r.Pump() != before {
		t.Error("pump cycle must not advance while suppressed")
	}
}
