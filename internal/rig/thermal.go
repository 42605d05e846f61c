package rig

import "time"

// BandProfile is what the Tank C hardware does while a band is active.
type BandProfile struct {
	Heater  bool
	Cooler  bool
	Fan     bool
	PumpOn  time.Duration // how long the pump runs before resting
	PumpOff time.Duration // how long it rests before running again
}

func (p *BandProfile) Validate() error {
	if p.PumpOn <= 0 || p.PumpOff <= 0 {
		return ErrInvalidPumpDuty
	}
	return nil
}

type ThermalParams struct {
	StartupDelay time.Duration
	HeatBoundary float64 // below: cold
	CoolBoundary float64 // above: hot
	Cold         BandProfile
	Normal       BandProfile
	Hot          BandProfile
}

func (params *ThermalParams) Validate() error {
	if params.StartupDelay < 0 {
		return ErrInvalidDuration
	}
	if params.HeatBoundary > params.CoolBoundary {
		return ErrInvalidBoundaries
	}
	for _, p := range []*BandProfile{&params.Cold, &params.Normal, &params.Hot} {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Classify maps a Tank C temperature to its band. Both boundaries belong to
// the normal band.
func (params *ThermalParams) Classify(temp float64) Band {
	switch {
	case temp < params.HeatBoundary:
		return BandCold
	case temp > params.CoolBoundary:
		return BandHot
	default:
		return BandNormal
	}
}

func (params *ThermalParams) Profile(b Band) BandProfile {
	switch b {
	case BandCold:
		return params.Cold
	case BandHot:
		return params.Hot
	default:
		return params.Normal
	}
}

// PumpCycle is the recirculation pump's two-phase duty cycle.
type PumpCycle struct {
	On         bool
	LastToggle time.Time
}

// Advance flips the phase once the current phase has lasted its duration
// under profile. The timer is shared by all bands.
func (p *PumpCycle) Advance(profile BandProfile, now time.Time) bool {
	d := profile.PumpOff
	if p.On {
		d = profile.PumpOn
	}
	if now.Sub(p.LastToggle) < d {
		return false
	}
	p.On = !p.On
	p.LastToggle = now
	return true
}

// ThermalOutput is the desired state of the Tank C actuators.
type ThermalOutput struct {
	Band       Band
	Heater     bool
	Cooler     bool
	Fan        bool
	Pump       bool
	Suppressed bool // temperature invalid: heater/cooler forced off, fan and pump untouched
}

type ThermalRegulator struct {
	params ThermalParams
	pump   PumpCycle
	band   Band
}

// NewThermalRegulator starts the pump resting, with its timer at start.
func NewThermalRegulator(params ThermalParams, start time.Time) *ThermalRegulator {
	return &ThermalRegulator{
		params: params,
		pump:   PumpCycle{LastToggle: start},
	}
}

func (r *ThermalRegulator) Update(tankC Reading, now time.Time) ThermalOutput {
	if !tankC.Valid {
		r.band = BandUnknown
		return ThermalOutput{Band: BandUnknown, Pump: r.pump.On, Suppressed: true}
	}

	r.band = r.params.Classify(tankC.Value)
	profile := r.params.Profile(r.band)
	r.pump.Advance(profile, now)

	return ThermalOutput{
		Band:   r.band,
		Heater: profile.Heater,
		Cooler: profile.Cooler,
		Fan:    profile.Fan,
		Pump:   r.pump.On,
	}
}

func (r *ThermalRegulator) Band() Band {
	return r.band
}

func (r *ThermalRegulator) Pump() PumpCycle {
	return r.pump
}
