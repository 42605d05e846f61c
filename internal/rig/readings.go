package rig

import (
	"fmt"
	"math"
)

// DisconnectedC is what a DS18B20 reports when the probe does not answer.
const DisconnectedC = -127.0

// Reading is one sensor sample. Invalid samples keep the cause in Err and
// must never be compared against a threshold.
type Reading struct {
	Value float64
	Valid bool
	Err   error
}

// Readings is the sensor snapshot taken once per tick.
type Readings struct {
	TDS        Reading
	Turbidity  Reading
	Refractive Reading
	TankA      Reading
	TankC      Reading
}

func (r Readings) AllValid() bool {
	return r.TDS.Valid && r.Turbidity.Valid && r.Refractive.Valid && r.TankA.Valid && r.TankC.Valid
}

func analog(v float64, err error) Reading {
	if err != nil {
		return Reading{Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{Value: v, Err: ErrNonFiniteReading}
	}
	return Reading{Value: v, Valid: true}
}

func temperature(v float64, err error) Reading {
	r := analog(v, err)
	if r.Valid && v <= DisconnectedC {
		return Reading{Value: v, Err: ErrDisconnectedProbe}
	}
	return r
}

// Sample reads every sensor once.
func Sample(s Sensors) Readings {
	return Readings{
		TDS:        analog(s.TDSProxy()),
		Turbidity:  analog(s.Turbidity()),
		Refractive: analog(s.RefractiveIndex()),
		TankA:      temperature(s.TankATemperature()),
		TankC:      temperature(s.TankCTemperature()),
	}
}

func (r Reading) String() string {
	if !r.Valid {
		return fmt.Sprintf("invalid(%v)", r.Err)
	}
	return fmt.Sprintf("%.2f", r.Value)
}
