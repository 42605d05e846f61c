package rig

import "time"

// Sensors is the analog front end. Each call takes a fresh sample.
type Sensors interface {
	TDSProxy() (float64, error)
	Turbidity() (float64, error)
	RefractiveIndex() (float64, error)
	TankATemperature() (float64, error) // °C
	TankCTemperature() (float64, error) // °C
}

// Actuators drives the rig outputs. on is the logical state; translating it
// to a relay or pin level is the implementation's job. Setting the same
// state twice must be harmless.
type Actuators interface {
	Set(a Actuator, on bool) error
}

// Trigger reads the start switch.
type Trigger interface {
	Read() (Level, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IO groups the collaborators a Controller drives.
type IO struct {
	Sensors   Sensors
	Actuators Actuators
	Trigger   Trigger
}

// Outputs is the logical state of every actuator.
type Outputs struct {
	PureIndicator   bool
	ImpureIndicator bool
	Alarm           bool
	Transfer        bool
	Heater          bool
	Cooler          bool
	Fan             bool
	Pump            bool
}

// IdleOutputs is the state applied at startup: transfer enabled, everything
// else off.
func IdleOutputs() Outputs {
	return Outputs{Transfer: true}
}

func (o Outputs) Get(a Actuator) bool {
	switch a {
	case PureIndicator:
		return o.PureIndicator
	case ImpureIndicator:
		return o.ImpureIndicator
	case Alarm:
		return o.Alarm
	case Transfer:
		return o.Transfer
	case Heater:
		return o.Heater
	case Cooler:
		return o.Cooler
	case Fan:
		return o.Fan
	case Pump:
		return o.Pump
	default:
		return false
	}
}

func (o *Outputs) Set(a Actuator, on bool) {
	switch a {
	case PureIndicator:
		o.PureIndicator = on
	case ImpureIndicator:
		o.ImpureIndicator = on
	case Alarm:
		o.Alarm = on
	case Transfer:
		o.Transfer = on
	case Heater:
		o.Heater = on
	case Cooler:
		o.Cooler = on
	case Fan:
		o.Fan = on
	case Pump:
		o.Pump = on
	}
}
