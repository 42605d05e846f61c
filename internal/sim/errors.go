package sim

import "errors"

var (
	ErrNegativeHeatLossCoefficient = errors.New("heat loss coefficient must be >= 0")
	ErrNegativeRate                = errors.New("heater, cooler and drain rates must be >= 0")
	ErrNegativeSample              = errors.New("sample values must be >= 0")
	ErrUnknownSensor               = errors.New("unknown sensor")
	ErrUnknownActuator             = errors.New("unknown actuator")
)
