package rig

import "errors"

var (
	ErrInvalidTable         = errors.New("threshold table needs at least two breakpoints")
	ErrTableNotIncreasing   = errors.New("threshold table temperatures must be strictly increasing")
	ErrTableNotFinite       = errors.New("threshold table values must be finite")
	ErrInvalidRange         = errors.New("invalid min/max range")
	ErrInvalidReference     = errors.New("reference concentration must be positive")
	ErrInvalidBoundaries    = errors.New("heat boundary must not exceed cool boundary")
	ErrInvalidDuration      = errors.New("durations must be greater or equal to zero")
	ErrInvalidPumpDuty      = errors.New("pump on/off durations must be strictly positive")
	ErrInvalidZeroThreshold = errors.New("zero threshold must be positive")
	ErrCycleActive          = errors.New("cycle already active")
	ErrMissingIO            = errors.New("sensors, actuators and trigger are required")
	ErrDisconnectedProbe    = errors.New("temperature probe disconnected")
	ErrNonFiniteReading     = errors.New("reading is not a finite number")
)
