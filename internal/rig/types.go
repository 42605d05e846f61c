package rig

import "fmt"

// Verdict is an integer enum.
type Verdict int

const (
	VerdictUndecided Verdict = iota
	VerdictPure
	VerdictImpure
)

func (v Verdict) Valid() bool {
	return v == VerdictUndecided || v == VerdictPure || v == VerdictImpure
}

func (v Verdict) String() string {
	switch v {
	case VerdictUndecided:
		return "undecided"
	case VerdictPure:
		return "pure"
	case VerdictImpure:
		return "impure"
	default:
		return "unknown"
	}
}

func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "undecided":
		return VerdictUndecided, nil
	case "pure":
		return VerdictPure, nil
	case "impure":
		return VerdictImpure, nil
	default:
		return VerdictUndecided, fmt.Errorf("invalid verdict: %q", s)
	}
}

// Band is the Tank C thermal regime.
type Band int

const (
	BandUnknown Band = iota
	BandCold
	BandNormal
	BandHot
)

func (b Band) Valid() bool {
	return b == BandCold || b == BandNormal || b == BandHot
}

func (b Band) String() string {
	switch b {
	case BandCold:
		return "cold"
	case BandNormal:
		return "normal"
	case BandHot:
		return "hot"
	default:
		return "unknown"
	}
}

func ParseBand(s string) (Band, error) {
	switch s {
	case "cold":
		return BandCold, nil
	case "normal":
		return BandNormal, nil
	case "hot":
		return BandHot, nil
	default:
		return BandUnknown, fmt.Errorf("invalid band: %q", s)
	}
}

// Level is the logical state of the trigger switch.
type Level int

const (
	LevelReleased Level = iota
	LevelPressed
)

func (l Level) String() string {
	if l == LevelPressed {
		return "pressed"
	}
	return "released"
}

// Actuator names one boolean output of the rig.
type Actuator int

const (
	ActuatorUnknown Actuator = iota
	PureIndicator
	ImpureIndicator
	Alarm
	Transfer
	Heater
	Cooler
	Fan
	Pump
)

// AllActuators lists every output in a stable order (the order used on the wire).
var AllActuators = []Actuator{PureIndicator, ImpureIndicator, Alarm, Transfer, Heater, Cooler, Fan, Pump}

func (a Actuator) Valid() bool {
	return a >= PureIndicator && a <= Pump
}

func (a Actuator) String() string {
	switch a {
	case PureIndicator:
		return "pure_indicator"
	case ImpureIndicator:
		return "impure_indicator"
	case Alarm:
		return "alarm"
	case Transfer:
		return "transfer"
	case Heater:
		return "heater"
	case Cooler:
		return "cooler"
	case Fan:
		return "fan"
	case Pump:
		return "pump"
	default:
		return "unknown"
	}
}

func ParseActuator(s string) (Actuator, error) {
	for _, a := range AllActuators {
		if a.String() == s {
			return a, nil
		}
	}
	return ActuatorUnknown, fmt.Errorf("invalid actuator: %q", s)
}

// Index is the zero-based position of a in AllActuators.
func (a Actuator) Index() int {
	return int(a) - int(PureIndicator)
}
