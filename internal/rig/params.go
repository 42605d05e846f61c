package rig

import "time"

type Params struct {
	Debounce   time.Duration
	Purity     PurityParams
	Completion CompletionParams
	Thermal    ThermalParams
}

// DefaultParams returns the factory settings of the rig.
func DefaultParams() Params {
	return Params{
		Debounce: 50 * time.Millisecond,
		Purity: PurityParams{
			DecisionDelay:          15 * time.Second,
			ReferenceConcentration: 450,
			TurbidityMin:           4080,
			TurbidityMax:           4095,
			RefractiveMin:          3000,
			RefractiveMax:          4095,
			Table:                  DefaultThresholdTable(),
		},
		Completion: CompletionParams{
			ZeroThreshold: 5,
			Hold:          10 * time.Second,
		},
		Thermal: ThermalParams{
			StartupDelay: 20 * time.Second,
			HeatBoundary: 10,
			CoolBoundary: 33,
			Cold:         BandProfile{Heater: false, Cooler: true, Fan: true, PumpOn: 5 * time.Second, PumpOff: 10 * time.Second},
			Normal:       BandProfile{Heater: false, Cooler: false, Fan: true, PumpOn: 120 * time.Second, PumpOff: 600 * time.Second},
			Hot:          BandProfile{Heater: false, Cooler: false, Fan: false, PumpOn: 120 * time.Second, PumpOff: 600 * time.Second},
		},
	}
}

func (params *Params) Validate() error {
	if params.Debounce < 0 {
		return ErrInvalidDuration
	}
	if err := params.Purity.Validate(); err != nil {
		return err
	}
	if err := params.Completion.Validate(); err != nil {
		return err
	}
	return params.Thermal.Validate()
}
