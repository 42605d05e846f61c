package sim

import "time"

type TankParams struct {
	AmbientTemperature float64
	Coefficient        float64 // >= 0, represents conductivity. 0 for no loss.
	HeaterRate         float64 // °C/s added while the heater runs
	CoolerRate         float64 // °C/s removed while the cooler runs
}

func (params *TankParams) Validate() error {
	if params.Coefficient < 0 {
		return ErrNegativeHeatLossCoefficient
	}
	if params.HeaterRate < 0 || params.CoolerRate < 0 {
		return ErrNegativeRate
	}
	return nil
}

// Tank is a lumped thermal model of Tank C.
type Tank struct {
	params      TankParams
	temperature float64
}

func NewTank(params TankParams, initial float64) (*Tank, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Tank{params: params, temperature: initial}, nil
}

func (t *Tank) DeltaTemperature(heater, cooler bool, dt time.Duration) float64 {
	diff := t.params.AmbientTemperature - t.temperature
	delta := t.params.Coefficient * diff
	if heater {
		delta += t.params.HeaterRate
	}
	if cooler {
		delta -= t.params.CoolerRate
	}
	return delta * dt.Seconds()
}

func (t *Tank) Step(heater, cooler bool, dt time.Duration) {
	t.temperature += t.DeltaTemperature(heater, cooler, dt)
}

func (t *Tank) Temperature() float64 {
	return t.temperature
}
