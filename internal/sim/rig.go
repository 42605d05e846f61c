package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

type Params struct {
	Tank             TankParams
	TankCTemperature float64 // initial Tank C temperature
	TankATemperature float64
	SampleTDS        float64 // TDS proxy of a freshly transferred sample
	DrainRate        float64 // TDS units/s lost while transfer is disabled
	Turbidity        float64
	Refractive       float64
}

func DefaultParams() Params {
	return Params{
		Tank: TankParams{
			AmbientTemperature: 22,
			Coefficient:        1e-3,
			HeaterRate:         0.05,
			CoolerRate:         0.05,
		},
		TankCTemperature: 20,
		TankATemperature: 25,
		SampleTDS:        100,
		DrainRate:        20,
		Turbidity:        4085,
		Refractive:       3500,
	}
}

func (p *Params) Validate() error {
	if err := p.Tank.Validate(); err != nil {
		return err
	}
	if p.DrainRate < 0 {
		return ErrNegativeRate
	}
	if p.SampleTDS < 0 || p.Turbidity < 0 || p.Refractive < 0 {
		return ErrNegativeSample
	}
	return nil
}

// Rig simulates the two-tank plant. It implements rig.Sensors, rig.Actuators
// and rig.Trigger so a Controller can be driven without hardware.
type Rig struct {
	mu      sync.Mutex
	params  Params
	clock   rig.Clock
	tankC   *Tank
	tds     float64
	outputs rig.Outputs
	faults  map[string]error

	pressedUntil time.Time
}

func NewRig(params Params, clock rig.Clock) (*Rig, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	tank, err := NewTank(params.Tank, params.TankCTemperature)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = rig.SystemClock{}
	}
	return &Rig{
		params:  params,
		clock:   clock,
		tankC:   tank,
		tds:     params.SampleTDS,
		outputs: rig.IdleOutputs(),
		faults:  map[string]error{},
	}, nil
}

func (r *Rig) read(name string, v float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.faults[name]; err != nil {
		return 0, err
	}
	return v, nil
}

func (r *Rig) TDSProxy() (float64, error) {
	r.mu.Lock()
	v := r.tds
	r.mu.Unlock()
	return r.read("tds", v)
}

func (r *Rig) Turbidity() (float64, error) { return r.read("turbidity", r.params.Turbidity) }

func (r *Rig) RefractiveIndex() (float64, error) { return r.read("refractive", r.params.Refractive) }

func (r *Rig) TankATemperature() (float64, error) {
	return r.read("tank_a", r.params.TankATemperature)
}

func (r *Rig) TankCTemperature() (float64, error) {
	r.mu.Lock()
	v := r.tankC.Temperature()
	r.mu.Unlock()
	return r.read("tank_c", v)
}

// Set records the actuator state. Re-enabling transfer brings in a fresh
// sample.
func (r *Rig) Set(a rig.Actuator, on bool) error {
	if !a.Valid() {
		return fmt.Errorf("set %d: %w", int(a), ErrUnknownActuator)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a == rig.Transfer && on && !r.outputs.Transfer {
		r.tds = r.params.SampleTDS
	}
	r.outputs.Set(a, on)
	return nil
}

func (r *Rig) Read() (rig.Level, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clock.Now().Before(r.pressedUntil) {
		return rig.LevelPressed, nil
	}
	return rig.LevelReleased, nil
}

// Press holds the start switch down for d.
func (r *Rig) Press(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pressedUntil = r.clock.Now().Add(d)
}

// Fault makes the named sensor fail with err until cleared with a nil err.
// Names are tds, turbidity, refractive, tank_a and tank_c.
func (r *Rig) Fault(sensor string, err error) error {
	switch sensor {
	case "tds", "turbidity", "refractive", "tank_a", "tank_c":
	default:
		return fmt.Errorf("%q: %w", sensor, ErrUnknownSensor)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.faults, sensor)
		return nil
	}
	r.faults[sensor] = err
	return nil
}

func (r *Rig) Outputs() rig.Outputs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputs
}

// Step integrates the plant over dt using the current actuator state.
func (r *Rig) Step(dt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tankC.Step(r.outputs.Heater, r.outputs.Cooler, dt)
	if !r.outputs.Transfer {
		r.tds -= r.params.DrainRate * dt.Seconds()
		if r.tds < 0 {
			r.tds = 0
		}
	}
}

func (r *Rig) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Step(interval)
		}
	}
}
